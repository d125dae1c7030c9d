// Package someipc is a thin binding layer over a SOME/IP middleware.
//
// The package owns no protocol logic: the SOME/IP state machine, service
// discovery, routing and serialization live entirely inside the middleware
// behind the interfaces of the middleware subpackage. What this layer adds
// is lifecycle and handle management: it wraps one middleware application
// plus its dispatch goroutine into an Application handle, adapts
// caller-supplied callbacks into middleware callback signatures, and
// translates between the boundary's fixed-value enums and the middleware's
// native ones.
//
// Example:
//
//	rt := inproc.Get()
//
//	app := someipc.Create(rt, "consumer")
//	if app == nil {
//	    log.Fatal("application creation failed")
//	}
//	defer app.Close()
//
//	app.SetupAvailHandlerFor(0x002a, 0x0001, 1, func(svc someipc.ServiceID, inst someipc.InstanceID, st someipc.AvailabilityState) {
//	    if st == someipc.Available {
//	        session := app.SendRequest(0x002a, 0x0001, 0x0002, 1, []byte{1, 2, 3, 4}, false)
//	        fmt.Printf("request sent, session %04x\n", session)
//	    }
//	})
//	app.SetupMsgHandler(func(msg someipc.Message) {
//	    fmt.Println(someipc.HeaderOf(msg))
//	})
//	app.RequestService(0x002a, 0x0001, someipc.MakeVersion(1, 0))
//
// All handlers run on the application's dispatch goroutine, concurrently
// with the caller's own goroutines. No call in this package blocks except
// Stop and Close, which wait until the dispatch goroutine has exited.
//
// The capi subpackage exposes the same operations across a C boundary as a
// c-shared library; the inproc subpackage provides an in-process middleware
// for development and tests.
package someipc
