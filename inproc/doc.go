// Package inproc provides an in-process implementation of the middleware
// contract, standing in for an external SOME/IP stack in examples and
// tests.
//
// All applications created from one Runtime share an in-memory watermill
// pub/sub bus. Requests travel on a per-service topic to the offering
// application, responses on a per-client topic back to the requester, and
// notifications on per-eventgroup topics to every subscriber. Availability
// is fanned out directly to the applications that requested a service.
//
// Each application runs a single dispatch loop: every handler, regardless
// of which topic the triggering message arrived on, is invoked from the
// goroutine that called Start. This mirrors the dispatch-thread model of a
// real middleware and is what the parent package's Application handle
// relies on.
//
// The runtime is a simulation of middleware behavior, not a SOME/IP stack:
// nothing here touches a network or speaks the wire protocol.
package inproc
