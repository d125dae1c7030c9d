//go:build cgo

// Package main provides the C API of someipc, built as a shared library
// for use from C applications and foreign-language bindings.
//
// # Build Instructions
//
// To build as a C shared library:
//
//	go build -buildmode=c-shared -o libsomeipc.so ./capi/
//
// This generates:
//   - libsomeipc.so: the shared library
//   - libsomeipc.h: the generated function declarations
//
// The boundary types (enums, handle typedefs, struct message_header,
// callback typedefs) live in someipc.h, which users include alongside the
// generated header.
//
// # C API Usage
//
//	#include "someipc.h"
//	#include "libsomeipc.h"
//
//	application_t app = create_application("client");
//	if (app == NULL) {
//	    fprintf(stderr, "application creation failed\n");
//	    return 1;
//	}
//	application_register_handlers(app, on_state, on_message, ctx);
//	application_request_service(app, 0x1234, 0x0001, 1, 0, on_avail, ctx);
//
//	// ... once available:
//	session_id session = application_send_request(app, 0x1234, 0x0001,
//	                                              0x0421, 1, false, data, len);
//
//	// Cleanup
//	application_delete(app);
//
// # Handles
//
// All objects cross the boundary as opaque handles. A handle is a
// generation-checked slot reference: deleting an object invalidates its
// handle, and any later use of the stale handle is detected, logged and
// ignored rather than reaching freed memory. Handles are not addresses
// and must never be dereferenced from C.
//
// # Callback Bridging
//
// Registered C function pointers are invoked from the application's
// dispatch goroutine, one callback at a time per application. The target
// pointer given at registration is passed through unchanged.
//
// The payload handle passed to a message handler is owned by the receiver
// and must be released with payload_destroy. The message_header's data
// pointer aliases that payload and is only valid until then.
//
// # Enum Translation
//
// message_type and return_code cross the boundary with their SOME/IP wire
// values preserved bit-for-bit. A value outside the defined enum range is
// a contract violation and terminates the process.
package main
