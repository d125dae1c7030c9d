// Package middleware declares the contract of the underlying SOME/IP
// middleware as seen by the binding layer.
//
// The binding layer in the parent package is pure glue: it owns no protocol
// state machine, no service discovery and no transport. All of that lives
// behind the interfaces declared here. A production deployment plugs in a
// middleware implementation backed by a real SOME/IP stack; the inproc
// package provides an in-process implementation for development and tests.
//
// The identifier types and enumeration values in this package mirror the
// SOME/IP wire protocol exactly. Their widths and values must not change:
// the capi package exposes them across a C boundary where struct layout and
// bit-for-bit enum compatibility are part of the contract.
package middleware
