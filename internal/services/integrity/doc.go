// Package integrity runs the per-connection warden exchange: it derives the
// session keys, delivers the platform module, verifies the seed challenge and
// then drives periodic integrity checks until the caller closes the
// connection or a verification fails.
//
// An Engine is owned by exactly one connection and is not safe for concurrent
// use. Callers feed it inbound frames (HandleData) and elapsed time (Tick) from
// the same goroutine; every reply is written through domain.Connection.
package integrity
