// Package sys declares the raw native extension ABI supplied by an embedding
// runtime.
//
// Everything here is untyped: handles are opaque 64-bit integers, every call
// returns a Status, and native data crosses the boundary as an opaque Pointer.
// The declarations are fixed by the host and versioned with it; this package
// only gives them Go names so that the safe layer in the module root and any
// host implementation agree on one shape.
//
// # Handles
//
//	Env                - per-call scope token
//	Value              - reference into host-managed memory
//	CallbackInfo       - per-invocation record of a host->native call
//	Deferred           - settlement capability paired with a promise
//	ThreadsafeFunction - reference-counted cross-thread call bridge
//	Pointer            - opaque native data, never dereferenced by the host
//
// The zero value of every handle type is the null handle.
//
// # Threading
//
// All API methods must be called on the host's control thread with an active
// Env, except CallThreadsafeFunction, AcquireThreadsafeFunction and
// ReleaseThreadsafeFunction which may be called from any goroutine.
package sys
