// Package napi is a safe Go layer over a native extension ABI.
//
// An embedding runtime (a garbage-collected, single-threaded, exception
// throwing host such as a JS engine) calls into native code through the raw
// declarations in package sys. This package turns those untyped handles and
// status codes into typed values, explicit errors and owned resources.
//
// # Architecture Overview
//
//	napi/                Safe layer: Env, values, casting, callbacks, bridges
//	├── sys/             Raw ABI declarations (handles, statuses, API)
//	├── errors/          Structured error types (Phase, Kind, Status)
//	├── internal/box/    Arena owning native payloads behind opaque pointers
//	├── host/            Pure-Go reference embedding runtime
//	├── examples/addon/  Example native module
//	└── cmd/napi-run/    CLI to load modules and call exports
//
// # Scope Tokens
//
// Every boundary call happens under an Env. Values remember the Env that
// produced them and every operation asserts that the Env passed in is the
// same one; a handle smuggled out of its call fails with ErrScopeMismatch
// instead of touching freed host memory.
//
// # Quick Start
//
//	func add(env napi.Env, info *napi.CallbackInfo) (napi.Value, error) {
//	    a, err := napi.ArgAs[napi.Number](env, info, 0)
//	    if err != nil {
//	        return nil, err
//	    }
//	    b, err := napi.ArgAs[napi.Number](env, info, 1)
//	    if err != nil {
//	        return nil, err
//	    }
//	    x, _ := a.Float64(env)
//	    y, _ := b.Float64(env)
//	    return napi.CreateNumber(env, x+y)
//	}
//
//	var Module = napi.NewModule("addon", func(env napi.Env, exports napi.Object) (napi.Object, error) {
//	    return exports, exports.SetFunction(env, "add", add)
//	})
//
// # Errors
//
// Three failure classes exist: a boundary call failed with a status, the
// host already holds a pending exception, or a local type check failed.
// Errors returned from a Callback are thrown into the host by the
// trampoline, except pending exceptions, which are left as they are.
//
// # Threads
//
// Values are bound to the host's control thread. Only a ThreadsafeFunction
// and a Deferred may be handed to other goroutines.
package napi
