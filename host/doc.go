// Package host is a pure-Go embedding runtime that implements sys.API.
//
// It plays the role of the JS engine for native modules built on package
// napi: a single control goroutine owns a small object heap, handle scopes,
// one pending exception slot, and a mark/sweep collector that runs
// finalizers. Other goroutines reach it only through threadsafe functions
// or the entry points below, which post work to the control thread.
//
// # Entry Points
//
//	New        - Start a runtime and its control thread
//	LoadModule - Run a native module entry point and bind its exports
//	LoadWasm   - Expose numeric exports of a core wasm module (wazero)
//	Do         - Run native code inside a fresh handle scope
//	Call       - Call "module.export" with Go arguments
//	Collect    - Run the collector
//	Idle       - Wait for threadsafe function queues to drain
//	Close      - Abort bridges, finalize everything, stop
//
// # Handles
//
// Every native entry gets a new handle scope whose id doubles as the env
// token. A handle encodes its scope id in the high 32 bits, so a handle or
// env used after its scope closed is rejected with HandleScopeMismatch or
// InvalidArg.
//
// # Conversions
//
// Call converts Go arguments as follows: nil is null, Undefined is
// undefined, bool and numeric kinds are booleans and numbers, string is a
// string, []byte a buffer, []any an array and map[string]any an object.
// Results convert back the same way; numbers come back as float64,
// functions as Function and promises as *Promise.
package host
