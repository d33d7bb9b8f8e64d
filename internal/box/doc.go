// Package box owns native payloads that have been handed to the host.
//
// Whenever native state becomes host-reachable (a callback closure, a
// threadsafe-function dispatch strategy, a queued call payload, a wrapped
// object payload) it is inserted into an Arena and only the returned
// sys.Pointer crosses the boundary. The host treats the pointer as opaque
// and gives it back to trampolines and finalizers, which recover the payload
// with GetTyped (borrow), Take (take ownership) or Remove (destroy).
//
// # Type Safety
//
// Every slot records the reflect.Type it was boxed as. GetTyped refuses to
// return a payload recorded under a different type, so a pointer can never
// be reinterpreted as something it is not:
//
//	p := arena.Insert(reflect.TypeFor[Counter](), &Counter{})
//
//	v, ok := arena.GetTyped(p, reflect.TypeFor[Counter]()) // ok
//	v, ok = arena.GetTyped(p, reflect.TypeFor[Socket]())   // !ok
//
// # Lifetime
//
// Remove is the destructor: it frees the slot, runs Drop on payloads that
// implement Dropper, and notifies observers. A second Remove of the same
// pointer, or a Remove after Take, reports false, which is what makes finalizers run exactly once.
// Freed slots are reused with a new generation so stale pointers stay
// invalid.
package box
