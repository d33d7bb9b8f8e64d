package box

import (
	"reflect"
	"sync"

	"github.com/wippyai/napi-go/sys"
)

// Dropper is optionally implemented by payloads that need cleanup when their
// box is destroyed.
type Dropper interface {
	Drop()
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a box lifecycle event.
type Event struct {
	Value   any
	Type    reflect.Type
	Pointer sys.Pointer
	Kind    EventType
}

// Observer receives notifications about box lifecycle events.
type Observer interface {
	OnBoxEvent(Event)
}

type slot struct {
	value any
	typ   reflect.Type
	gen   uint32
	valid bool
}

// Arena maps opaque pointers to boxed native payloads. It is safe for
// concurrent use; threadsafe-function payloads are boxed on worker
// goroutines and unboxed on the host's control thread.
type Arena struct {
	slots     []slot
	freeList  []uint32
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
	live      int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		slots:    make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// pointer layout: generation in the high 32 bits, slot index + 1 in the low.
func encode(idx, gen uint32) sys.Pointer {
	return sys.Pointer(uint64(gen)<<32 | uint64(idx+1))
}

func decode(p sys.Pointer) (idx, gen uint32, ok bool) {
	low := uint32(p)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(uint64(p) >> 32), true
}

// Insert boxes value under typ and returns its pointer.
func (a *Arena) Insert(typ reflect.Type, value any) sys.Pointer {
	a.mu.Lock()
	a.live++
	var p sys.Pointer
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.value, s.typ, s.valid = value, typ, true
		p = encode(idx, s.gen)
	} else {
		a.slots = append(a.slots, slot{value: value, typ: typ, valid: true})
		p = encode(uint32(len(a.slots)-1), 0)
	}
	a.mu.Unlock()

	a.notify(Event{Kind: EventCreated, Pointer: p, Type: typ, Value: value})
	return p
}

func (a *Arena) lookup(p sys.Pointer) (*slot, bool) {
	idx, gen, ok := decode(p)
	if !ok || int(idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx]
	if !s.valid || s.gen != gen {
		return nil, false
	}
	return s, true
}

// GetTyped borrows a payload only if it was boxed under typ.
func (a *Arena) GetTyped(p sys.Pointer, typ reflect.Type) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(p)
	if !ok || s.typ != typ {
		return nil, false
	}
	return s.value, true
}

// TypeOf returns the type a payload was boxed under.
func (a *Arena) TypeOf(p sys.Pointer) (reflect.Type, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(p)
	if !ok {
		return nil, false
	}
	return s.typ, true
}

// Remove destroys a box, drops its payload and returns it. Only the first
// Remove or Take of a pointer succeeds.
func (a *Arena) Remove(p sys.Pointer) (any, bool) {
	value, ok := a.release(p)
	if ok {
		if d, isDropper := value.(Dropper); isDropper {
			d.Drop()
		}
	}
	return value, ok
}

// Take removes a box without dropping its payload. Ownership passes to the
// caller.
func (a *Arena) Take(p sys.Pointer) (any, bool) {
	return a.release(p)
}

func (a *Arena) release(p sys.Pointer) (any, bool) {
	a.mu.Lock()
	s, ok := a.lookup(p)
	if !ok {
		a.mu.Unlock()
		return nil, false
	}
	value, typ := s.value, s.typ
	*s = slot{gen: s.gen}
	idx, _, _ := decode(p)
	a.freeList = append(a.freeList, idx)
	a.live--
	a.mu.Unlock()

	a.notify(Event{Kind: EventDropped, Pointer: p, Type: typ, Value: value})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena) Subscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// Unsubscribe removes an observer.
func (a *Arena) Unsubscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	for i, obs := range a.observers {
		if obs == o {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live boxes.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Each iterates over live boxes. fn must not call back into the arena.
func (a *Arena) Each(fn func(sys.Pointer, reflect.Type, any) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, s := range a.slots {
		if s.valid {
			if !fn(encode(uint32(i), s.gen), s.typ, s.value) {
				break
			}
		}
	}
}

func (a *Arena) notify(e Event) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		o.OnBoxEvent(e)
	}
}
