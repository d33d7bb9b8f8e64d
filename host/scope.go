package host

import (
	"github.com/wippyai/napi-go/sys"
)

// handleScope owns the handles created during one native entry. Its id is
// also the env token given to native code, so handles and tokens die
// together when the scope closes.
type handleScope struct {
	slots []jsval
	id    uint32
}

func (rt *Runtime) openScope() *handleScope {
	rt.nextScope++
	if rt.nextScope == 0 {
		rt.nextScope = 1
	}
	s := &handleScope{id: rt.nextScope}
	rt.scopes[s.id] = s
	return s
}

func (s *handleScope) envToken() sys.Env { return sys.Env(s.id) }

func (rt *Runtime) closeScope(s *handleScope) {
	delete(rt.scopes, s.id)
	s.slots = nil
}

// push stores v and returns its handle: scope id in the high 32 bits and
// slot + 1 in the low 32 bits.
func (s *handleScope) push(v jsval) sys.Value {
	s.slots = append(s.slots, v)
	return sys.Value(uint64(s.id)<<32 | uint64(len(s.slots)))
}

// resolve reads a handle from any open scope.
func (rt *Runtime) resolve(h sys.Value) (jsval, sys.Status) {
	slot := uint32(h)
	id := uint32(uint64(h) >> 32)
	if h == 0 || slot == 0 {
		return undefinedVal, sys.StatusInvalidArg
	}
	s, ok := rt.scopes[id]
	if !ok {
		return undefinedVal, sys.StatusHandleScopeMismatch
	}
	if int(slot) > len(s.slots) {
		return undefinedVal, sys.StatusInvalidArg
	}
	return s.slots[slot-1], sys.StatusOK
}

func (rt *Runtime) scopeFor(env sys.Env) (*handleScope, bool) {
	if uint64(env) > 0xffffffff {
		return nil, false
	}
	s, ok := rt.scopes[uint32(env)]
	return s, ok
}
