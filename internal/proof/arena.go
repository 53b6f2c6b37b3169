package proof

import "slices"

// slot is one arena cell. gen is bumped on release so handles issued for a
// previous occupant stop resolving.
type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// arena stores values addressed by generation-checked handles and recycles
// released slots.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
}

func (a *arena[T]) alloc(v T) handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.live = true
		s.val = v
		return handle{idx: idx, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, live: true, val: v})
	return handle{idx: uint32(len(a.slots) - 1), gen: 1}
}

func (a *arena[T]) get(h handle) (*T, bool) {
	if int(h.idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.idx]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return &s.val, true
}

func (a *arena[T]) release(h handle) {
	if _, ok := a.get(h); !ok {
		return
	}
	s := &a.slots[h.idx]
	var zero T
	s.val = zero
	s.live = false
	s.gen++
	a.free = append(a.free, h.idx)
}

// clone copies the arena, passing every live value through cp. Slot indices
// and generations are kept, so existing handles resolve in the copy.
func (a *arena[T]) clone(cp func(T) T) arena[T] {
	out := arena[T]{slots: slices.Clone(a.slots), free: slices.Clone(a.free)}
	for i := range out.slots {
		if out.slots[i].live {
			out.slots[i].val = cp(out.slots[i].val)
		}
	}
	return out
}
