// Package units allocates texture and uniform-buffer binding slots.
//
// An Allocator hands out fresh units until the backend limit is reached and
// then recycles idle ones. Idle units remember what is bound to them, so a
// caller binding the same resource again can skip the device call.
package units

import (
	"fmt"

	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/gogpu/gpustate/backend"
)

// Entry is a unit handed out by an Allocator.
type Entry struct {
	Unit backend.Unit

	// Current is the resource bound at Unit when the entry was handed out.
	// It is only meaningful when Bound is true.
	Current backend.ScarceIndex
	Bound   bool
}

// Holds reports whether idx is already bound at the entry's unit.
func (e Entry) Holds(idx backend.ScarceIndex) bool {
	return e.Bound && e.Current == idx
}

func (e Entry) String() string {
	if !e.Bound {
		return fmt.Sprintf("unit %d (unbound)", e.Unit)
	}
	return fmt.Sprintf("unit %d (bound %d)", e.Unit, e.Current)
}

// binding is what the idle set stores per unit.
type binding struct {
	index backend.ScarceIndex
	bound bool
}

// Allocator manages the units of one kind for one command buffer session.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	max  backend.Unit
	next backend.Unit

	// idle maps backend.Unit to binding. The least recently idled unit is
	// the oldest entry and is reused first.
	idle *simplelru.LRU
}

// New creates an allocator for units 0 to max-1.
func New(max backend.Unit) *Allocator {
	a := &Allocator{max: max}
	if max > 0 {
		// NewLRU only fails for a non-positive size.
		a.idle, _ = simplelru.NewLRU(int(max), nil)
	}
	return a
}

// Max returns the number of units managed.
func (a *Allocator) Max() backend.Unit { return a.max }

// Fresh returns how many units have been handed out for the first time.
func (a *Allocator) Fresh() backend.Unit { return a.next }

// Get returns a unit. Fresh units are handed out first; once every unit has
// been used, the least recently idled unit is reused. Get fails with
// backend.ErrNoMoreUnits when every unit is in use.
func (a *Allocator) Get() (Entry, error) {
	if a.next < a.max {
		u := a.next
		a.next++
		return Entry{Unit: u}, nil
	}
	if a.idle == nil {
		return Entry{}, backend.ErrNoMoreUnits
	}
	k, v, ok := a.idle.RemoveOldest()
	if !ok {
		return Entry{}, backend.ErrNoMoreUnits
	}
	return entry(k, v), nil
}

// GetFor is like Get but, once fresh units are exhausted, prefers an idle
// unit that already holds idx.
func (a *Allocator) GetFor(idx backend.ScarceIndex) (Entry, error) {
	if a.next >= a.max && a.idle != nil {
		for _, k := range a.idle.Keys() {
			v, _ := a.idle.Peek(k)
			if b := v.(binding); b.bound && b.index == idx {
				a.idle.Remove(k)
				return entry(k, v), nil
			}
		}
	}
	return a.Get()
}

func entry(k, v any) Entry {
	b := v.(binding)
	return Entry{Unit: k.(backend.Unit), Current: b.index, Bound: b.bound}
}

// Idle returns unit to the idle set, recording that idx is bound there.
func (a *Allocator) Idle(unit backend.Unit, idx backend.ScarceIndex) {
	a.put(unit, binding{index: idx, bound: true})
}

// Release returns an entry that was handed out but not used, keeping the
// binding it carried.
func (a *Allocator) Release(e Entry) {
	a.put(e.Unit, binding{index: e.Current, bound: e.Bound})
}

func (a *Allocator) put(unit backend.Unit, b binding) {
	if unit >= a.next {
		panic(fmt.Sprintf("units: unit %d was never handed out", unit))
	}
	a.idle.Add(unit, b)
}

// InUse removes unit from the idle set without touching its binding. It
// reports whether unit was idle.
func (a *Allocator) InUse(unit backend.Unit) bool {
	if a.idle == nil {
		return false
	}
	return a.idle.Remove(unit)
}

// IdleUnits returns the idle units, least recently idled first.
func (a *Allocator) IdleUnits() []backend.Unit {
	if a.idle == nil {
		return nil
	}
	keys := a.idle.Keys()
	units := make([]backend.Unit, len(keys))
	for i, k := range keys {
		units[i] = k.(backend.Unit)
	}
	return units
}

// Bound returns the resource recorded for an idle unit.
func (a *Allocator) Bound(unit backend.Unit) (backend.ScarceIndex, bool) {
	if a.idle == nil {
		return 0, false
	}
	v, ok := a.idle.Peek(unit)
	if !ok {
		return 0, false
	}
	b := v.(binding)
	return b.index, b.bound
}
