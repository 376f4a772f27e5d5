package scopez

import "sync/atomic"

// StateCell is the one mutable word every callsite owns.
//
// All shared mutable state in the engine funnels through this
// abstraction so that an instrumented implementation can be substituted
// under an exhaustive concurrency checker. The production cell is a
// plain atomic; no ordering is required beyond a callsite's own state
// being observed after it was last written, since writes only happen
// during a recomputation pass serialized by the dispatch lock.
type StateCell interface {
	Load() uint32
	Store(v uint32)
}

// atomicCell is the production StateCell.
type atomicCell struct {
	v atomic.Uint32
}

func (c *atomicCell) Load() uint32   { return c.v.Load() }
func (c *atomicCell) Store(v uint32) { c.v.Store(v) }

// NewAtomicCell returns the production StateCell backing.
func NewAtomicCell() StateCell {
	return new(atomicCell)
}
