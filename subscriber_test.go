package scopez

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// captureSubscriber records every notification it receives, in order,
// for asserting on the raw dispatch protocol.
type captureSubscriber struct {
	mu       sync.Mutex
	nextID   ID
	ops      []string
	enabled  func(meta *Metadata) bool
	interest func(meta *Metadata) Interest
}

func newCaptureSubscriber() *captureSubscriber {
	return &captureSubscriber{}
}

func (c *captureSubscriber) log(format string, args ...any) {
	c.mu.Lock()
	c.ops = append(c.ops, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

func (c *captureSubscriber) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.ops))
	copy(out, c.ops)
	return out
}

func (c *captureSubscriber) Enabled(meta *Metadata) bool {
	if c.enabled != nil {
		return c.enabled(meta)
	}
	return true
}

func (c *captureSubscriber) RegisterCallsite(meta *Metadata) Interest {
	if c.interest != nil {
		return c.interest(meta)
	}
	if c.Enabled(meta) {
		return InterestSometimes
	}
	return InterestNever
}

func (c *captureSubscriber) NewSpan(meta *Metadata, parent ID) ID {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	c.log("new_span %s id=%d parent=%d", meta.Name(), id, parent)
	return id
}

func (c *captureSubscriber) Record(id ID, field Field, value any) {
	c.log("record id=%d %s=%v", id, field.Name(), value)
}

func (c *captureSubscriber) RecordDebug(id ID, field Field, debug string) {
	c.log("record_debug id=%d %s=%s", id, field.Name(), debug)
}

func (c *captureSubscriber) RecordFollowsFrom(id, follows ID) {
	c.log("follows_from id=%d follows=%d", id, follows)
}

func (c *captureSubscriber) Enter(id ID) {
	c.log("enter id=%d", id)
}

func (c *captureSubscriber) Exit(id ID) {
	c.log("exit id=%d", id)
}

func (c *captureSubscriber) ObserveEvent(event *Event) {
	msg, _ := event.Message()
	c.log("observe_event id=%d message=%q", event.ID(), msg)
}

func (c *captureSubscriber) CloseSpan(id ID) {
	c.log("close id=%d", id)
}

// countingCell is a StateCell that counts accesses, standing in for an
// instrumented cell under a concurrency checker.
type countingCell struct {
	mu     sync.Mutex
	v      uint32
	loads  int
	stores int
}

func (c *countingCell) Load() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	return c.v
}

func (c *countingCell) Store(v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	c.v = v
}

// gatedCell parks the goroutine performing an armed Store until
// released, so tests can hold a recomputation pass mid-walk while
// another scope change overlaps it.
type gatedCell struct {
	inner   StateCell
	armed   atomic.Bool
	parked  chan struct{}
	release chan struct{}
}

func newGatedCell() *gatedCell {
	return &gatedCell{
		inner:   NewAtomicCell(),
		parked:  make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (c *gatedCell) Load() uint32 { return c.inner.Load() }

func (c *gatedCell) Store(v uint32) {
	if c.armed.CompareAndSwap(true, false) {
		c.parked <- struct{}{}
		<-c.release
	}
	c.inner.Store(v)
}
