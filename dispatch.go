package scopez

import (
	"sync"
	"sync/atomic"
)

// Dispatch is a cheap handle to the subscriber currently receiving
// notifications. Handles are immutable; the dynamic part is which
// handle is current, managed as a process-wide scoped stack plus an
// optional base default.
//
// Every forwarding call is panic-isolated: a subscriber that panics is
// recovered and reported through SetPanicHook, never allowed to unwind
// into the instrumented program.
type Dispatch struct {
	subscriber Subscriber
}

// noneDispatch is the handle observed when no subscriber was ever
// installed. Every forward through it is a no-op.
var noneDispatch = &Dispatch{}

var dispatch = struct {
	current atomic.Pointer[Dispatch]
	mu      sync.Mutex
	stack   []*Dispatch
	base    *Dispatch
}{}

var (
	misuseCount atomic.Uint64
	panicHook   atomic.Pointer[func(r interface{})]
)

// CurrentDispatch returns the handle for the innermost WithDefault
// scope, falling back to the SetDefault base, falling back to a no-op
// handle. One atomic load.
func CurrentDispatch() *Dispatch {
	if d := dispatch.current.Load(); d != nil {
		return d
	}
	return noneDispatch
}

// Active reports whether this handle carries a subscriber.
func (d *Dispatch) Active() bool { return d.subscriber != nil }

// Subscriber returns the subscriber behind this handle, or nil.
func (d *Dispatch) Subscriber() Subscriber { return d.subscriber }

// WithDefault installs sub as the current default subscriber for the
// dynamic duration of body, then restores the previous default. Each
// transition triggers an interest recomputation pass over the callsite
// registry, so callsites nobody listens to stay on the single-load
// fast path.
//
// Nested calls compose; the innermost scope wins. Only the topmost
// subscriber is evaluated during a recomputation pass: the model is
// one current subscriber at a time, not broadcast. Fan-out wants a Tee.
func WithDefault(sub Subscriber, body func()) {
	d := &Dispatch{subscriber: sub}
	pushDispatch(d)
	defer popDispatch(d)
	body()
}

// SetDefault installs the process-wide base subscriber observed when
// no WithDefault scope is active. Unlike WithDefault it does not
// restore anything; intended for main(), once, at startup.
func SetDefault(sub Subscriber) {
	dispatch.mu.Lock()
	dispatch.base = &Dispatch{subscriber: sub}
	dispatch.current.Store(topDispatchLocked())
	dispatch.mu.Unlock()
	rebuildInterest()
}

func pushDispatch(d *Dispatch) {
	dispatch.mu.Lock()
	dispatch.stack = append(dispatch.stack, d)
	dispatch.current.Store(d)
	dispatch.mu.Unlock()
	rebuildInterest()
}

// popDispatch removes d from the scope stack. d is normally the top;
// if a misnested scope left it buried, the stack self-corrects by
// removing d wherever it sits and counting the misuse.
func popDispatch(d *Dispatch) {
	dispatch.mu.Lock()
	n := len(dispatch.stack)
	switch {
	case n > 0 && dispatch.stack[n-1] == d:
		dispatch.stack = dispatch.stack[:n-1]
	default:
		misuseCount.Add(1)
		for i := n - 1; i >= 0; i-- {
			if dispatch.stack[i] == d {
				dispatch.stack = append(dispatch.stack[:i], dispatch.stack[i+1:]...)
				break
			}
		}
	}
	dispatch.current.Store(topDispatchLocked())
	dispatch.mu.Unlock()
	rebuildInterest()
}

// topDispatchLocked resolves the current handle. Caller holds the
// dispatch lock.
func topDispatchLocked() *Dispatch {
	if n := len(dispatch.stack); n > 0 {
		return dispatch.stack[n-1]
	}
	if dispatch.base != nil {
		return dispatch.base
	}
	return nil
}

// SetPanicHook sets the function called when a subscriber panics
// during a forwarded notification. The default is to swallow the
// panic: instrumentation must never take the program down.
func SetPanicHook(hook func(r interface{})) {
	panicHook.Store(&hook)
}

// MisuseCount returns how many programmer errors the engine has
// self-corrected: misnested dispatch scopes, unbalanced span exits,
// fields recorded against foreign metadata.
func MisuseCount() uint64 {
	return misuseCount.Load()
}

// safely runs one forwarded notification with panic isolation.
func safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if h := panicHook.Load(); h != nil && *h != nil {
				(*h)(r)
			}
		}
	}()
	fn()
}

// registerCallsite translates the subscriber's answer for one callsite
// into an Interest contribution.
func (d *Dispatch) registerCallsite(meta *Metadata) Interest {
	if d.subscriber == nil {
		return InterestNever
	}
	verdict := InterestNever
	safely(func() {
		if reg, ok := d.subscriber.(CallsiteRegistrar); ok {
			verdict = reg.RegisterCallsite(meta)
			return
		}
		if d.subscriber.Enabled(meta) {
			verdict = InterestSometimes
		}
	})
	return verdict
}

func (d *Dispatch) enabled(meta *Metadata) bool {
	if d.subscriber == nil {
		return false
	}
	ok := false
	safely(func() { ok = d.subscriber.Enabled(meta) })
	return ok
}

func (d *Dispatch) newSpan(meta *Metadata, parent ID) ID {
	if d.subscriber == nil {
		return 0
	}
	var id ID
	safely(func() { id = d.subscriber.NewSpan(meta, parent) })
	return id
}

func (d *Dispatch) record(id ID, field Field, value any) {
	if d.subscriber == nil {
		return
	}
	safely(func() {
		if primitive(value) {
			d.subscriber.Record(id, field, value)
			return
		}
		d.subscriber.RecordDebug(id, field, debugFormat(value))
	})
}

func (d *Dispatch) recordFollowsFrom(id, follows ID) {
	if d.subscriber == nil {
		return
	}
	safely(func() { d.subscriber.RecordFollowsFrom(id, follows) })
}

func (d *Dispatch) enter(id ID) {
	if d.subscriber == nil {
		return
	}
	safely(func() { d.subscriber.Enter(id) })
}

func (d *Dispatch) exit(id ID) {
	if d.subscriber == nil {
		return
	}
	safely(func() { d.subscriber.Exit(id) })
}

func (d *Dispatch) observeEvent(event *Event) {
	if d.subscriber == nil {
		return
	}
	safely(func() { d.subscriber.ObserveEvent(event) })
}

func (d *Dispatch) closeSpan(id ID) {
	if d.subscriber == nil {
		return
	}
	safely(func() { d.subscriber.CloseSpan(id) })
}
