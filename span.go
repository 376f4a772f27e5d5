package scopez

import "context"

// contextKeyType is a private type for context keys to avoid collisions.
type contextKeyType string

const spanKey contextKeyType = "scopez"

// Span represents an interval of execution. Spans are NOT thread-safe -
// do not drive the same Span from multiple goroutines.
//
// A span may be entered and exited several times before it closes; the
// subscriber aggregates durations across enter/exit pairs if it cares.
// Disabled spans (nobody listening) are total no-ops and never reach a
// subscriber.
type Span struct {
	dispatch *Dispatch
	meta     *Metadata
	id       ID
	parent   ID
	interest Interest
	entered  int
	disabled bool
	closed   bool
}

// disabledSpan is the shared placeholder returned when a span is not
// worth constructing. Everything on it is a no-op.
var disabledSpan = &Span{dispatch: noneDispatch, disabled: true}

// NewSpan constructs a span at the given callsite, or the disabled
// placeholder when the cached verdict is never, no subscriber is
// current, or the subscriber's Enabled declines. The parent is whatever
// span is current in ctx at this moment; it is captured once and never
// recomputed.
func NewSpan(ctx context.Context, cs *Callsite) *Span {
	interest := cs.Interest()
	if interest.IsNever() {
		return disabledSpan
	}

	d := CurrentDispatch()
	if !d.Active() {
		return disabledSpan
	}
	if interest.IsSometimes() && !d.enabled(cs.Metadata()) {
		return disabledSpan
	}

	var parent ID
	if p := SpanFromContext(ctx); p != nil {
		parent = p.id
	}
	id := d.newSpan(cs.Metadata(), parent)
	if id == 0 {
		return disabledSpan
	}

	return &Span{
		dispatch: d,
		meta:     cs.Metadata(),
		id:       id,
		parent:   parent,
		interest: interest,
	}
}

// ID returns the subscriber-assigned identifier, or zero if disabled.
func (s *Span) ID() ID { return s.id }

// Metadata returns the callsite descriptor, or nil for the disabled
// placeholder.
func (s *Span) Metadata() *Metadata { return s.meta }

// Parent returns the identifier of the span that was current at
// construction, or zero for a root span.
func (s *Span) Parent() ID { return s.parent }

// Disabled reports whether this span is the no-op placeholder.
func (s *Span) Disabled() bool { return s.disabled }

// Interest returns the verdict captured at construction.
func (s *Span) Interest() Interest { return s.interest }

// Record forwards one field value to the subscriber. No-op on a
// disabled span; lazy values are not evaluated then. Recording a field
// declared by a different callsite's metadata is a programmer error and
// degrades to a counted no-op.
func (s *Span) Record(field Field, value any) {
	if s.disabled || s.closed {
		return
	}
	if field.Metadata() != s.meta {
		misuseCount.Add(1)
		return
	}
	s.dispatch.record(s.id, field, resolve(value))
}

// FollowsFrom records a non-parent causal link to another span.
func (s *Span) FollowsFrom(follows ID) {
	if s.disabled || s.closed || follows == 0 {
		return
	}
	s.dispatch.recordFollowsFrom(s.id, follows)
}

// Enter makes the span current and notifies the subscriber. The
// returned context carries the span for parent capture by anything
// constructed within it; discard it to restore the previous current.
// Pair every Enter with exactly one Exit.
func (s *Span) Enter(ctx context.Context) context.Context {
	if s.disabled || s.closed {
		return ctx
	}
	s.dispatch.enter(s.id)
	s.entered++
	return ContextWithSpan(ctx, s)
}

// Exit notifies the subscriber that the span stopped being current.
// Exiting more times than entered is a programmer error and degrades
// to a counted no-op, keeping the discipline balanced.
func (s *Span) Exit() {
	if s.disabled {
		return
	}
	if s.entered == 0 {
		misuseCount.Add(1)
		return
	}
	s.dispatch.exit(s.id)
	s.entered--
}

// Close releases the span. A span still entered is exited first, so
// the subscriber always sees balanced exit-then-close even when the
// owner unwinds early. Closing twice, or closing the disabled
// placeholder, forwards nothing.
func (s *Span) Close() {
	if s.disabled || s.closed {
		return
	}
	for s.entered > 0 {
		s.dispatch.exit(s.id)
		s.entered--
	}
	s.closed = true
	s.dispatch.closeSpan(s.id)
}

// Scope runs fn with the span entered, guaranteeing the exit on every
// return path including panic unwind.
func (s *Span) Scope(ctx context.Context, fn func(ctx context.Context)) {
	inner := s.Enter(ctx)
	defer s.Exit()
	fn(inner)
}

// ContextWithSpan returns a context carrying span as current, for
// handing a logical task its own current-span chain.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey, span)
}

// SpanFromContext extracts the current span from a context. Returns
// nil if none is present.
func SpanFromContext(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(spanKey).(*Span); ok {
		return s
	}
	return nil
}
