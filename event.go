package scopez

import "context"

// FieldValue pairs one declared field with the value recorded for it.
type FieldValue struct {
	Field Field
	Value any
}

// Event is a point-in-time diagnostic record. It rides the span
// construction path but is never entered: created, fields recorded,
// observed, and immediately closed.
//
// Unlike a span, an event carries its recorded values and follows-from
// links so the subscriber receives them as one unit in ObserveEvent.
type Event struct {
	dispatch *Dispatch
	meta     *Metadata
	id       ID
	parent   ID
	values   []FieldValue
	follows  []ID
	disabled bool
	observed bool
}

var disabledEvent = &Event{dispatch: noneDispatch, disabled: true}

// NewEvent constructs an event at the given callsite, or the disabled
// placeholder under the same conditions as NewSpan. The parent is the
// span current in ctx. Record fields and follows-from links, then call
// Observe; Emit does all of that in one call for the textual case.
func NewEvent(ctx context.Context, cs *Callsite) *Event {
	interest := cs.Interest()
	if interest.IsNever() {
		return disabledEvent
	}

	d := CurrentDispatch()
	if !d.Active() {
		return disabledEvent
	}
	if interest.IsSometimes() && !d.enabled(cs.Metadata()) {
		return disabledEvent
	}

	var parent ID
	if p := SpanFromContext(ctx); p != nil {
		parent = p.id
	}
	id := d.newSpan(cs.Metadata(), parent)
	if id == 0 {
		return disabledEvent
	}

	return &Event{
		dispatch: d,
		meta:     cs.Metadata(),
		id:       id,
		parent:   parent,
	}
}

// ID returns the subscriber-assigned identifier, or zero if disabled.
func (e *Event) ID() ID { return e.id }

// Metadata returns the callsite descriptor, or nil for the disabled
// placeholder.
func (e *Event) Metadata() *Metadata { return e.meta }

// Parent returns the identifier of the span that was current at
// construction, or zero.
func (e *Event) Parent() ID { return e.parent }

// Disabled reports whether this event is the no-op placeholder.
func (e *Event) Disabled() bool { return e.disabled }

// Record forwards one field value and retains it for ObserveEvent.
// Same rules as Span.Record.
func (e *Event) Record(field Field, value any) {
	if e.disabled || e.observed {
		return
	}
	if field.Metadata() != e.meta {
		misuseCount.Add(1)
		return
	}
	v := resolve(value)
	e.values = append(e.values, FieldValue{Field: field, Value: v})
	e.dispatch.record(e.id, field, v)
}

// FollowsFrom records a non-parent causal link, such as a handoff
// between tasks, and retains it for ObserveEvent.
func (e *Event) FollowsFrom(follows ID) {
	if e.disabled || e.observed || follows == 0 {
		return
	}
	e.follows = append(e.follows, follows)
	e.dispatch.recordFollowsFrom(e.id, follows)
}

// Observe delivers the event to the subscriber and closes it. Safe to
// call once; anything after is a no-op.
func (e *Event) Observe() {
	if e.disabled || e.observed {
		return
	}
	e.observed = true
	e.dispatch.observeEvent(e)
	e.dispatch.closeSpan(e.id)
}

// Values returns the recorded field values in recording order.
func (e *Event) Values() []FieldValue {
	out := make([]FieldValue, len(e.values))
	copy(out, e.values)
	return out
}

// Follows returns the recorded follows-from links.
func (e *Event) Follows() []ID {
	out := make([]ID, len(e.follows))
	copy(out, e.follows)
	return out
}

// Message returns the value recorded for the implicit message field of
// a textual event.
func (e *Event) Message() (string, bool) {
	for _, fv := range e.values {
		if fv.Field.Name() == messageFieldName {
			s, ok := fv.Value.(string)
			return s, ok
		}
	}
	return "", false
}

// Emit fires a textual event in one call: the message binds to the
// implicit message field and values bind positionally to the remaining
// declared fields, in declared order. When the callsite's verdict is
// never this returns before touching anything, so lazy values are
// never built.
func Emit(ctx context.Context, cs *Callsite, message string, values ...any) {
	if cs.Interest().IsNever() {
		return
	}
	ev := NewEvent(ctx, cs)
	if ev.disabled {
		return
	}

	fields := cs.Metadata().Fields()
	next := 0
	for i := 0; i < fields.Len(); i++ {
		f, _ := fields.At(i)
		if f.Name() == messageFieldName {
			ev.Record(f, message)
			continue
		}
		if next >= len(values) {
			break
		}
		ev.Record(f, values[next])
		next++
	}
	if next < len(values) {
		// More values than declared fields.
		misuseCount.Add(1)
	}
	ev.Observe()
}
