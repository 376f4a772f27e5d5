package scopez

// ID is a span or event identifier assigned by the subscriber that
// observed its creation. The core treats it as opaque. The zero ID is
// invalid and marks disabled records.
type ID uint64

// Subscriber is the pluggable consumer the core dispatches to. All
// methods may be called from any goroutine; implementations must be
// safe for concurrent use.
//
// A panicking subscriber does not crash the instrumented program: the
// core recovers and reports through SetPanicHook.
type Subscriber interface {
	// Enabled is the per-event check consulted when the cached
	// verdict is sometimes. It is skipped when the verdict is always.
	Enabled(meta *Metadata) bool

	// NewSpan assigns an identifier for a span or event about to be
	// recorded. parent is the identifier of the span that was current
	// where the record was constructed, or zero for a root.
	NewSpan(meta *Metadata, parent ID) ID

	// Record forwards one primitive field value.
	Record(id ID, field Field, value any)

	// RecordDebug forwards the formatted representation of a field
	// value that has no primitive encoding.
	RecordDebug(id ID, field Field, debug string)

	// RecordFollowsFrom notes a non-parent causal link: id causally
	// depends on follows. Advisory; the core does not filter on it.
	RecordFollowsFrom(id ID, follows ID)

	// Enter and Exit bracket the intervals a span is current. A span
	// may enter and exit several times before closing; exits are
	// always balanced, including on unwind.
	Enter(id ID)
	Exit(id ID)

	// ObserveEvent delivers a point-in-time record after its fields
	// and follows-from links have been forwarded.
	ObserveEvent(event *Event)

	// CloseSpan reports that the last owner released the span. No
	// further notifications follow for this id.
	CloseSpan(id ID)
}

// CallsiteRegistrar is an optional Subscriber capability. When a new
// callsite registers, or the active subscriber changes, a subscriber
// implementing it hands back a precise Interest verdict per callsite.
// Subscribers without it contribute sometimes when Enabled says true
// and never otherwise.
type CallsiteRegistrar interface {
	RegisterCallsite(meta *Metadata) Interest
}
