package scopez

import "sync"

// Callsite is the process-lifetime identity of one instrumentation
// point. A given instrumentation point maps to exactly one Callsite for
// the life of the process; declare one as a package-level variable next
// to the code it instruments:
//
//	var querySite = scopez.NewCallsite("db.query", "myapp/store",
//		scopez.LevelDebug, []string{"table", "rows"})
//
// The callsite holds the cached Interest verdict. Registration with the
// process-wide registry is lazy and idempotent: it happens at most once,
// the first time the callsite is exercised.
type Callsite struct {
	meta     *Metadata
	interest StateCell
	once     sync.Once
}

// CallsiteOption adjusts callsite construction.
type CallsiteOption func(*Callsite)

// WithStateCell substitutes the backing for the callsite's interest
// word. Used by concurrency-checking harnesses; production callsites
// use the default atomic cell.
func WithStateCell(cell StateCell) CallsiteOption {
	return func(c *Callsite) {
		c.interest = cell
	}
}

// NewCallsite constructs a callsite and its immutable Metadata. The
// name, target, level and ordered field names must not vary across
// separate calls attributed to the same instrumentation point.
func NewCallsite(name, target string, level Level, fields []Key, opts ...CallsiteOption) *Callsite {
	c := &Callsite{
		interest: NewAtomicCell(),
	}
	declared := make([]Key, len(fields))
	copy(declared, fields)
	c.meta = &Metadata{
		name:     name,
		target:   target,
		level:    level,
		fields:   declared,
		callsite: c,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEventCallsite constructs a callsite for a textual event. The
// implicit "message" field is prepended to the declared field list.
func NewEventCallsite(name, target string, level Level, fields []Key, opts ...CallsiteOption) *Callsite {
	declared := make([]Key, 0, len(fields)+1)
	declared = append(declared, messageFieldName)
	declared = append(declared, fields...)
	return NewCallsite(name, target, level, declared, opts...)
}

// messageFieldName is the implicit leading field of textual events.
const messageFieldName = "message"

// Metadata returns the callsite's static descriptor.
func (c *Callsite) Metadata() *Metadata { return c.meta }

// Register adds the callsite to the process-wide registry. Safe to call
// any number of times; only the first call has an effect, and that call
// also computes the callsite's initial Interest from the current
// subscriber. Interest and the span/event constructors register
// implicitly, so explicit calls are only needed to warm up.
func (c *Callsite) Register() {
	c.once.Do(func() {
		registerCallsite(c)
	})
}

// Interest returns the cached verdict for this callsite. The common
// case is one atomic load.
func (c *Callsite) Interest() Interest {
	c.Register()
	return Interest(c.interest.Load())
}

// AddInterest folds one subscriber's contribution into the cached
// verdict. Upgrades only; see Interest for the precedence rule. Called
// by the dispatch layer during a recomputation pass.
func (c *Callsite) AddInterest(contribution Interest) {
	current := Interest(c.interest.Load())
	next := combine(current, contribution)
	if next != current {
		c.interest.Store(uint32(next))
	}
}

// RemoveInterest resets the cached verdict to never, ahead of a
// recomputation pass rebuilding the aggregate from scratch.
func (c *Callsite) RemoveInterest() {
	c.interest.Store(uint32(InterestNever))
}
