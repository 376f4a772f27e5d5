package scopez

// Interest is the cached filtering verdict for a callsite.
//
// It answers "should this callsite's span or event be constructed at
// all" ahead of any allocation. The verdict is recomputed whenever the
// active subscriber set changes; between recomputations a callsite
// firing costs a single atomic load.
type Interest uint8

const (
	// InterestNever means no active subscriber wants this callsite.
	// Nothing is constructed and no subscriber is contacted.
	InterestNever Interest = iota

	// InterestSometimes means the subscriber's static check said maybe.
	// The subscriber's Enabled is consulted again at record time.
	InterestSometimes

	// InterestAlways means record unconditionally. The per-event
	// Enabled check is skipped entirely.
	InterestAlways
)

// IsNever reports whether the verdict is never.
func (i Interest) IsNever() bool { return i == InterestNever }

// IsSometimes reports whether the verdict is sometimes.
func (i Interest) IsSometimes() bool { return i == InterestSometimes }

// IsAlways reports whether the verdict is always.
func (i Interest) IsAlways() bool { return i == InterestAlways }

// String returns the verdict name for diagnostics.
func (i Interest) String() string {
	switch i {
	case InterestNever:
		return "never"
	case InterestSometimes:
		return "sometimes"
	case InterestAlways:
		return "always"
	default:
		return "unknown"
	}
}

// combine resolves a new contribution against the current cached state.
//
// Precedence: a never contribution changes nothing (another subscriber
// in the same pass may already have contributed a stronger verdict),
// sometimes upgrades never, always wins unconditionally. Within one
// recomputation pass the cached state is monotone non-decreasing.
func combine(current, contribution Interest) Interest {
	switch {
	case contribution.IsNever():
		return current
	case contribution.IsSometimes() && current.IsNever():
		return InterestSometimes
	case contribution.IsAlways():
		return InterestAlways
	default:
		return current
	}
}
