package scopez

import "fmt"

// LazyValue defers construction of a field value until a subscriber is
// actually going to receive it. When the callsite's verdict is never,
// or the span/event is otherwise disabled, the function is not invoked.
//
//	span.Record(f, scopez.Lazy(func() any { return expensiveSummary() }))
type LazyValue struct {
	fn func() any
}

// Lazy wraps a deferred field value.
func Lazy(fn func() any) LazyValue {
	return LazyValue{fn: fn}
}

// resolve evaluates a recorded value, unwrapping lazy values. Called
// only on the enabled path.
func resolve(v any) any {
	if lv, ok := v.(LazyValue); ok {
		if lv.fn == nil {
			return nil
		}
		return lv.fn()
	}
	return v
}

// primitive reports whether a value travels to the subscriber as-is.
// Everything else is forwarded through RecordDebug as a formatted
// representation.
func primitive(v any) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// debugFormat renders the debug representation used by RecordDebug.
func debugFormat(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if e, ok := v.(error); ok {
		return e.Error()
	}
	return fmt.Sprintf("%+v", v)
}
