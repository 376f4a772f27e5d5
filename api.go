// Package scopez provides a minimal, primitive structured diagnostics core.
//
// scopez routes spans (intervals of execution with parentage) and events
// (point-in-time records) from instrumented code to pluggable subscribers,
// without the cost being paid when no subscriber cares. It is the engine
// layer only: what to keep, where to send it, and how to format it are the
// subscriber's business.
//
// Core Components:.
//   - Callsite: process-lifetime identity for one instrumentation point.
//   - Metadata: static descriptor for a callsite (name, target, level, fields).
//   - Interest: tri-state cached verdict deciding whether a callsite records.
//   - Span: a recorded interval with enter/exit lifecycle and field data.
//   - Event: a point-in-time record that closes immediately.
//   - Subscriber: the consumer notified of span/event lifecycle and fields.
//   - Dispatch: the dynamically scoped handle locating the current subscriber.
//
// Basic Usage:.
//
//	var reqSite = scopez.NewCallsite("request", "myapp/server",
//		scopez.LevelInfo, []string{"method", "path"})
//
//	collector := scopez.NewCollector("requests", 1024)
//	scopez.WithDefault(collector, func() {
//		ctx := context.Background()
//		span := scopez.NewSpan(ctx, reqSite)
//		method, _ := reqSite.Metadata().Fields().Field("method")
//		span.Record(method, "GET")
//		span.Scope(ctx, func(ctx context.Context) {
//			// Child spans created here see span as their parent.
//		})
//		span.Close()
//	})
//
// Cost Model:.
//
// A callsite nobody listens to costs one atomic load and a branch per
// firing. Field values wrapped in Lazy are never built when the verdict
// is never. The full registry walk that recomputes verdicts runs only
// when the active subscriber changes, not per event.
//
// Thread Safety:.
//
// Callsites, the registry, and Dispatch scopes are safe for concurrent
// use. Spans themselves are NOT thread-safe - do not drive the same Span
// from multiple goroutines simultaneously. The current span travels by
// context.Context, one chain per logical task.
//
// Failure Isolation:.
//
// Instrumentation must never crash the program it observes. Subscriber
// panics are recovered and reported through SetPanicHook; undeclared
// fields and unbalanced exits degrade to counted no-ops.
package scopez

// Key is the name of a field declared by a callsite.
type Key = string
