package scopez

import "sync"

// The process-wide callsite registry. Append-only, populated lazily as
// callsites are first exercised, never torn down before process exit.
// The registration lock is never taken on the emit hot path; emitting
// reads only the callsite's own interest cell.
var registry = struct {
	mu    sync.Mutex
	sites []*Callsite
}{}

// rebuildMu serializes recomputation passes. Passes triggered by
// overlapping scope changes must not interleave: a stale pass finishing
// after a newer one would overwrite the verdicts the newer scope just
// installed and silence its subscriber for the rest of the scope.
// Reading the current dispatch under the same lock as the walk makes
// the last pass the one that reflects the latest scope change.
var rebuildMu sync.Mutex

// registerCallsite appends a callsite and computes its initial verdict
// from the current subscriber. Reached only through Callsite.Register's
// once guard, so a callsite is appended at most once.
//
// The initial verdict is deliberately computed outside rebuildMu: a
// subscriber whose registration path exercises new callsites would
// otherwise self-deadlock mid-walk. A verdict computed against a
// dispatch that changes concurrently is corrected by that change's own
// pass.
func registerCallsite(c *Callsite) {
	registry.mu.Lock()
	registry.sites = append(registry.sites, c)
	registry.mu.Unlock()

	c.RemoveInterest()
	c.AddInterest(CurrentDispatch().registerCallsite(c.Metadata()))
}

// rebuildInterest recomputes every registered callsite's verdict
// against the current subscriber. Runs on every dispatch scope change;
// O(callsites), never per event.
//
// The walk runs outside the registry lock so that a subscriber whose
// Enabled path itself exercises new callsites cannot deadlock.
// Emission concurrent with the walk may transiently observe a stale
// verdict for some callsites; worst case is one extra or one fewer
// record around the moment interest changes.
func rebuildInterest() {
	rebuildMu.Lock()
	defer rebuildMu.Unlock()

	registry.mu.Lock()
	sites := make([]*Callsite, len(registry.sites))
	copy(sites, registry.sites)
	registry.mu.Unlock()

	d := CurrentDispatch()
	for _, c := range sites {
		c.RemoveInterest()
		c.AddInterest(d.registerCallsite(c.Metadata()))
	}
}

// registeredCallsites returns a snapshot of the registry, for tests and
// diagnostic tooling.
func registeredCallsites() []*Callsite {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	out := make([]*Callsite, len(registry.sites))
	copy(out, registry.sites)
	return out
}
