package integration

import (
	"github.com/zoobzio/scopez"
)

// newSyncCollector builds a collector wired for deterministic
// assertions: synchronous buffering, everything kept.
func newSyncCollector(name string) *scopez.Collector {
	collector := scopez.NewCollector(name, 64)
	collector.SetSyncMode(true)
	return collector
}

// recordNames extracts record names in completion order.
func recordNames(records []scopez.SpanRecord) []string {
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	return names
}

// fieldByName finds a recorded field value.
func fieldByName(rec scopez.SpanRecord, name string) (any, bool) {
	for _, fv := range rec.Fields {
		if fv.Field.Name() == name {
			return fv.Value, true
		}
	}
	return nil, false
}
