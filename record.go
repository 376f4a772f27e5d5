package scopez

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// RecordKind distinguishes interval records from point-in-time records.
type RecordKind uint8

const (
	KindSpan RecordKind = iota
	KindEvent
)

// String returns the kind name.
func (k RecordKind) String() string {
	if k == KindEvent {
		return "event"
	}
	return "span"
}

// SpanRecord is the materialized form of one span or event as a
// subscriber saw it: identity, parentage, declared metadata, recorded
// fields in arrival order, causal links, and lifecycle timing.
//
//nolint:govet // Field alignment optimized for serialization order
type SpanRecord struct {
	UID         string        `json:"uid,omitempty"`
	ID          ID            `json:"id"`
	Parent      ID            `json:"parent,omitempty"`
	Name        string        `json:"name"`
	Target      string        `json:"target"`
	Level       Level         `json:"level"`
	Kind        RecordKind    `json:"kind"`
	Fields      []FieldValue  `json:"fields,omitempty"`
	FollowsFrom []ID          `json:"follows_from,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	EnterCount  int           `json:"enter_count"`
}

// assembler builds SpanRecords from the notification stream. It is the
// shared bookkeeping behind every built-in subscriber: ids are minted
// from a counter, open records accumulate fields until CloseSpan, and
// finishing stamps the end time.
type assembler struct {
	clock  clockz.Clock
	nextID atomic.Uint64
	mu     sync.Mutex
	open   map[ID]*SpanRecord
}

// init prepares an embedded assembler in place.
func (a *assembler) init(clock clockz.Clock) {
	a.clock = clock
	a.open = make(map[ID]*SpanRecord)
}

// start opens a record and assigns its identifier.
func (a *assembler) start(meta *Metadata, parent ID) ID {
	id := ID(a.nextID.Add(1))
	rec := &SpanRecord{
		ID:        id,
		Parent:    parent,
		Name:      meta.Name(),
		Target:    meta.Target(),
		Level:     meta.Level(),
		StartTime: a.clock.Now(),
	}

	a.mu.Lock()
	a.open[id] = rec
	a.mu.Unlock()
	return id
}

func (a *assembler) record(id ID, field Field, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.open[id]; ok {
		rec.Fields = append(rec.Fields, FieldValue{Field: field, Value: value})
	}
}

func (a *assembler) followsFrom(id, follows ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.open[id]; ok {
		rec.FollowsFrom = append(rec.FollowsFrom, follows)
	}
}

func (a *assembler) enter(id ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.open[id]; ok {
		rec.EnterCount++
	}
}

func (a *assembler) markEvent(id ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.open[id]; ok {
		rec.Kind = KindEvent
	}
}

// finish removes the open record and stamps its end time. Returns nil
// for an unknown id.
func (a *assembler) finish(id ID) *SpanRecord {
	a.mu.Lock()
	rec, ok := a.open[id]
	if ok {
		delete(a.open, id)
	}
	a.mu.Unlock()

	if !ok {
		return nil
	}
	rec.EndTime = a.clock.Now()
	rec.Duration = rec.EndTime.Sub(rec.StartTime)
	return rec
}

// openCount returns how many records are still open, for tests.
func (a *assembler) openCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.open)
}
