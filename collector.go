package scopez

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// Collector is an in-memory Subscriber that materializes the
// notification stream into SpanRecords for batch export. Safe for
// concurrent use by multiple goroutines.
//
// Finished records flow through a bounded channel into the buffer so
// that closing a span never blocks the instrumented program; under
// sustained overload records are dropped and counted instead.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	assembler
	records      []SpanRecord
	recordsCh    chan SpanRecord
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	bufMu        sync.Mutex
	cfgMu        sync.Mutex
	minLevel     Level
	filter       func(meta *Metadata) bool
	closed       atomic.Bool
	syncMode     bool
}

// NewCollector creates a collector with the specified name and channel
// buffer size. The default minimum level is TRACE: everything is kept.
func NewCollector(name string, bufferSize int) *Collector {
	return NewCollectorWithClock(name, bufferSize, clockz.RealClock)
}

// NewCollectorWithClock creates a collector with an injected clock for
// deterministic timestamps in tests.
func NewCollectorWithClock(name string, bufferSize int, clock clockz.Clock) *Collector {
	c := &Collector{
		name:      name,
		records:   make([]SpanRecord, 0, 8),
		recordsCh: make(chan SpanRecord, bufferSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		minLevel:  LevelTrace,
	}
	c.assembler.init(clock)
	go c.start()
	return c
}

// Name returns the collector's name.
func (c *Collector) Name() string { return c.name }

// SetMinLevel sets the static level cutoff. Callsites below it report
// never interest and are not constructed at all. Takes effect at the
// next interest recomputation (the next dispatch scope change).
func (c *Collector) SetMinLevel(level Level) {
	c.cfgMu.Lock()
	c.minLevel = level
	c.cfgMu.Unlock()
}

// SetFilter installs a dynamic per-event predicate. With a filter set
// the collector reports sometimes interest, so Enabled runs per event;
// without one, callsites at or above the minimum level report always
// and skip the per-event check entirely.
func (c *Collector) SetFilter(filter func(meta *Metadata) bool) {
	c.cfgMu.Lock()
	c.filter = filter
	c.cfgMu.Unlock()
}

// Enabled implements Subscriber.
func (c *Collector) Enabled(meta *Metadata) bool {
	c.cfgMu.Lock()
	minLevel, filter := c.minLevel, c.filter
	c.cfgMu.Unlock()

	if meta.Level() < minLevel {
		return false
	}
	return filter == nil || filter(meta)
}

// RegisterCallsite implements CallsiteRegistrar.
func (c *Collector) RegisterCallsite(meta *Metadata) Interest {
	c.cfgMu.Lock()
	minLevel, filter := c.minLevel, c.filter
	c.cfgMu.Unlock()

	if meta.Level() < minLevel {
		return InterestNever
	}
	if filter != nil {
		return InterestSometimes
	}
	return InterestAlways
}

// NewSpan implements Subscriber. A closed collector declines by
// returning the zero id, which the core treats as disabled.
func (c *Collector) NewSpan(meta *Metadata, parent ID) ID {
	if c.closed.Load() {
		return 0
	}
	return c.assembler.start(meta, parent)
}

// Record implements Subscriber.
func (c *Collector) Record(id ID, field Field, value any) {
	c.assembler.record(id, field, value)
}

// RecordDebug implements Subscriber.
func (c *Collector) RecordDebug(id ID, field Field, debug string) {
	c.assembler.record(id, field, debug)
}

// RecordFollowsFrom implements Subscriber.
func (c *Collector) RecordFollowsFrom(id, follows ID) {
	c.assembler.followsFrom(id, follows)
}

// Enter implements Subscriber.
func (c *Collector) Enter(id ID) {
	c.assembler.enter(id)
}

// Exit implements Subscriber.
func (*Collector) Exit(ID) {}

// ObserveEvent implements Subscriber.
func (c *Collector) ObserveEvent(event *Event) {
	c.assembler.markEvent(event.ID())
}

// CloseSpan implements Subscriber. The finished record is queued for
// buffering; if the queue is full the record is dropped and counted.
func (c *Collector) CloseSpan(id ID) {
	rec := c.assembler.finish(id)
	if rec == nil {
		return
	}

	if c.syncModeEnabled() || c.closed.Load() {
		// Buffer directly for deterministic testing or drain-on-close.
		c.bufferRecord(rec)
		return
	}

	select {
	case c.recordsCh <- *rec:
		// Successfully queued.
	default:
		// Channel full - drop record to prevent blocking.
		c.droppedCount.Add(1)
	}
}

// start runs the collector's main loop, receiving finished records.
func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining records before shutdown.
			for {
				select {
				case rec := <-c.recordsCh:
					c.bufferRecord(&rec)
				default:
					return
				}
			}
		case rec := <-c.recordsCh:
			c.bufferRecord(&rec)
		}
	}
}

func (c *Collector) bufferRecord(rec *SpanRecord) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	c.records = append(c.records, *rec)
}

// Export returns all buffered records in completion order and clears
// the buffer. The returned slice is safe to retain.
func (c *Collector) Export() []SpanRecord {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()

	if len(c.records) == 0 {
		return nil
	}
	out := make([]SpanRecord, len(c.records))
	copy(out, c.records)

	// Shrink only when very oversized to avoid allocation churn.
	if cap(c.records) > 256 && len(c.records) < cap(c.records)/8 {
		c.records = make([]SpanRecord, 0, cap(c.records)/4)
	} else {
		c.records = c.records[:0]
	}
	return out
}

// Count returns the current number of buffered records.
func (c *Collector) Count() int {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return len(c.records)
}

// DroppedCount returns the number of records dropped to backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode bypasses the channel so records land in the buffer the
// moment they close. For deterministic tests.
func (c *Collector) SetSyncMode(sync bool) {
	c.cfgMu.Lock()
	c.syncMode = sync
	c.cfgMu.Unlock()
}

func (c *Collector) syncModeEnabled() bool {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	return c.syncMode
}

// Close shuts the collector down, draining queued records into the
// buffer. Records closing after Close are buffered synchronously.
func (c *Collector) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.stopCh)
	select {
	case <-c.done:
		// Clean shutdown completed.
	case <-time.After(100 * time.Millisecond):
		// Timeout - the loop is wedged; records still buffer via the
		// closed fallback path.
	}
}
