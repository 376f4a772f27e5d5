package scopez

import (
	"fmt"
	"io"
	"sync"

	"github.com/zoobzio/clockz"
)

// ConsoleWriter is a Subscriber that prints one line per finished span
// or event. For humans watching a terminal, not for machines: records
// print at close, with fields in recording order.
type ConsoleWriter struct {
	assembler
	w        io.Writer
	mu       sync.Mutex
	minLevel Level
}

// NewConsoleWriter creates a console subscriber writing to w.
func NewConsoleWriter(w io.Writer) *ConsoleWriter {
	return NewConsoleWriterWithClock(w, clockz.RealClock)
}

// NewConsoleWriterWithClock creates a console subscriber with an
// injected clock for deterministic output in tests.
func NewConsoleWriterWithClock(w io.Writer, clock clockz.Clock) *ConsoleWriter {
	c := &ConsoleWriter{
		w:        w,
		minLevel: LevelTrace,
	}
	c.assembler.init(clock)
	return c
}

// SetMinLevel sets the level cutoff. Set before installing as default.
func (c *ConsoleWriter) SetMinLevel(level Level) {
	c.minLevel = level
}

// Enabled implements Subscriber.
func (c *ConsoleWriter) Enabled(meta *Metadata) bool {
	return meta.Level() >= c.minLevel
}

// NewSpan implements Subscriber.
func (c *ConsoleWriter) NewSpan(meta *Metadata, parent ID) ID {
	return c.assembler.start(meta, parent)
}

// Record implements Subscriber.
func (c *ConsoleWriter) Record(id ID, field Field, value any) {
	c.assembler.record(id, field, value)
}

// RecordDebug implements Subscriber.
func (c *ConsoleWriter) RecordDebug(id ID, field Field, debug string) {
	c.assembler.record(id, field, debug)
}

// RecordFollowsFrom implements Subscriber.
func (c *ConsoleWriter) RecordFollowsFrom(id, follows ID) {
	c.assembler.followsFrom(id, follows)
}

// Enter implements Subscriber.
func (c *ConsoleWriter) Enter(id ID) {
	c.assembler.enter(id)
}

// Exit implements Subscriber.
func (*ConsoleWriter) Exit(ID) {}

// ObserveEvent implements Subscriber.
func (c *ConsoleWriter) ObserveEvent(event *Event) {
	c.assembler.markEvent(event.ID())
}

// CloseSpan implements Subscriber.
func (c *ConsoleWriter) CloseSpan(id ID) {
	rec := c.assembler.finish(id)
	if rec == nil {
		return
	}

	line := fmt.Sprintf("%s %-5s %s %s: %s",
		rec.EndTime.Format("15:04:05.000"),
		rec.Level,
		rec.Kind,
		rec.Target,
		rec.Name,
	)
	for _, fv := range rec.Fields {
		line += fmt.Sprintf(" %s=%v", fv.Field.Name(), fv.Value)
	}
	if rec.Kind == KindSpan {
		line += fmt.Sprintf(" duration=%s", rec.Duration)
	}
	if rec.Parent != 0 {
		line += fmt.Sprintf(" parent=%d", rec.Parent)
	}
	for _, follows := range rec.FollowsFrom {
		line += fmt.Sprintf(" follows=%d", follows)
	}

	c.mu.Lock()
	fmt.Fprintln(c.w, line)
	c.mu.Unlock()
}
