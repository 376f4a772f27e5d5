package scopez

import "github.com/zoobzio/clockz"

// RecordWriter persists finished records. Implementations buffer
// internally and flush on their own cadence; Flush forces everything
// out, and is registered to run at process exit by the backends
// themselves.
type RecordWriter interface {
	Init()
	Write(rec SpanRecord)
	Flush()
}

// Recorder is a Subscriber that streams every finished span and event
// record to a RecordWriter backend, stamping each with a unique export
// identifier. It keeps nothing in memory beyond open records and the
// backend's own batch.
type Recorder struct {
	assembler
	writer   RecordWriter
	uids     *UIDPool
	minLevel Level
}

// NewRecorder creates a recorder over the given backend and
// initializes it.
func NewRecorder(writer RecordWriter) *Recorder {
	return NewRecorderWithClock(writer, clockz.RealClock)
}

// NewRecorderWithClock creates a recorder with an injected clock.
func NewRecorderWithClock(writer RecordWriter, clock clockz.Clock) *Recorder {
	r := &Recorder{
		writer:   writer,
		uids:     NewUIDPool(256),
		minLevel: LevelTrace,
	}
	r.assembler.init(clock)
	writer.Init()
	return r
}

// SetMinLevel sets the static level cutoff. Set before installing the
// recorder as a default; it is read during interest recomputation.
func (r *Recorder) SetMinLevel(level Level) {
	r.minLevel = level
}

// Enabled implements Subscriber.
func (r *Recorder) Enabled(meta *Metadata) bool {
	return meta.Level() >= r.minLevel
}

// RegisterCallsite implements CallsiteRegistrar. The recorder has no
// per-event decision to make, so verdicts are always or never.
func (r *Recorder) RegisterCallsite(meta *Metadata) Interest {
	if meta.Level() < r.minLevel {
		return InterestNever
	}
	return InterestAlways
}

// NewSpan implements Subscriber.
func (r *Recorder) NewSpan(meta *Metadata, parent ID) ID {
	return r.assembler.start(meta, parent)
}

// Record implements Subscriber.
func (r *Recorder) Record(id ID, field Field, value any) {
	r.assembler.record(id, field, value)
}

// RecordDebug implements Subscriber.
func (r *Recorder) RecordDebug(id ID, field Field, debug string) {
	r.assembler.record(id, field, debug)
}

// RecordFollowsFrom implements Subscriber.
func (r *Recorder) RecordFollowsFrom(id, follows ID) {
	r.assembler.followsFrom(id, follows)
}

// Enter implements Subscriber.
func (r *Recorder) Enter(id ID) {
	r.assembler.enter(id)
}

// Exit implements Subscriber.
func (*Recorder) Exit(ID) {}

// ObserveEvent implements Subscriber.
func (r *Recorder) ObserveEvent(event *Event) {
	r.assembler.markEvent(event.ID())
}

// CloseSpan implements Subscriber. The finished record gets its export
// id and goes to the backend.
func (r *Recorder) CloseSpan(id ID) {
	rec := r.assembler.finish(id)
	if rec == nil {
		return
	}
	rec.UID = r.uids.Get()
	r.writer.Write(*rec)
}

// Flush forces the backend to persist its batch.
func (r *Recorder) Flush() {
	r.writer.Flush()
}
