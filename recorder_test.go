package scopez

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// memBackend is a RecordWriter keeping everything in memory.
type memBackend struct {
	inited  bool
	flushed int
	records []SpanRecord
}

func (b *memBackend) Init()                { b.inited = true }
func (b *memBackend) Write(rec SpanRecord) { b.records = append(b.records, rec) }
func (b *memBackend) Flush()               { b.flushed++ }

var _ = Describe("Recorder", func() {
	var (
		backend  *memBackend
		recorder *Recorder
		site     *Callsite
	)

	BeforeEach(func() {
		backend = &memBackend{}
		recorder = NewRecorder(backend)
		site = NewCallsite("recorded.op", "scopez/test/recorder",
			LevelInfo, []string{"size"})
	})

	It("should initialize its backend", func() {
		Expect(backend.inited).To(BeTrue())
	})

	It("should stream finished spans to the backend", func() {
		WithDefault(recorder, func() {
			ctx := context.Background()
			span := NewSpan(ctx, site)
			f, _ := site.Metadata().Fields().Field("size")
			span.Record(f, 128)
			span.Scope(ctx, func(context.Context) {})
			span.Close()
		})

		Expect(backend.records).To(HaveLen(1))
		rec := backend.records[0]
		Expect(rec.Name).To(Equal("recorded.op"))
		Expect(rec.Kind).To(Equal(KindSpan))
		Expect(rec.EnterCount).To(Equal(1))
		Expect(rec.UID).NotTo(BeEmpty())
		Expect(rec.Fields).To(HaveLen(1))
		Expect(rec.Fields[0].Value).To(Equal(128))
	})

	It("should stamp distinct export ids", func() {
		WithDefault(recorder, func() {
			ctx := context.Background()
			NewSpan(ctx, site).Close()
			NewSpan(ctx, site).Close()
		})

		Expect(backend.records).To(HaveLen(2))
		Expect(backend.records[0].UID).NotTo(Equal(backend.records[1].UID))
	})

	It("should report never below the level cutoff", func() {
		recorder.SetMinLevel(LevelError)
		Expect(recorder.RegisterCallsite(site.Metadata()).IsNever()).To(BeTrue())
	})

	It("should report always at or above the level cutoff", func() {
		Expect(recorder.RegisterCallsite(site.Metadata()).IsAlways()).To(BeTrue())
	})

	It("should forward flushes", func() {
		recorder.Flush()
		Expect(backend.flushed).To(Equal(1))
	})
})

var _ = Describe("CSVBackend", func() {
	var (
		path    string
		backend *CSVBackend
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "trace.csv")
		backend = NewCSVBackend(path)
		backend.Init()
	})

	It("should write the header on init", func() {
		backend.Flush()
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(HavePrefix("UID, ID, Parent, Kind, Name"))
	})

	It("should persist records on flush", func() {
		recorder := NewRecorder(backend)
		site := NewCallsite("csv.op", "scopez/test/csv", LevelWarn, nil)

		WithDefault(recorder, func() {
			NewSpan(context.Background(), site).Close()
		})
		backend.Flush()

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[1]).To(ContainSubstring("csv.op"))
		Expect(lines[1]).To(ContainSubstring("WARN"))
	})
})

var _ = Describe("SQLiteBackend", func() {
	var (
		path    string
		backend *SQLiteBackend
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "trace.sqlite3")
		backend = NewSQLiteBackend(path)
		backend.Init()
	})

	AfterEach(func() {
		backend.DB.Close()
	})

	It("should persist records and their fields", func() {
		recorder := NewRecorder(backend)
		site := NewEventCallsite("db.event", "scopez/test/sqlite",
			LevelInfo, []string{"count"})

		WithDefault(recorder, func() {
			Emit(context.Background(), site, "stored", 4)
		})
		backend.Flush()

		var kind, level string
		row := backend.QueryRow("SELECT kind, level FROM records WHERE name = ?", "db.event")
		Expect(row.Scan(&kind, &level)).To(Succeed())
		Expect(kind).To(Equal("event"))
		Expect(level).To(Equal("INFO"))

		rows, err := backend.Query(
			"SELECT name, value FROM record_fields ORDER BY rowid")
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var fields [][2]string
		for rows.Next() {
			var name, value string
			Expect(rows.Scan(&name, &value)).To(Succeed())
			fields = append(fields, [2]string{name, value})
		}
		Expect(rows.Err()).NotTo(HaveOccurred())
		Expect(fields).To(ContainElement([2]string{"message", "stored"}))
		Expect(fields).To(ContainElement([2]string{"count", "4"}))
	})

	It("should persist follows-from links", func() {
		recorder := NewRecorder(backend)
		spanSite := NewCallsite("db.producer", "scopez/test/sqlite", LevelInfo, nil)
		eventSite := NewEventCallsite("db.handoff", "scopez/test/sqlite", LevelInfo, nil)

		WithDefault(recorder, func() {
			ctx := context.Background()
			producer := NewSpan(ctx, spanSite)
			ev := NewEvent(ctx, eventSite)
			ev.FollowsFrom(producer.ID())
			ev.Observe()
			producer.Close()
		})
		backend.Flush()

		var count int
		row := backend.QueryRow("SELECT COUNT(*) FROM record_links")
		Expect(row.Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("should be idempotent about empty flushes", func() {
		backend.Flush()
		backend.Flush()

		var count int
		row := backend.QueryRow("SELECT COUNT(*) FROM records")
		Expect(row.Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})
})
