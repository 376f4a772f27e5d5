package scopez

import (
	"fmt"
	"os"
	"strings"

	"github.com/tebeka/atexit"
)

// CSVBackend is a RecordWriter that stores finished records in a CSV
// file.
type CSVBackend struct {
	path string
	file *os.File

	records    []SpanRecord
	bufferSize int
}

// NewCSVBackend creates a CSVBackend writing to path.
func NewCSVBackend(path string) *CSVBackend {
	return &CSVBackend{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the CSV file. If the file already exists, it will be
// overwritten.
func (b *CSVBackend) Init() {
	file, err := os.Create(b.path)
	if err != nil {
		panic(err)
	}
	b.file = file

	fmt.Fprintf(file, "UID, ID, Parent, Kind, Name, Target, Level, Start, End, Enters, Fields, FollowsFrom\n")

	atexit.Register(func() {
		b.Flush()
		err := b.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Write buffers one record, flushing when the buffer fills.
func (b *CSVBackend) Write(rec SpanRecord) {
	b.records = append(b.records, rec)
	if len(b.records) >= b.bufferSize {
		b.Flush()
	}
}

// Flush writes the buffered records to the CSV file.
func (b *CSVBackend) Flush() {
	for _, rec := range b.records {
		fmt.Fprintf(b.file, "%s, %d, %d, %s, %s, %s, %s, %s, %s, %d, %s, %s\n",
			rec.UID,
			rec.ID,
			rec.Parent,
			rec.Kind,
			rec.Name,
			rec.Target,
			rec.Level,
			rec.StartTime.Format("2006-01-02T15:04:05.000000000Z07:00"),
			rec.EndTime.Format("2006-01-02T15:04:05.000000000Z07:00"),
			rec.EnterCount,
			encodeFields(rec.Fields),
			encodeLinks(rec.FollowsFrom),
		)
	}

	b.records = nil
}

// encodeFields renders recorded fields as a semicolon-joined list.
func encodeFields(fields []FieldValue) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, len(fields))
	for i, fv := range fields {
		parts[i] = fmt.Sprintf("%s=%v", fv.Field.Name(), fv.Value)
	}
	return strings.Join(parts, ";")
}

// encodeLinks renders follows-from links as a semicolon-joined list.
func encodeLinks(links []ID) string {
	if len(links) == 0 {
		return ""
	}
	parts := make([]string, len(links))
	for i, id := range links {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ";")
}
