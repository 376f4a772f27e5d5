package scopez

import (
	"database/sql"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteBackend is a RecordWriter that stores finished records in a
// SQLite database, batching inserts into transactions.
type SQLiteBackend struct {
	*sql.DB
	recordStmt *sql.Stmt
	fieldStmt  *sql.Stmt
	linkStmt   *sql.Stmt

	dbName    string
	records   []SpanRecord
	batchSize int
}

// NewSQLiteBackend creates a SQLiteBackend. With an empty path a
// uniquely named database file is created in the working directory.
func NewSQLiteBackend(path string) *SQLiteBackend {
	b := &SQLiteBackend{
		dbName:    path,
		batchSize: 100000,
	}

	atexit.Register(func() { b.Flush() })

	return b
}

// Init establishes the database connection and prepares the schema.
func (b *SQLiteBackend) Init() {
	if b.dbName == "" {
		b.dbName = "scopez_" + xid.New().String() + ".sqlite3"
	}
	b.createDatabase()
	b.createTables()
	b.prepareStatements()
}

func (b *SQLiteBackend) createDatabase() {
	db, err := sql.Open("sqlite3", b.dbName)
	if err != nil {
		panic(err)
	}
	b.DB = db
}

func (b *SQLiteBackend) createTables() {
	b.mustExecute(`
		CREATE TABLE IF NOT EXISTS records (
			uid TEXT PRIMARY KEY,
			id INTEGER,
			parent INTEGER,
			kind TEXT,
			name TEXT,
			target TEXT,
			level TEXT,
			start_time TEXT,
			end_time TEXT,
			enter_count INTEGER
		)
	`)
	b.mustExecute(`
		CREATE TABLE IF NOT EXISTS record_fields (
			record_uid TEXT,
			name TEXT,
			value TEXT
		)
	`)
	b.mustExecute(`
		CREATE TABLE IF NOT EXISTS record_links (
			record_uid TEXT,
			follows INTEGER
		)
	`)
}

func (b *SQLiteBackend) prepareStatements() {
	b.recordStmt = b.mustPrepare(`
		INSERT INTO records
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	b.fieldStmt = b.mustPrepare(`
		INSERT INTO record_fields
		VALUES (?, ?, ?)
	`)
	b.linkStmt = b.mustPrepare(`
		INSERT INTO record_links
		VALUES (?, ?)
	`)
}

// Write buffers one record, flushing when the batch fills.
func (b *SQLiteBackend) Write(rec SpanRecord) {
	b.records = append(b.records, rec)
	if len(b.records) >= b.batchSize {
		b.Flush()
	}
}

// Flush writes all buffered records to the database in one
// transaction.
func (b *SQLiteBackend) Flush() {
	if len(b.records) == 0 {
		return
	}

	b.mustExecute("BEGIN TRANSACTION")
	defer b.mustExecute("COMMIT TRANSACTION")

	for _, rec := range b.records {
		_, err := b.recordStmt.Exec(
			rec.UID,
			int64(rec.ID),
			int64(rec.Parent),
			rec.Kind.String(),
			rec.Name,
			rec.Target,
			rec.Level.String(),
			rec.StartTime.Format("2006-01-02T15:04:05.000000000Z07:00"),
			rec.EndTime.Format("2006-01-02T15:04:05.000000000Z07:00"),
			rec.EnterCount,
		)
		if err != nil {
			panic(err)
		}

		for _, fv := range rec.Fields {
			_, err := b.fieldStmt.Exec(rec.UID, fv.Field.Name(), fmt.Sprintf("%v", fv.Value))
			if err != nil {
				panic(err)
			}
		}
		for _, follows := range rec.FollowsFrom {
			_, err := b.linkStmt.Exec(rec.UID, int64(follows))
			if err != nil {
				panic(err)
			}
		}
	}

	b.records = nil
}

func (b *SQLiteBackend) mustExecute(query string) sql.Result {
	res, err := b.Exec(query)
	if err != nil {
		panic(query + " -> " + err.Error())
	}
	return res
}

func (b *SQLiteBackend) mustPrepare(query string) *sql.Stmt {
	stmt, err := b.Prepare(query)
	if err != nil {
		panic(err)
	}
	return stmt
}

// Path returns the database file name.
func (b *SQLiteBackend) Path() string { return b.dbName }
