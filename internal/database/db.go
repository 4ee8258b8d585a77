package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/jgoulah/energygoal/internal/datatable"
	"github.com/jgoulah/energygoal/pkg/models"
)

// Timestamps are stored as RFC 3339 in UTC so that text order is time order
const timestampLayout = time.RFC3339

// legacyTimestampLayout is the zone-less format of older databases, read as UTC
const legacyTimestampLayout = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn  *sql.DB
	clock clockwork.Clock
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	return NewWithClock(dbPath, clockwork.NewRealClock())
}

// NewWithClock is like New but stamps created_at from the given clock
func NewWithClock(dbPath string, clock clockwork.Clock) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn, clock: clock}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is usable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS consumption (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		actual INTEGER NOT NULL,
		goal INTEGER NOT NULL,
		warning INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(source, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_consumption_source ON consumption(source);
	CREATE INDEX IF NOT EXISTS idx_consumption_timestamp ON consumption(timestamp);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertRecord inserts a consumption record, ignoring duplicates of the same
// source and timestamp. It reports whether a row was added.
func (db *DB) InsertRecord(ctx context.Context, rec models.ConsumptionRecord) (bool, error) {
	query := `
	INSERT OR IGNORE INTO consumption (source, timestamp, actual, goal, warning, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	createdAt := db.clock.Now().UTC().Format(time.RFC3339)
	res, err := db.conn.ExecContext(ctx, query,
		rec.Source, rec.Timestamp.UTC().Format(timestampLayout), rec.Actual, rec.Goal, rec.Warning, createdAt)
	if err != nil {
		return false, fmt.Errorf("inserting consumption record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking inserted rows: %w", err)
	}
	return n > 0, nil
}

// LatestRecord returns the most recent record for a source, or nil if there is none
func (db *DB) LatestRecord(ctx context.Context, source string) (*models.ConsumptionRecord, error) {
	query := `
	SELECT source, timestamp, actual, goal, warning
	FROM consumption
	WHERE source = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, source))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying consumption record: %w", err)
	}
	return rec, nil
}

// ListRecords retrieves all records for a source, newest first
func (db *DB) ListRecords(ctx context.Context, source string) ([]models.ConsumptionRecord, error) {
	query := `
	SELECT source, timestamp, actual, goal, warning
	FROM consumption
	WHERE source = ?
	ORDER BY timestamp DESC
	`
	return db.queryRecords(ctx, query, source)
}

// LatestRecords returns the newest record of every source, ordered by source
func (db *DB) LatestRecords(ctx context.Context) ([]models.ConsumptionRecord, error) {
	query := `
	SELECT c.source, c.timestamp, c.actual, c.goal, c.warning
	FROM consumption c
	WHERE c.timestamp = (SELECT MAX(timestamp) FROM consumption WHERE source = c.source)
	ORDER BY c.source
	`
	return db.queryRecords(ctx, query)
}

// ListSources returns the distinct sources, sorted
func (db *DB) ListSources(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT source FROM consumption ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Table returns the latest record of every source as a consumption data table
func (db *DB) Table(ctx context.Context) (datatable.Table, error) {
	records, err := db.LatestRecords(ctx)
	if err != nil {
		return nil, err
	}
	return datatable.FromRecords(records), nil
}

func (db *DB) queryRecords(ctx context.Context, query string, args ...any) ([]models.ConsumptionRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying consumption records: %w", err)
	}
	defer rows.Close()

	var results []models.ConsumptionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.ConsumptionRecord, error) {
	var rec models.ConsumptionRecord
	var ts string

	if err := row.Scan(&rec.Source, &ts, &rec.Actual, &rec.Goal, &rec.Warning); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	var err error
	rec.Timestamp, err = time.Parse(timestampLayout, ts)
	if err != nil {
		rec.Timestamp, err = time.Parse(legacyTimestampLayout, ts)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}

	return &rec, nil
}
