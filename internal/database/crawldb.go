package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pathscan/internal/model"
)

// dbFileName is the SQLite file created inside the data directory.
const dbFileName = "pathscan.db"

// CrawlDB provides SQLite-based storage for crawl run history.
// One database holds every run across all hosts, which keeps history
// listing and run-to-run comparison a single-file affair.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB inside the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error
// is returned instead of silently starting an empty history.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to refuse creating new files and
	// mode=rwc to allow it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer; a single pooled connection avoids
	// SQLITE_BUSY churn during run saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run, with the full report kept as JSON so a past
	-- run can be re-rendered exactly as it was observed.
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		target TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		total_requests INTEGER NOT NULL,
		successful_requests INTEGER NOT NULL,
		failed_requests INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
	CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);

	-- One row per visited URL per run; this is what run comparison reads.
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		content_length INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL,
		error_kind INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		visited_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_visits_run ON visits(run_id);
	CREATE INDEX IF NOT EXISTS idx_visits_url ON visits(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished crawl report as one run row plus one visit
// row per URL, atomically. Returns the new run ID.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.CrawlReport) (int64, error) {
	if report == nil {
		return 0, errors.New("cannot save a nil report")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (host, target, max_depth, workers,
		total_requests, successful_requests, failed_requests,
		started_at, finished_at, interrupted, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Host,
		report.Target,
		report.MaxDepth,
		report.Workers,
		report.Stats.TotalRequests,
		report.Stats.SuccessfulRequests,
		report.Stats.FailedRequests,
		report.Stats.StartTime.UTC().Format(time.RFC3339),
		report.FinishedAt.UTC().Format(time.RFC3339),
		boolToInt(report.Interrupted),
		report.Error,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	// UPSERT so a conflicting record (which the frontier already warns
	// about) can never abort persisting the rest of the run.
	visitQuery := `
	INSERT INTO visits (run_id, url, status_code, content_type, content_length,
		title, depth, error_kind, error, visited_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		content_length = excluded.content_length,
		title = excluded.title,
		depth = excluded.depth,
		error_kind = excluded.error_kind,
		error = excluded.error,
		visited_at = excluded.visited_at
	`

	for _, u := range report.URLs() {
		record := report.Visits[u]
		if _, err := tx.ExecContext(ctx, visitQuery,
			runID,
			record.URL,
			record.StatusCode,
			record.ContentType,
			record.ContentLength,
			record.Title,
			record.Depth,
			int(record.ErrorKind),
			record.Error,
			record.Timestamp.UTC().Format(time.RFC3339),
		); err != nil {
			return 0, fmt.Errorf("failed to insert visit for %s: %w", record.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunMetadata summarizes one stored run for history listings.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Host is the origin host the run was restricted to.
	Host string

	// Target is the normalized seed URL.
	Target string

	// MaxDepth is the configured depth bound.
	MaxDepth int

	// Workers is the configured worker count.
	Workers int

	// TotalRequests, SuccessfulRequests, and FailedRequests are the run
	// counters.
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int

	// StartedAt and FinishedAt bound the run in time.
	StartedAt  time.Time
	FinishedAt time.Time

	// Interrupted is set when the run holds partial state.
	Interrupted bool

	// Error is the run-level failure message, if any.
	Error string
}

// runColumns is the SELECT list matching scanRunMetadata.
const runColumns = `id, host, target, max_depth, workers,
	total_requests, successful_requests, failed_requests,
	started_at, finished_at, interrupted, error`

// scanRunMetadata reads one runs row into a RunMetadata.
func scanRunMetadata(scan func(dest ...any) error) (RunMetadata, error) {
	var meta RunMetadata
	var startedAt, finishedAt string
	var interrupted int

	err := scan(
		&meta.ID,
		&meta.Host,
		&meta.Target,
		&meta.MaxDepth,
		&meta.Workers,
		&meta.TotalRequests,
		&meta.SuccessfulRequests,
		&meta.FailedRequests,
		&startedAt,
		&finishedAt,
		&interrupted,
		&meta.Error,
	)
	if err != nil {
		return RunMetadata{}, err
	}

	meta.StartedAt = parseTimestamp(startedAt)
	meta.FinishedAt = parseTimestamp(finishedAt)
	meta.Interrupted = interrupted != 0
	return meta, nil
}

// ListHosts returns every host with stored runs, sorted.
func (cdb *CrawlDB) ListHosts(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT host FROM runs ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}

	return hosts, rows.Err()
}

// ListRuns returns the stored runs for a host, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context, host string) ([]RunMetadata, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE host = ? ORDER BY finished_at DESC, id DESC`

	rows, err := cdb.db.QueryContext(ctx, query, host)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMetadata
	for rows.Next() {
		meta, err := scanRunMetadata(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, meta)
	}

	return runs, rows.Err()
}

// GetRun retrieves one run's metadata by ID.
// Returns nil without error when the run does not exist.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*RunMetadata, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	meta, err := scanRunMetadata(cdb.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &meta, nil
}

// GetRunReport retrieves the full stored report for a run.
// Returns nil without error when the run does not exist.
func (cdb *CrawlDB) GetRunReport(ctx context.Context, id int64) (*model.CrawlReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse stored report: %w", err)
	}

	return &report, nil
}

// GetRunVisits returns the per-URL records of one run, keyed by URL.
// This is the read path run comparison is built on.
func (cdb *CrawlDB) GetRunVisits(ctx context.Context, runID int64) (map[string]model.VisitRecord, error) {
	query := `
	SELECT url, status_code, content_type, content_length, title, depth, error_kind, error, visited_at
	FROM visits
	WHERE run_id = ?
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run visits: %w", err)
	}
	defer rows.Close()

	visits := make(map[string]model.VisitRecord)
	for rows.Next() {
		var record model.VisitRecord
		var errorKind int
		var visitedAt string

		err := rows.Scan(
			&record.URL,
			&record.StatusCode,
			&record.ContentType,
			&record.ContentLength,
			&record.Title,
			&record.Depth,
			&errorKind,
			&record.Error,
			&visitedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}

		record.ErrorKind = model.ErrorKind(errorKind)
		record.Timestamp = parseTimestamp(visitedAt)
		visits[record.URL] = record
	}

	return visits, rows.Err()
}

// boolToInt stores a bool in an INTEGER column.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on how the
// value was written. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
