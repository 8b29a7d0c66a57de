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

	"github.com/nao1215/philosophy/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "philosophy.db"

// timeLayout stores times with a fixed width so that text order is time
// order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for past batch runs.
//
// Design decision: We use a single database file for all runs rather
// than one file per run. This keeps cross-run queries such as the most
// visited pages a single SQL statement.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
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

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a walk with --save first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per batch run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		started_at TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		starts INTEGER NOT NULL DEFAULT 0,
		total_pages INTEGER NOT NULL DEFAULT 0,
		distinct_pages INTEGER NOT NULL DEFAULT 0,
		summary_json TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- One row per start of a run; pages is a JSON array of titles
	CREATE TABLE IF NOT EXISTS walks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		input TEXT NOT NULL,
		start TEXT NOT NULL,
		eligible INTEGER NOT NULL,
		ineligible_reason TEXT,
		stop_reason TEXT,
		length INTEGER NOT NULL DEFAULT 0,
		pages TEXT NOT NULL DEFAULT '[]',
		error TEXT,
		UNIQUE(run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_walks_run ON walks(run_id);
	CREATE INDEX IF NOT EXISTS idx_walks_start ON walks(start);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveBatch stores a batch run and its walks in one transaction.
// Saving the same run twice replaces the earlier copy.
func (h *HistoryDB) SaveBatch(ctx context.Context, batch *model.BatchReport) error {
	reportJSON, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summary := batch.Summary()
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM walks WHERE run_id = ?`, summary.ID); err != nil {
		return fmt.Errorf("failed to replace walks: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, target, started_at, elapsed_ms, starts, total_pages, distinct_pages, summary_json, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		target = excluded.target,
		started_at = excluded.started_at,
		elapsed_ms = excluded.elapsed_ms,
		starts = excluded.starts,
		total_pages = excluded.total_pages,
		distinct_pages = excluded.distinct_pages,
		summary_json = excluded.summary_json,
		report_json = excluded.report_json
	`,
		summary.ID,
		summary.Target,
		batch.StartedAt.UTC().Format(timeLayout),
		batch.Elapsed.Milliseconds(),
		summary.Starts,
		summary.TotalPages,
		summary.DistinctPages,
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO walks (run_id, position, input, start, eligible, ineligible_reason, stop_reason, length, pages, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare walk insert: %w", err)
	}
	defer stmt.Close()

	for i, w := range batch.Walks {
		if w == nil {
			continue
		}

		var (
			stopReason string
			pages      = []model.PageID{}
			length     int
		)
		if w.Path != nil {
			stopReason = w.Path.StopReason.String()
			pages = w.Path.Pages
			length = w.Path.Len()
		}
		pagesJSON, err := json.Marshal(pages)
		if err != nil {
			return fmt.Errorf("failed to serialize path of %s: %w", w.Start, err)
		}

		if _, err := stmt.ExecContext(ctx,
			summary.ID,
			i,
			w.Input,
			w.Start.String(),
			w.Eligible,
			w.IneligibleReason,
			stopReason,
			length,
			string(pagesJSON),
			w.ErrorMessage,
		); err != nil {
			return fmt.Errorf("failed to save walk of %s: %w", w.Start, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunRecord contains summary information about a stored run.
// This is used for listing history without loading the full report.
type RunRecord struct {
	// ID is the run's UUID.
	ID string

	// Target is the article the walks tried to reach.
	Target string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Elapsed is the wall time of the run.
	Elapsed time.Duration

	// Starts is the number of starting articles.
	Starts int

	// TotalPages is the sum of all path lengths.
	TotalPages int

	// DistinctPages is the number of different pages across the run.
	DistinctPages int

	// ByReason counts walks per stop reason.
	ByReason map[string]int
}

// ListRuns returns stored runs, newest first. A limit of zero or less
// returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, target, started_at, elapsed_ms, starts, total_pages, distinct_pages, summary_json
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var (
			rec         RunRecord
			startedAt   string
			elapsedMS   int64
			summaryJSON sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Target,
			&startedAt,
			&elapsedMS,
			&rec.Starts,
			&rec.TotalPages,
			&rec.DistinctPages,
			&summaryJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.StartedAt = parseTimestamp(startedAt)
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		rec.ByReason = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			var summary model.BatchSummary
			if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err == nil && summary.ByReason != nil {
				rec.ByReason = summary.ByReason
			}
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}

// GetRun retrieves the full batch report of a stored run.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.BatchReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var batch model.BatchReport
	if err := json.Unmarshal([]byte(reportJSON), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &batch, nil
}

// DeleteRun removes a run and its walks.
func (h *HistoryDB) DeleteRun(ctx context.Context, id string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM walks WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete walks: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return tx.Commit()
}

// WalkRecord is one stored walk.
type WalkRecord struct {
	RunID      string   `json:"run_id"`
	Input      string   `json:"input"`
	Start      string   `json:"start"`
	Eligible   bool     `json:"eligible"`
	StopReason string   `json:"stop_reason,omitempty"`
	Pages      []string `json:"pages"`
}

// WalksFrom returns every stored walk that started at title, newest run
// first. It shows whether the chain of an article changed over time.
func (h *HistoryDB) WalksFrom(ctx context.Context, title model.PageID) ([]WalkRecord, error) {
	query := `
	SELECT w.run_id, w.input, w.start, w.eligible, COALESCE(w.stop_reason, ''), w.pages
	FROM walks w JOIN runs r ON r.id = w.run_id
	WHERE w.start = ?
	ORDER BY r.started_at DESC, w.position
	`

	rows, err := h.db.QueryContext(ctx, query, title.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query walks: %w", err)
	}
	defer rows.Close()

	var results []WalkRecord
	for rows.Next() {
		var (
			rec       WalkRecord
			pagesJSON string
		)
		if err := rows.Scan(&rec.RunID, &rec.Input, &rec.Start, &rec.Eligible, &rec.StopReason, &pagesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan walk: %w", err)
		}
		if err := json.Unmarshal([]byte(pagesJSON), &rec.Pages); err != nil {
			continue // Skip malformed rows
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// PageCount is how many stored walks passed through a page.
type PageCount struct {
	Title string `json:"title"`
	Walks int    `json:"walks"`
}

// TopPages returns the pages that appear on the most stored walks. Ties are
// broken by title. A page repeated inside one cyclic walk counts once.
func (h *HistoryDB) TopPages(ctx context.Context, limit int) ([]PageCount, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
	SELECT j.value AS title, COUNT(DISTINCT w.id) AS walks
	FROM walks w, json_each(w.pages) j
	GROUP BY j.value
	ORDER BY walks DESC, title
	LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top pages: %w", err)
	}
	defer rows.Close()

	var results []PageCount
	for rows.Next() {
		var pc PageCount
		if err := rows.Scan(&pc.Title, &pc.Walks); err != nil {
			return nil, fmt.Errorf("failed to scan page count: %w", err)
		}
		results = append(results, pc)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
