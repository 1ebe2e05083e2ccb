package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"disk-janitor/internal/batch"
)

// Run status values stored in runs.status
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
)

// HistoryDB manages the SQLite database holding run history
type HistoryDB struct {
	db *sql.DB
}

// RunRecord is one batch run
type RunRecord struct {
	ID             int64      `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Targets        int        `json:"targets"`
	FilesDeleted   int64      `json:"files_deleted"`
	FoldersDeleted int64      `json:"folders_deleted"`
	Skipped        int64      `json:"skipped"`
	Missing        int        `json:"missing"`
	Failed         int        `json:"failed"`
	Status         string     `json:"status"`
}

// TargetRecord is the outcome of one target within a run
type TargetRecord struct {
	ID             int64     `json:"id"`
	RunID          int64     `json:"run_id"`
	Label          string    `json:"label"`
	Path           string    `json:"path"`
	Status         string    `json:"status"`
	FilesDeleted   int64     `json:"files_deleted"`
	FoldersDeleted int64     `json:"folders_deleted"`
	Skipped        int64     `json:"skipped"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewHistoryDB opens (creating if needed) the history database at dbPath
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables DATETIME parsing on scan; foreign keys are per
	// connection so they go in the DSN
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exec rather than Ping so the file is created now
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL lets the query tool read while a daemon writes
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return hdb, nil
}

func (h *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		targets INTEGER NOT NULL DEFAULT 0,
		files_deleted INTEGER NOT NULL DEFAULT 0,
		folders_deleted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		missing INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS target_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		label TEXT,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		files_deleted INTEGER NOT NULL DEFAULT 0,
		folders_deleted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_results_run_id ON target_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_path ON target_results(path);
	CREATE INDEX IF NOT EXISTS idx_results_created_at ON target_results(created_at);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := h.db.Exec(schema)
	return err
}

// StartRun inserts a run in the running state and returns its id
func (h *HistoryDB) StartRun(startedAt time.Time) (int64, error) {
	res, err := h.db.Exec(
		`INSERT INTO runs (started_at, status) VALUES (?, ?)`,
		startedAt, RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// RecordTarget stores one target outcome for runID
func (h *HistoryDB) RecordTarget(runID int64, rec TargetRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var errMsg sql.NullString
	if rec.ErrorMessage != "" {
		errMsg = sql.NullString{String: rec.ErrorMessage, Valid: true}
	}

	_, err := h.db.Exec(`
	INSERT INTO target_results (
		run_id, label, path, status,
		files_deleted, folders_deleted, skipped,
		error_message, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, rec.Label, rec.Path, rec.Status,
		rec.FilesDeleted, rec.FoldersDeleted, rec.Skipped,
		errMsg, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert target result: %w", err)
	}
	return nil
}

// FinishRun stores the totals of a run and marks it finished
func (h *HistoryDB) FinishRun(runID int64, finishedAt time.Time, s batch.Summary, status string) error {
	res, err := h.db.Exec(`
	UPDATE runs SET
		finished_at = ?, targets = ?,
		files_deleted = ?, folders_deleted = ?, skipped = ?,
		missing = ?, failed = ?, status = ?
	WHERE id = ?
	`,
		finishedAt, s.Targets,
		int64(s.TotalFilesDeleted), int64(s.TotalFoldersDeleted), int64(s.TotalSkipped),
		s.Missing, s.Failed, status,
		runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Vacuum optimizes the database (run after pruning)
func (h *HistoryDB) Vacuum() error {
	_, err := h.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns database statistics
func (h *HistoryDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRuns, totalResults int64
	if err := h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&totalRuns); err != nil {
		return nil, err
	}
	if err := h.db.QueryRow("SELECT COUNT(*) FROM target_results").Scan(&totalResults); err != nil {
		return nil, err
	}
	stats["total_runs"] = totalRuns
	stats["total_target_results"] = totalResults

	var pageCount, pageSize int64
	if err := h.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := h.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	// Aggregates come back as text, not DATETIME
	var oldest, newest sql.NullString
	err := h.db.QueryRow("SELECT MIN(started_at), MAX(started_at) FROM runs").Scan(&oldest, &newest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_run"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_run"] = t
	}

	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// parseTimestamp decodes the text form go-sqlite3 stores time.Time values in
func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
