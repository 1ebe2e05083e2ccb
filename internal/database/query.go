package database

import (
	"database/sql"
	"fmt"
	"time"
)

const targetColumns = `
	id, run_id, label, path, status,
	files_deleted, folders_deleted, skipped,
	error_message, created_at`

// GetRecentRuns returns the N most recent runs
func (h *HistoryDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	rows, err := h.db.Query(`
	SELECT id, started_at, finished_at, targets,
	       files_deleted, folders_deleted, skipped, missing, failed, status
	FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var finished sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &finished, &r.Targets,
			&r.FilesDeleted, &r.FoldersDeleted, &r.Skipped,
			&r.Missing, &r.Failed, &r.Status,
		); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRecentTargets returns the N most recent target results
func (h *HistoryDB) GetRecentTargets(limit int) ([]TargetRecord, error) {
	query := `SELECT ` + targetColumns + `
	FROM target_results
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`
	return h.queryTargets(query, limit)
}

// GetTargetsByRun returns the results of one run in processing order
func (h *HistoryDB) GetTargetsByRun(runID int64) ([]TargetRecord, error) {
	query := `SELECT ` + targetColumns + `
	FROM target_results
	WHERE run_id = ?
	ORDER BY id ASC
	`
	return h.queryTargets(query, runID)
}

// GetTargetsByPath returns results whose path matches a LIKE pattern
func (h *HistoryDB) GetTargetsByPath(pathPattern string) ([]TargetRecord, error) {
	query := `SELECT ` + targetColumns + `
	FROM target_results
	WHERE path LIKE ?
	ORDER BY created_at DESC, id DESC
	`
	return h.queryTargets(query, pathPattern)
}

// PathStats aggregates the results of one target path
type PathStats struct {
	Path           string    `json:"path"`
	Runs           int       `json:"runs"`
	FilesDeleted   int64     `json:"files_deleted"`
	FoldersDeleted int64     `json:"folders_deleted"`
	Skipped        int64     `json:"skipped"`
	NotFound       int       `json:"not_found"`
	LastSeen       time.Time `json:"last_seen"`
}

// HistoryStats holds aggregated statistics for a time period
type HistoryStats struct {
	Runs                int         `json:"runs"`
	TotalFilesDeleted   int64       `json:"total_files_deleted"`
	TotalFoldersDeleted int64       `json:"total_folders_deleted"`
	TotalSkipped        int64       `json:"total_skipped"`
	ByPath              []PathStats `json:"by_path"`
	StartDate           time.Time   `json:"start_date"`
	EndDate             time.Time   `json:"end_date"`
}

// GetHistoryStats returns run totals and per-path totals for the last days
func (h *HistoryDB) GetHistoryStats(days int) (*HistoryStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &HistoryStats{
		StartDate: since,
		EndDate:   now,
	}

	err := h.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(files_deleted), 0),
			COALESCE(SUM(folders_deleted), 0),
			COALESCE(SUM(skipped), 0)
		FROM runs
		WHERE started_at >= ?
	`, since).Scan(&stats.Runs, &stats.TotalFilesDeleted, &stats.TotalFoldersDeleted, &stats.TotalSkipped)
	if err != nil {
		return nil, fmt.Errorf("run totals: %w", err)
	}

	rows, err := h.db.Query(`
		SELECT
			path,
			COUNT(*),
			COALESCE(SUM(files_deleted), 0),
			COALESCE(SUM(folders_deleted), 0),
			COALESCE(SUM(skipped), 0),
			COUNT(CASE WHEN status = 'not_found' THEN 1 END),
			MAX(created_at)
		FROM target_results
		WHERE created_at >= ?
		GROUP BY path
		ORDER BY SUM(files_deleted) DESC, path ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("path totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p PathStats
		var last sql.NullString
		if err := rows.Scan(&p.Path, &p.Runs, &p.FilesDeleted, &p.FoldersDeleted, &p.Skipped, &p.NotFound, &last); err != nil {
			return nil, err
		}
		if t, ok := parseTimestamp(last); ok {
			p.LastSeen = t
		}
		stats.ByPath = append(stats.ByPath, p)
	}
	return stats, rows.Err()
}

// DeleteOldRuns removes runs (and their results) older than the given days
func (h *HistoryDB) DeleteOldRuns(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := h.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (h *HistoryDB) queryTargets(query string, args ...interface{}) ([]TargetRecord, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TargetRecord
	for rows.Next() {
		var r TargetRecord
		var label, errMsg sql.NullString

		if err := rows.Scan(
			&r.ID, &r.RunID, &label, &r.Path, &r.Status,
			&r.FilesDeleted, &r.FoldersDeleted, &r.Skipped,
			&errMsg, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.Label = label.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}
	return records, rows.Err()
}
