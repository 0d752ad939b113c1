package database

import (
	"database/sql"
	"time"
)

// InsertRun records the start of a pipeline run.
func (db *DB) InsertRun(id string, appID int64, kind string) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, app_id, kind, status, started_at) VALUES (?, ?, ?, 'running', ?)`,
		id, appID, kind, time.Now().Format(time.RFC3339),
	)
	return err
}

// FinishRun marks a run as finished with its outcome counts.
func (db *DB) FinishRun(id, status string, reviewCount, skippedCount int, detail *string) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET status = ?, review_count = ?, skipped_count = ?, detail = ?, finished_at = ?
		WHERE id = ?`,
		status, reviewCount, skippedCount, detail, time.Now().Format(time.RFC3339), id,
	)
	return err
}

// GetRun returns a single run by ID, or nil if absent.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, app_id, kind, status, review_count, skipped_count, detail, started_at, finished_at
		FROM runs WHERE id = ?`, id,
	)
	var r Run
	err := row.Scan(&r.ID, &r.AppID, &r.Kind, &r.Status, &r.ReviewCount, &r.SkippedCount,
		&r.Detail, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecentRuns returns the most recent runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, app_id, kind, status, review_count, skipped_count, detail, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.AppID, &r.Kind, &r.Status, &r.ReviewCount, &r.SkippedCount,
			&r.Detail, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns ledger statistics for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM apps").Scan(&s.Apps); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&s.TotalRuns); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs WHERE status = 'failed'").Scan(&s.FailedRuns); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT MAX(started_at) FROM runs").Scan(&s.LastRunAt); err != nil {
		return nil, err
	}
	return s, nil
}
