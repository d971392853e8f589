package storage

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for stabilisation runs.
type Store struct {
	DB *sql.DB
}

// RunRecord is one row of run history.
type RunRecord struct {
	ID                string
	InputPath         string
	OutputPath        string
	Mode              string
	Features          string
	SmoothingRadius   int
	Status            string
	FramesWritten     int
	MeanTrackedPoints float64
	DegeneratePairs   int
	Duration          time.Duration
	ErrorMessage      string
	CreatedAt         time.Time
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stabilization_runs (
            id TEXT PRIMARY KEY,
            input_path TEXT NOT NULL,
            output_path TEXT,
            mode TEXT,
            features TEXT,
            smoothing_radius INTEGER,
            status TEXT NOT NULL,
            frames_written INTEGER DEFAULT 0,
            mean_tracked_points REAL DEFAULT 0,
            degenerate_pairs INTEGER DEFAULT 0,
            duration_ms INTEGER DEFAULT 0,
            error_message TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            completed_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON stabilization_runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON stabilization_runs(status);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordRunStart inserts a run in the "running" state.
func (s *Store) RecordRunStart(r RunRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`INSERT OR REPLACE INTO stabilization_runs
        (id, input_path, output_path, mode, features, smoothing_radius, status)
        VALUES (?, ?, ?, ?, ?, ?, 'running');`,
		r.ID, r.InputPath, r.OutputPath, r.Mode, r.Features, r.SmoothingRadius)
	return err
}

// RecordRunResult finalises a run row.
func (s *Store) RecordRunResult(id, status string, framesWritten int, meanTracked float64, degenerate int, duration time.Duration, errMsg string) error {
	if s == nil {
		return nil
	}
	_, err := s.DB.Exec(`UPDATE stabilization_runs SET
        status=?, frames_written=?, mean_tracked_points=?, degenerate_pairs=?,
        duration_ms=?, error_message=?, completed_at=CURRENT_TIMESTAMP
        WHERE id=?;`,
		status, framesWritten, meanTracked, degenerate, duration.Milliseconds(), errMsg, id)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.Query(`SELECT id, input_path, output_path, mode, features,
        smoothing_radius, status, frames_written, mean_tracked_points,
        degenerate_pairs, duration_ms, error_message, created_at
        FROM stabilization_runs ORDER BY created_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationMS int64
		var errorMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.InputPath, &rec.OutputPath, &rec.Mode, &rec.Features,
			&rec.SmoothingRadius, &rec.Status, &rec.FramesWritten, &rec.MeanTrackedPoints,
			&rec.DegeneratePairs, &durationMS, &errorMsg, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if errorMsg.Valid {
			rec.ErrorMessage = errorMsg.String
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
