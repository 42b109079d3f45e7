package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/passbi/txc_segments/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// timeLayout keeps a fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists runs in a single SQLite file
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// OpenSQLite opens a SQLite database with WAL mode enabled
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Connected to SQLite database: %s", path)
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.ImportRun) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO import_run (id, started_at, status, input_dir, strategy) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Status, run.InputDir, run.Strategy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *models.ImportRun) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(timeLayout)
	}

	_, err := s.conn.ExecContext(ctx, `
		UPDATE import_run
		SET completed_at = ?, status = ?, total_files = ?, successful = ?,
		    failed = ?, total_segments = ?, message = ?
		WHERE id = ?
	`, completed, run.Status, run.TotalFiles, run.Successful, run.Failed, run.TotalSegments, run.Message, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveSegments(ctx context.Context, runID string, segments []models.TimingSegment) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO timing_segment (run_id, position, source_file, section_id, timing_link_id,
			from_stop_id, from_stop_name, from_latitude, from_longitude, from_sequence,
			from_timing_status, from_activity, to_stop_id, to_stop_name, to_latitude,
			to_longitude, to_sequence, to_timing_status, to_activity, runtime_raw,
			runtime_seconds, route_link_ref, line_name, operator_name, service_code,
			service_origin, service_destination)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, position) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for i, seg := range segments {
		if _, err := stmt.ExecContext(ctx, segmentArgs(runID, i, seg)...); err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) SaveStops(ctx context.Context, runID string, stops []models.UniqueStop) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stop (run_id, stop_id, stop_name, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, stop_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, stop := range stops {
		if _, err := stmt.ExecContext(ctx, runID, stop.StopID, stop.StopName, stop.Latitude, stop.Longitude); err != nil {
			return fmt.Errorf("failed to insert stop %s: %w", stop.StopID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*models.ImportRun, error) {
	var run models.ImportRun
	var started string
	var completed sql.NullString

	err := s.conn.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, status, input_dir, strategy,
		       total_files, successful, failed, total_segments, message
		FROM import_run
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&run.ID, &started, &completed, &run.Status, &run.InputDir, &run.Strategy,
		&run.TotalFiles, &run.Successful, &run.Failed, &run.TotalSegments, &run.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func (s *SQLiteStore) Segments(ctx context.Context, runID, line string, limit int) ([]models.TimingSegment, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+segmentSelectColumns+`
		FROM timing_segment
		WHERE run_id = ? AND (? = '' OR line_name = ?)
		ORDER BY position
		LIMIT ?
	`, runID, line, line, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	segments := []models.TimingSegment{}
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func (s *SQLiteStore) Stops(ctx context.Context, runID string, limit int) ([]models.UniqueStop, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT stop_id, stop_name, latitude, longitude
		FROM stop
		WHERE run_id = ?
		ORDER BY stop_id
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	stops := []models.UniqueStop{}
	for rows.Next() {
		var stop models.UniqueStop
		if err := rows.Scan(&stop.StopID, &stop.StopName, &stop.Latitude, &stop.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}
