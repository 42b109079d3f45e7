package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/txc_segments/internal/models"
)

const batchSize = 1000

// PostgresStore persists runs in Postgres
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates tables if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.ImportRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_run (id, started_at, status, input_dir, strategy)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.StartedAt, run.Status, run.InputDir, run.Strategy)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run *models.ImportRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE import_run
		SET completed_at = $2, status = $3, total_files = $4, successful = $5,
		    failed = $6, total_segments = $7, message = $8
		WHERE id = $1
	`, run.ID, run.CompletedAt, run.Status, run.TotalFiles, run.Successful,
		run.Failed, run.TotalSegments, run.Message)
	if err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}
	return nil
}

// SaveSegments writes segments in chunks, one transaction per chunk
func (s *PostgresStore) SaveSegments(ctx context.Context, runID string, segments []models.TimingSegment) error {
	for start := 0; start < len(segments); start += batchSize {
		end := min(start+batchSize, len(segments))

		batch := &pgx.Batch{}
		for i, seg := range segments[start:end] {
			batch.Queue(`
				INSERT INTO timing_segment (run_id, position, source_file, section_id, timing_link_id,
					from_stop_id, from_stop_name, from_latitude, from_longitude, from_sequence,
					from_timing_status, from_activity, to_stop_id, to_stop_name, to_latitude,
					to_longitude, to_sequence, to_timing_status, to_activity, runtime_raw,
					runtime_seconds, route_link_ref, line_name, operator_name, service_code,
					service_origin, service_destination)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
					$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
				ON CONFLICT (run_id, position) DO NOTHING
			`, segmentArgs(runID, start+i, seg)...)
		}

		if err := s.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert segments %d-%d: %w", start+1, end, err)
		}
		log.Printf("  Stored segments %d-%d / %d", start+1, end, len(segments))
	}
	return nil
}

func (s *PostgresStore) SaveStops(ctx context.Context, runID string, stops []models.UniqueStop) error {
	for start := 0; start < len(stops); start += batchSize {
		end := min(start+batchSize, len(stops))

		batch := &pgx.Batch{}
		for _, stop := range stops[start:end] {
			batch.Queue(`
				INSERT INTO stop (run_id, stop_id, stop_name, latitude, longitude)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (run_id, stop_id) DO NOTHING
			`, runID, stop.StopID, stop.StopName, stop.Latitude, stop.Longitude)
		}

		if err := s.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert stops: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*models.ImportRun, error) {
	var run models.ImportRun
	err := s.pool.QueryRow(ctx, `
		SELECT id, started_at, completed_at, status, input_dir, strategy,
		       total_files, successful, failed, total_segments, message
		FROM import_run
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Status, &run.InputDir, &run.Strategy,
		&run.TotalFiles, &run.Successful, &run.Failed, &run.TotalSegments, &run.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return &run, nil
}

func (s *PostgresStore) Segments(ctx context.Context, runID, line string, limit int) ([]models.TimingSegment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+segmentSelectColumns+`
		FROM timing_segment
		WHERE run_id = $1 AND ($2 = '' OR line_name = $2)
		ORDER BY position
		LIMIT $3
	`, runID, line, limit)
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

func (s *PostgresStore) Stops(ctx context.Context, runID string, limit int) ([]models.UniqueStop, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stop_id, stop_name, latitude, longitude
		FROM stop
		WHERE run_id = $1
		ORDER BY stop_id
		LIMIT $2
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
