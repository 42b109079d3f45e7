package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/txc_segments/internal/models"
)

// Run statuses recorded in import_run
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrNotFound is returned when no import run exists yet
var ErrNotFound = errors.New("not found")

// Sink persists the outcome of an extraction run
type Sink interface {
	CreateRun(ctx context.Context, run *models.ImportRun) error
	SaveSegments(ctx context.Context, runID string, segments []models.TimingSegment) error
	SaveStops(ctx context.Context, runID string, stops []models.UniqueStop) error
	CompleteRun(ctx context.Context, run *models.ImportRun) error
}

// Reader serves persisted runs
type Reader interface {
	LatestRun(ctx context.Context) (*models.ImportRun, error)
	Segments(ctx context.Context, runID, line string, limit int) ([]models.TimingSegment, error)
	Stops(ctx context.Context, runID string, limit int) ([]models.UniqueStop, error)
}

// NewRun starts an import run record
func NewRun(inputDir, strategy string) *models.ImportRun {
	return &models.ImportRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Status:    RunRunning,
		InputDir:  inputDir,
		Strategy:  strategy,
	}
}

// SaveRun records a finished batch in sink
// The run is marked failed when writing segments or stops fails.
// Nothing is written when ctx is already cancelled.
func SaveRun(ctx context.Context, sink Sink, run *models.ImportRun, summary models.BatchSummary, segments []models.TimingSegment, stops []models.UniqueStop) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run %s not stored: %w", run.ID, err)
	}
	if err := sink.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}

	run.TotalFiles = summary.TotalFiles
	run.Successful = summary.Successful
	run.Failed = summary.Failed
	run.TotalSegments = summary.TotalSegments

	err := sink.SaveSegments(ctx, run.ID, segments)
	if err == nil {
		err = sink.SaveStops(ctx, run.ID, stops)
	}

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = RunFailed
		run.Message = err.Error()
	} else {
		run.Status = RunCompleted
	}

	if uerr := sink.CompleteRun(ctx, run); uerr != nil {
		log.Printf("Warning: failed to update import run %s: %v", run.ID, uerr)
	}
	return err
}
