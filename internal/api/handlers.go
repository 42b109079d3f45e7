package api

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/txc_segments/internal/db"
	"github.com/passbi/txc_segments/internal/models"
	"github.com/passbi/txc_segments/internal/quality"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	// qualityLimit caps the segments loaded to compute a quality report
	qualityLimit = 100000
)

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// Handlers serves extraction runs persisted by the extractor
type Handlers struct {
	store  db.Reader
	checks map[string]HealthCheck
}

// NewHandlers creates handlers backed by store
func NewHandlers(store db.Reader, checks map[string]HealthCheck) *Handlers {
	return &Handlers{store: store, checks: checks}
}

// Register mounts all routes on app
func (h *Handlers) Register(app fiber.Router) {
	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Get("/runs/latest", h.LatestRun)
	v1.Get("/segments", h.Segments)
	v1.Get("/stops", h.Stops)
	v1.Get("/quality", h.Quality)
}

// Health handles the /health endpoint
func (h *Handlers) Health(c *fiber.Ctx) error {
	status := "healthy"
	httpStatus := fiber.StatusOK
	checks := fiber.Map{}

	for name, check := range h.checks {
		if err := check(c.Context()); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			httpStatus = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// LatestRun handles the /v1/runs/latest endpoint
func (h *Handlers) LatestRun(c *fiber.Ctx) error {
	run, err := h.store.LatestRun(c.Context())
	if err != nil {
		return runError(c, err)
	}
	return c.JSON(runResponse(run))
}

// Segments handles the /v1/segments endpoint
func (h *Handlers) Segments(c *fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	runID, err := h.resolveRun(c)
	if err != nil {
		return runError(c, err)
	}

	segments, err := h.store.Segments(c.Context(), runID, c.Query("line"), limit)
	if err != nil {
		log.Printf("Failed to load segments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load segments"})
	}

	return c.JSON(fiber.Map{
		"run_id":   runID,
		"count":    len(segments),
		"segments": segments,
	})
}

// Stops handles the /v1/stops endpoint
func (h *Handlers) Stops(c *fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	runID, err := h.resolveRun(c)
	if err != nil {
		return runError(c, err)
	}

	stops, err := h.store.Stops(c.Context(), runID, limit)
	if err != nil {
		log.Printf("Failed to load stops: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stops"})
	}

	return c.JSON(fiber.Map{
		"run_id": runID,
		"count":  len(stops),
		"stops":  stops,
	})
}

// QualityField is one row of the quality report
type QualityField struct {
	models.FieldQuality
	Status string `json:"status"`
}

// Quality handles the /v1/quality endpoint
func (h *Handlers) Quality(c *fiber.Ctx) error {
	runID, err := h.resolveRun(c)
	if err != nil {
		return runError(c, err)
	}

	segments, err := h.store.Segments(c.Context(), runID, c.Query("line"), qualityLimit)
	if err != nil {
		log.Printf("Failed to load segments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load segments"})
	}

	report := quality.Analyze(segments, quality.KeyFields)
	fields := make([]QualityField, 0, len(report))
	for _, fq := range report {
		fields = append(fields, QualityField{FieldQuality: fq, Status: quality.StatusOf(fq.Completeness)})
	}

	return c.JSON(fiber.Map{
		"run_id":   runID,
		"segments": len(segments),
		"fields":   fields,
	})
}

// resolveRun returns the run_id query parameter or the latest run
func (h *Handlers) resolveRun(c *fiber.Ctx) (string, error) {
	if runID := c.Query("run_id"); runID != "" {
		return runID, nil
	}
	run, err := h.store.LatestRun(c.Context())
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func runError(c *fiber.Ctx, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no extraction runs recorded"})
	}
	log.Printf("Failed to load run: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load run"})
}

func parseLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(limit, maxLimit), nil
}

func runResponse(run *models.ImportRun) fiber.Map {
	return fiber.Map{
		"id":             run.ID,
		"started_at":     run.StartedAt,
		"completed_at":   run.CompletedAt,
		"status":         run.Status,
		"input_dir":      run.InputDir,
		"strategy":       run.Strategy,
		"total_files":    run.TotalFiles,
		"successful":     run.Successful,
		"failed":         run.Failed,
		"total_segments": run.TotalSegments,
		"message":        run.Message,
	}
}
