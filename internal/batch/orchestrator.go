package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/txc_segments/internal/models"
	"github.com/passbi/txc_segments/internal/txc"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoDocuments is returned when the input directory holds no XML documents
	ErrNoDocuments = errors.New("no XML documents found")
	// ErrNoSegments is returned when a batch produced no segments at all
	ErrNoSegments = errors.New("no segments extracted; check that documents match the expected schema")
)

// Cache stores extraction results of unchanged documents between runs
type Cache interface {
	Get(ctx context.Context, key string) (models.ExtractionResult, bool)
	Set(ctx context.Context, key string, result models.ExtractionResult)
}

// Runner processes a batch of documents with a bounded worker pool
type Runner struct {
	Extractor *txc.Extractor
	Workers   int
	Cache     Cache
}

// Result is the merged outcome of a batch
type Result struct {
	Summary  models.BatchSummary
	Files    []models.ExtractionResult
	Segments []models.TimingSegment
}

// Err reports a batch-level failure
func (r *Result) Err() error {
	if r.Summary.TotalSegments == 0 {
		return ErrNoSegments
	}
	return nil
}

// FindDocuments lists the XML documents of dir sorted by name
func FindDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}

	sort.Strings(paths)
	return paths, nil
}

// DocumentKey identifies a document's content under a given extraction setup
func DocumentKey(data []byte, strategy string, policy txc.RuntimePolicy) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("doc:%s:%s:%s", hex.EncodeToString(sum[:])[:16], strategy, policy)
}

// Run extracts every document in paths
// Each document is processed in isolation; a failing document is recorded
// and never aborts the batch. Results are merged in input order.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}

	extractor := r.Extractor
	if extractor == nil {
		extractor = txc.NewExtractor(txc.Options{})
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	results := make([]models.ExtractionResult, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			results[i] = r.process(ctx, extractor, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to process batch: %w", err)
	}

	result := &Result{
		Summary: models.BatchSummary{
			RunID:      uuid.New().String(),
			TotalFiles: len(paths),
		},
		Files:    results,
		Segments: []models.TimingSegment{},
	}

	for i, res := range results {
		if res.OK() {
			log.Printf("  [+] (%d/%d) %s", i+1, len(paths), res.Filename)
			log.Printf("      Stops: %d, Journey patterns: %d, Segments: %d", res.StopsFound, res.PatternsFound, res.SegmentsFound)

			result.Summary.Successful++
			result.Summary.TotalSegments += res.SegmentsFound
			result.Summary.TotalStops += res.StopsFound
			if res.CacheHit {
				result.Summary.CacheHits++
			}
			result.Segments = append(result.Segments, res.Segments...)
		} else {
			log.Printf("  [x] (%d/%d) %s", i+1, len(paths), res.Filename)
			log.Printf("      Error: %s", res.Error)
			result.Summary.Failed++
		}
	}

	result.Summary.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) process(ctx context.Context, extractor *txc.Extractor, path string) models.ExtractionResult {
	name := filepath.Base(path)

	if err := ctx.Err(); err != nil {
		return models.FailedResult(name, err)
	}

	if r.Cache == nil {
		return extractor.ExtractFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.FailedResult(name, fmt.Errorf("failed to read document: %w", err))
	}

	key := DocumentKey(data, extractor.Strategy().Name(), extractor.Policy())
	if cached, ok := r.Cache.Get(ctx, key); ok {
		return rebind(cached, name)
	}

	res := extractor.ExtractBytes(name, data)
	if res.OK() {
		r.Cache.Set(ctx, key, res)
	}
	return res
}

// rebind attributes a cached result to the file it was looked up for
func rebind(res models.ExtractionResult, name string) models.ExtractionResult {
	res.Filename = name
	res.CacheHit = true

	segments := make([]models.TimingSegment, len(res.Segments))
	for i, seg := range res.Segments {
		seg.SourceFile = name
		segments[i] = seg
	}
	res.Segments = segments
	return res
}
