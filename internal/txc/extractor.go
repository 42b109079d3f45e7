package txc

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/passbi/txc_segments/internal/models"
)

// Options configures an Extractor
type Options struct {
	Strategy      Strategy
	RuntimePolicy RuntimePolicy
}

// Extractor turns TransXChange-like documents into timing segments
// An Extractor holds no per-document state and is safe for concurrent use.
type Extractor struct {
	strategy Strategy
	policy   RuntimePolicy
}

// NewExtractor creates an extractor, defaulting to the suffix scan strategy
// and nil run times for undecodable durations
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{strategy: opts.Strategy, policy: opts.RuntimePolicy}
	if e.strategy == nil {
		e.strategy = &SuffixScanStrategy{}
	}
	if e.policy == "" {
		e.policy = PolicyNull
	}
	return e
}

// Strategy returns the lookup strategy in use
func (e *Extractor) Strategy() Strategy {
	return e.strategy
}

// Policy returns the run time policy in use
func (e *Extractor) Policy() RuntimePolicy {
	return e.policy
}

// ExtractFile processes one document from disk
func (e *Extractor) ExtractFile(path string) models.ExtractionResult {
	name := filepath.Base(path)

	file, err := os.Open(path)
	if err != nil {
		return errorResult(name, err)
	}
	defer file.Close()

	return e.ExtractReader(name, file)
}

// ExtractBytes processes one in-memory document
func (e *Extractor) ExtractBytes(name string, data []byte) models.ExtractionResult {
	root, err := ParseBytes(data)
	if err != nil {
		return errorResult(name, err)
	}
	return e.extract(name, root)
}

// ExtractReader processes one document read from r
func (e *Extractor) ExtractReader(name string, r io.Reader) models.ExtractionResult {
	root, err := Parse(r)
	if err != nil {
		return errorResult(name, err)
	}
	return e.extract(name, root)
}

func (e *Extractor) extract(name string, root *Node) models.ExtractionResult {
	doc := NewDocument(name, root, e.strategy)
	idx := BuildIndex(doc)
	segments, stats := ExtractSegments(doc, idx, e.policy)

	if !doc.Namespace.Qualified() {
		log.Printf("Warning: %s: no default namespace declared, matching unqualified element names", name)
	}
	if stats.UndecodedRuntimes > 0 {
		log.Printf("Warning: %s: %d run times could not be decoded", name, stats.UndecodedRuntimes)
	}
	if stats.UnresolvedStops > 0 {
		log.Printf("Warning: %s: %d stop references not found in stop points", name, stats.UnresolvedStops)
	}
	if stats.DroppedLinks > 0 {
		log.Printf("Warning: %s: dropped %d timing links without stop references", name, stats.DroppedLinks)
	}

	return models.ExtractionResult{
		Filename:       name,
		StopsFound:     len(idx.Stops),
		OperatorsFound: len(idx.Operators),
		ServicesFound:  idx.ServiceCount(),
		PatternsFound:  len(idx.JourneyPatterns),
		SegmentsFound:  len(segments),
		Status:         models.StatusSuccess,
		Segments:       segments,
	}
}

func errorResult(name string, err error) models.ExtractionResult {
	return models.FailedResult(name, fmt.Errorf("failed to process document: %w", err))
}
