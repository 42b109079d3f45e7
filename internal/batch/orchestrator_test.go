package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/passbi/txc_segments/internal/models"
	"github.com/passbi/txc_segments/internal/txc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<TransXChange xmlns="http://www.transxchange.org.uk/">
  <StopPoints>
    <AnnotatedStopPointRef><StopPointRef>{{ID}}A</StopPointRef><CommonName>Stop A</CommonName></AnnotatedStopPointRef>
    <AnnotatedStopPointRef><StopPointRef>{{ID}}B</StopPointRef><CommonName>Stop B</CommonName></AnnotatedStopPointRef>
  </StopPoints>
  <JourneyPatternSections>
    <JourneyPatternSection id="JPS_{{ID}}">
      <JourneyPatternTimingLink id="{{ID}}_1">
        <From SequenceNumber="1"><StopPointRef>{{ID}}A</StopPointRef></From>
        <To SequenceNumber="2"><StopPointRef>{{ID}}B</StopPointRef></To>
        <RunTime>PT2M</RunTime>
      </JourneyPatternTimingLink>
    </JourneyPatternSection>
  </JourneyPatternSections>
  <Services><Service><ServiceCode>{{ID}}</ServiceCode><Lines><Line><LineName>{{ID}}</LineName></Line></Lines></Service></Services>
</TransXChange>`

func document(id string) string {
	return strings.ReplaceAll(docTemplate, "{{ID}}", id)
}

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestFindDocuments(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"b.xml":     "<a/>",
		"a.XML":     "<a/>",
		"notes.txt": "ignored",
		"c.xml.bak": "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.xml"), 0755))

	paths, err := FindDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.XML"), filepath.Join(dir, "b.xml")}, paths)
}

func TestFindDocumentsEmpty(t *testing.T) {
	dir := writeDocs(t, map[string]string{"readme.md": "nothing here"})

	_, err := FindDocuments(dir)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = FindDocuments(filepath.Join(dir, "missing"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDocuments)
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"doc1.xml": document("ONE"),
		"doc2.xml": document("TWO")[:200],
		"doc3.xml": document("THREE"),
	})
	paths, err := FindDocuments(dir)
	require.NoError(t, err)

	for _, workers := range []int{1, 4} {
		runner := &Runner{Extractor: txc.NewExtractor(txc.Options{}), Workers: workers}
		result, err := runner.Run(context.Background(), paths)
		require.NoError(t, err)
		require.NoError(t, result.Err())

		assert.Equal(t, 3, result.Summary.TotalFiles)
		assert.Equal(t, 2, result.Summary.Successful)
		assert.Equal(t, 1, result.Summary.Failed)
		assert.Equal(t, 2, result.Summary.TotalSegments)
		assert.Equal(t, 4, result.Summary.TotalStops)
		assert.NotEmpty(t, result.Summary.RunID)

		require.Len(t, result.Files, 3)
		assert.Equal(t, models.StatusError, result.Files[1].Status)
		assert.Equal(t, "doc2.xml", result.Files[1].Filename)

		require.Len(t, result.Segments, 2)
		assert.Equal(t, "doc1.xml", result.Segments[0].SourceFile)
		assert.Equal(t, "ONE", result.Segments[0].LineName)
		assert.Equal(t, "doc3.xml", result.Segments[1].SourceFile)
		assert.Equal(t, "THREE", result.Segments[1].LineName)
	}
}

func TestRunNoSegments(t *testing.T) {
	dir := writeDocs(t, map[string]string{"empty.xml": "<TransXChange/>"})
	paths, err := FindDocuments(dir)
	require.NoError(t, err)

	result, err := (&Runner{}).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Successful)
	assert.ErrorIs(t, result.Err(), ErrNoSegments)
}

func TestRunNoPaths(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRunCancelled(t *testing.T) {
	dir := writeDocs(t, map[string]string{"doc1.xml": document("ONE"), "doc2.xml": document("TWO")})
	paths, err := FindDocuments(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := (&Runner{Workers: 2}).Run(ctx, paths)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Failed)
	assert.Contains(t, result.Files[0].Error, context.Canceled.Error())
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]models.ExtractionResult
	sets    int
}

func (c *memoryCache) Get(_ context.Context, key string) (models.ExtractionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[key]
	return res, ok
}

func (c *memoryCache) Set(_ context.Context, key string, result models.ExtractionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	c.sets++
}

func TestRunWithCache(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"a.xml":      document("ONE"),
		"copy.xml":   document("ONE"),
		"broken.xml": "<TransXChange>",
	})
	paths, err := FindDocuments(dir)
	require.NoError(t, err)

	cache := &memoryCache{entries: make(map[string]models.ExtractionResult)}
	runner := &Runner{Workers: 1, Cache: cache}

	first, err := runner.Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Summary.Successful)
	assert.Equal(t, 1, first.Summary.CacheHits)
	assert.Equal(t, 1, cache.sets)

	second, err := runner.Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Summary.CacheHits)
	assert.Equal(t, 1, second.Summary.Failed)

	var sources []string
	for _, seg := range second.Segments {
		sources = append(sources, seg.SourceFile)
	}
	assert.Equal(t, []string{"a.xml", "copy.xml"}, sources)
}

func TestDocumentKey(t *testing.T) {
	data := []byte("<TransXChange/>")

	key := DocumentKey(data, "suffix", txc.PolicyNull)
	assert.True(t, strings.HasPrefix(key, "doc:"))
	assert.True(t, strings.HasSuffix(key, ":suffix:null"))
	assert.Len(t, key, len("doc:")+16+len(":suffix:null"))

	assert.Equal(t, key, DocumentKey(data, "suffix", txc.PolicyNull))
	assert.NotEqual(t, key, DocumentKey(data, "targeted", txc.PolicyNull))
	assert.NotEqual(t, key, DocumentKey([]byte("<Other/>"), "suffix", txc.PolicyNull))
}
