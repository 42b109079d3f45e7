package txc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/passbi/txc_segments/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractDoc(t *testing.T, name, xmlDoc string, strategy Strategy, policy RuntimePolicy) ([]models.TimingSegment, SegmentStats) {
	t.Helper()
	doc := mustDocument(t, name, xmlDoc, strategy)
	return ExtractSegments(doc, BuildIndex(doc), policy)
}

func TestExtractSegmentsSingleLink(t *testing.T) {
	runtime := 90
	expected := models.TimingSegment{
		SourceFile:         "diamond.xml",
		SectionID:          "JPS1",
		TimingLinkID:       "JPTL1",
		FromStopID:         "S1",
		FromStopName:       "High Street",
		FromLatitude:       "51.0",
		FromLongitude:      "-1.0",
		FromSequence:       "1",
		FromTimingStatus:   "PTP",
		FromActivity:       "pickUp",
		ToStopID:           "S2",
		ToStopName:         "Market Square",
		ToLatitude:         "51.01",
		ToLongitude:        "-1.01",
		ToSequence:         "2",
		ToTimingStatus:     "OTH",
		RuntimeRaw:         "PT1M30S",
		RuntimeSeconds:     &runtime,
		RouteLinkRef:       "RL1",
		LineName:           "DIAM_14",
		OperatorName:       "Diamond Bus",
		ServiceCode:        "PB0001:14",
		ServiceOrigin:      "Town Centre",
		ServiceDestination: "Retail Park",
	}

	for _, strategy := range GetAllStrategies() {
		for _, policy := range []RuntimePolicy{PolicyZero, PolicyNull} {
			t.Run(strategy.Name()+"/"+string(policy), func(t *testing.T) {
				segments, stats := extractDoc(t, "diamond.xml", diamondDoc, strategy, policy)

				require.Len(t, segments, 1)
				assert.Equal(t, expected, segments[0])
				assert.Equal(t, SegmentStats{}, stats)
			})
		}
	}
}

func TestExtractSegmentsIdempotent(t *testing.T) {
	first, _ := extractDoc(t, "diamond.xml", diamondDoc, &SuffixScanStrategy{}, PolicyNull)
	second, _ := extractDoc(t, "diamond.xml", diamondDoc, &SuffixScanStrategy{}, PolicyNull)
	assert.Equal(t, first, second)
}

func TestExtractSegmentsSchemaDrift(t *testing.T) {
	t.Run("Suffix scan drops links without stops", func(t *testing.T) {
		segments, stats := extractDoc(t, "drift.xml", driftDoc, &SuffixScanStrategy{}, PolicyNull)

		require.Len(t, segments, 2)
		assert.Equal(t, "L1", segments[0].TimingLinkID)
		assert.Equal(t, "L3", segments[1].TimingLinkID)
		assert.Equal(t, 1, stats.DroppedLinks)
		assert.Equal(t, 1, stats.UndecodedRuntimes)
		assert.Equal(t, 1, stats.UnresolvedStops)

		l1 := segments[0]
		assert.Equal(t, "4", l1.FromSequence)
		assert.Equal(t, "Depot", l1.FromStopName)
		assert.Equal(t, "52.5", l1.FromLatitude)
		assert.Equal(t, "UNKNOWN", l1.ToStopID)
		assert.Empty(t, l1.ToStopName)
		assert.Empty(t, l1.ToLatitude)
		assert.Empty(t, l1.ToLongitude)
		assert.Equal(t, "soon", l1.RuntimeRaw)
		assert.Nil(t, l1.RuntimeSeconds)

		l3 := segments[1]
		assert.Empty(t, l3.FromStopID)
		assert.Equal(t, "A1", l3.ToStopID)
		assert.Equal(t, "Depot", l3.ToStopName)
		assert.Empty(t, l3.RuntimeRaw)
		assert.Nil(t, l3.RuntimeSeconds)
	})

	t.Run("Targeted lookup keeps links without stops", func(t *testing.T) {
		segments, stats := extractDoc(t, "drift.xml", driftDoc, &TargetedStrategy{}, PolicyZero)

		require.Len(t, segments, 3)
		assert.Equal(t, []string{"L1", "L2", "L3"}, []string{
			segments[0].TimingLinkID, segments[1].TimingLinkID, segments[2].TimingLinkID,
		})
		assert.Equal(t, 0, stats.DroppedLinks)

		l2 := segments[1]
		assert.Empty(t, l2.FromStopID)
		assert.Empty(t, l2.ToStopID)
		require.NotNil(t, l2.RuntimeSeconds)
		assert.Equal(t, 120, *l2.RuntimeSeconds)

		require.NotNil(t, segments[0].RuntimeSeconds)
		assert.Equal(t, 0, *segments[0].RuntimeSeconds)
	})

	t.Run("Missing service and operator stamp empty metadata", func(t *testing.T) {
		segments, _ := extractDoc(t, "drift.xml", driftDoc, &SuffixScanStrategy{}, PolicyNull)
		for _, seg := range segments {
			assert.Empty(t, seg.LineName)
			assert.Empty(t, seg.ServiceCode)
			assert.Equal(t, "Drift Coaches", seg.OperatorName)
		}
	})
}

func TestExtractSegmentsEmptySection(t *testing.T) {
	doc := `<TransXChange>
  <JourneyPatternSections>
    <JourneyPatternSection id="EMPTY"/>
  </JourneyPatternSections>
</TransXChange>`

	for _, strategy := range GetAllStrategies() {
		segments, stats := extractDoc(t, "empty.xml", doc, strategy, PolicyNull)
		assert.Empty(t, segments, strategy.Name())
		assert.Equal(t, SegmentStats{}, stats)
	}
}

func TestExtractSegmentsOrder(t *testing.T) {
	doc := `<TransXChange>
  <JourneyPatternSections>
    <JourneyPatternSection id="A">
      <JourneyPatternTimingLink id="A1"><From><StopPointRef>X</StopPointRef></From></JourneyPatternTimingLink>
      <JourneyPatternTimingLink id="A2"><From><StopPointRef>Y</StopPointRef></From></JourneyPatternTimingLink>
    </JourneyPatternSection>
    <JourneyPatternSection id="B">
      <JourneyPatternTimingLink id="B1"><To><StopPointRef>Z</StopPointRef></To></JourneyPatternTimingLink>
    </JourneyPatternSection>
  </JourneyPatternSections>
</TransXChange>`

	for _, strategy := range GetAllStrategies() {
		segments, _ := extractDoc(t, "order.xml", doc, strategy, PolicyNull)
		require.Len(t, segments, 3, strategy.Name())

		var ids []string
		for _, seg := range segments {
			ids = append(ids, seg.SectionID+"/"+seg.TimingLinkID)
		}
		assert.Equal(t, []string{"A/A1", "A/A2", "B/B1"}, ids, strategy.Name())
	}
}

func TestExtractorExtractBytes(t *testing.T) {
	e := NewExtractor(Options{})
	assert.Equal(t, "suffix", e.Strategy().Name())
	assert.Equal(t, PolicyNull, e.Policy())

	t.Run("Success", func(t *testing.T) {
		result := e.ExtractBytes("diamond.xml", []byte(diamondDoc))

		assert.True(t, result.OK())
		assert.Empty(t, result.Error)
		assert.Equal(t, 2, result.StopsFound)
		assert.Equal(t, 1, result.OperatorsFound)
		assert.Equal(t, 1, result.ServicesFound)
		assert.Equal(t, 1, result.PatternsFound)
		assert.Equal(t, 1, result.SegmentsFound)
		assert.Len(t, result.Segments, 1)
	})

	t.Run("Malformed document", func(t *testing.T) {
		result := e.ExtractBytes("broken.xml", []byte(diamondDoc[:len(diamondDoc)/2]))

		assert.False(t, result.OK())
		assert.Equal(t, models.StatusError, result.Status)
		assert.Equal(t, "broken.xml", result.Filename)
		assert.NotEmpty(t, result.Error)
		assert.NotNil(t, result.Segments)
		assert.Empty(t, result.Segments)
		assert.Zero(t, result.SegmentsFound)
		assert.Zero(t, result.StopsFound)
	})

	t.Run("Reader", func(t *testing.T) {
		result := e.ExtractReader("reader.xml", strings.NewReader(unqualified(diamondDoc)))
		assert.True(t, result.OK())
		assert.Equal(t, "reader.xml", result.Segments[0].SourceFile)
	})
}

func TestExtractorExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PB0001_14.xml")
	require.NoError(t, os.WriteFile(path, []byte(diamondDoc), 0644))

	e := NewExtractor(Options{Strategy: &TargetedStrategy{}, RuntimePolicy: PolicyZero})

	result := e.ExtractFile(path)
	require.True(t, result.OK())
	assert.Equal(t, "PB0001_14.xml", result.Filename)
	assert.Equal(t, "PB0001_14.xml", result.Segments[0].SourceFile)

	missing := e.ExtractFile(filepath.Join(dir, "missing.xml"))
	assert.False(t, missing.OK())
	assert.Equal(t, "missing.xml", missing.Filename)
}
