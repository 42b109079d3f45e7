package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/passbi/txc_segments/internal/models"
)

// TimestampLayout is used in output file names
const TimestampLayout = "20060102_150405"

// SegmentColumns is the column order of the segment table
// Identification and the fields most used downstream come first.
var SegmentColumns = []string{
	"source_file", "line_name", "operator_name",
	"from_stop_id", "from_stop_name", "from_latitude", "from_longitude",
	"to_stop_id", "to_stop_name", "to_latitude", "to_longitude",
	"runtime_raw", "runtime_seconds", "from_sequence", "to_sequence",
	"from_timing_status", "to_timing_status", "from_activity",
	"service_origin", "service_destination", "service_code",
	"section_id", "timing_link_id", "route_link_ref",
	"to_activity",
}

var stopColumns = []string{"stop_id", "stop_name", "latitude", "longitude"}

// OutputFiles names the files written for one run
type OutputFiles struct {
	Segments string
	Stops    string
	Features string
}

// NewOutputFiles builds timestamped output paths under dir
func NewOutputFiles(dir string, at time.Time) OutputFiles {
	ts := at.Format(TimestampLayout)
	return OutputFiles{
		Segments: filepath.Join(dir, fmt.Sprintf("bus_segments_extracted_%s.csv", ts)),
		Stops:    filepath.Join(dir, fmt.Sprintf("bus_stops_unique_%s.csv", ts)),
		Features: filepath.Join(dir, fmt.Sprintf("bus_segment_features_%s.csv", ts)),
	}
}

// WriteSegmentsCSV writes segments with a header row
func WriteSegmentsCSV(w io.Writer, segments []models.TimingSegment) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SegmentColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(SegmentColumns))
	for _, seg := range segments {
		for i, col := range SegmentColumns {
			row[i], _ = seg.Field(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write segment %s: %w", seg.TimingLinkID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// UniqueStops collects the stops referenced by segments
// The first occurrence of a stop ID wins and empty IDs are skipped.
func UniqueStops(segments []models.TimingSegment) []models.UniqueStop {
	seen := make(map[string]bool)
	var stops []models.UniqueStop

	add := func(stop models.UniqueStop) {
		if stop.StopID == "" || seen[stop.StopID] {
			return
		}
		seen[stop.StopID] = true
		stops = append(stops, stop)
	}

	for _, seg := range segments {
		add(models.UniqueStop{
			StopID:    seg.FromStopID,
			StopName:  seg.FromStopName,
			Latitude:  seg.FromLatitude,
			Longitude: seg.FromLongitude,
		})
		add(models.UniqueStop{
			StopID:    seg.ToStopID,
			StopName:  seg.ToStopName,
			Latitude:  seg.ToLatitude,
			Longitude: seg.ToLongitude,
		})
	}

	return stops
}

// WriteStopsCSV writes unique stops with a header row
func WriteStopsCSV(w io.Writer, stops []models.UniqueStop) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(stopColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range stops {
		if err := cw.Write([]string{s.StopID, s.StopName, s.Latitude, s.Longitude}); err != nil {
			return fmt.Errorf("failed to write stop %s: %w", s.StopID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile creates path and fills it with write
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}
