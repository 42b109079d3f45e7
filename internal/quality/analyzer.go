package quality

import (
	"math"

	"github.com/passbi/txc_segments/internal/models"
)

// KeyFields are the columns reported by default
var KeyFields = []string{
	"from_stop_id",
	"to_stop_id",
	"from_stop_name",
	"to_stop_name",
	"from_latitude",
	"from_longitude",
	"to_latitude",
	"to_longitude",
	"runtime_seconds",
	"line_name",
}

// Report lists field completeness in the order the fields were requested
type Report []models.FieldQuality

// Analyze computes per-field completeness over segments
// An empty segment set yields zero entries for every field.
// runtime_seconds counts only non-zero run times, so a decoded PT0S is
// reported as not populated under either run time policy.
func Analyze(segments []models.TimingSegment, fields []string) Report {
	report := make(Report, 0, len(fields))

	for _, field := range fields {
		populated := 0
		for _, seg := range segments {
			if isPopulated(seg, field) {
				populated++
			}
		}

		var completeness float64
		if len(segments) > 0 {
			completeness = round2(float64(populated) / float64(len(segments)) * 100)
		}

		report = append(report, models.FieldQuality{
			Field:        field,
			Populated:    populated,
			Completeness: completeness,
		})
	}

	return report
}

// isPopulated treats a zero run time as absent, so permissive-mode
// placeholders are not counted as data
func isPopulated(seg models.TimingSegment, field string) bool {
	if field == "runtime_seconds" {
		return seg.RuntimeSeconds != nil && *seg.RuntimeSeconds != 0
	}
	value, ok := seg.Field(field)
	return ok && value != ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Get returns the entry for field
func (r Report) Get(field string) (models.FieldQuality, bool) {
	for _, fq := range r {
		if fq.Field == field {
			return fq, true
		}
	}
	return models.FieldQuality{}, false
}

// Status classifies a field as well (+), partially (~) or poorly (-) populated
func (r Report) Status(field string) string {
	fq, _ := r.Get(field)
	return StatusOf(fq.Completeness)
}

// StatusOf classifies a completeness percentage
func StatusOf(completeness float64) string {
	switch {
	case completeness > 80:
		return "+"
	case completeness > 50:
		return "~"
	default:
		return "-"
	}
}
