package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/passbi/txc_segments/internal/models"
)

var featureColumns = []string{
	"line_name",
	"segment_distance_km",
	"is_timing_point",
	"is_pickup",
	"lat_diff",
	"lon_diff",
	"heading_ns",
	"heading_ew",
	"runtime_seconds",
}

// DeriveFeatures computes model inputs for one segment
// Returns false when either end of the segment has no usable coordinates.
func DeriveFeatures(seg models.TimingSegment) (models.SegmentFeatures, bool) {
	fromLat, err1 := strconv.ParseFloat(seg.FromLatitude, 64)
	fromLon, err2 := strconv.ParseFloat(seg.FromLongitude, 64)
	toLat, err3 := strconv.ParseFloat(seg.ToLatitude, 64)
	toLon, err4 := strconv.ParseFloat(seg.ToLongitude, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.SegmentFeatures{}, false
	}

	f := models.SegmentFeatures{
		LineName:          seg.LineName,
		SegmentDistanceKm: haversineDistance(fromLat, fromLon, toLat, toLon) / 1000,
		IsTimingPoint:     isTimingPoint(seg.FromTimingStatus),
		IsPickup:          isPickup(seg.FromActivity),
		LatDiff:           toLat - fromLat,
		LonDiff:           toLon - fromLon,
		RuntimeSeconds:    seg.RuntimeSeconds,
	}

	// Headings stay 0 for zero-length segments
	if f.SegmentDistanceKm > 0 {
		b := bearing(fromLat, fromLon, toLat, toLon)
		f.HeadingNS = math.Cos(b)
		f.HeadingEW = math.Sin(b)
	}

	return f, true
}

// DeriveAllFeatures derives features for every segment with coordinates
func DeriveAllFeatures(segments []models.TimingSegment) []models.SegmentFeatures {
	var features []models.SegmentFeatures
	for _, seg := range segments {
		if f, ok := DeriveFeatures(seg); ok {
			features = append(features, f)
		}
	}
	return features
}

func isTimingPoint(status string) bool {
	return status == "PTP" || status == "principalTimingPoint"
}

// isPickup treats a missing activity as pickUpAndSetDown, the schema default
func isPickup(activity string) bool {
	switch activity {
	case "", "pickUp", "pickUpAndSetDown":
		return true
	}
	return false
}

// haversineDistance calculates the distance between two points in meters
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// bearing returns the initial great-circle bearing in radians, clockwise from north
func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(deltaLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)
	return math.Atan2(y, x)
}

// WriteFeaturesCSV writes the feature table with a header row
func WriteFeaturesCSV(w io.Writer, features []models.SegmentFeatures) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(featureColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, f := range features {
		runtime := ""
		if f.RuntimeSeconds != nil {
			runtime = strconv.Itoa(*f.RuntimeSeconds)
		}
		row := []string{
			f.LineName,
			formatFloat(f.SegmentDistanceKm),
			boolFlag(f.IsTimingPoint),
			boolFlag(f.IsPickup),
			formatFloat(f.LatDiff),
			formatFloat(f.LonDiff),
			formatFloat(f.HeadingNS),
			formatFloat(f.HeadingEW),
			runtime,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write features: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
