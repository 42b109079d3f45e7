package models

import (
	"strconv"
	"time"
)

// ExtractionStatus is the outcome of processing one document
type ExtractionStatus string

const (
	StatusSuccess ExtractionStatus = "success"
	StatusError   ExtractionStatus = "error"
)

// UnknownOperatorID is the key used for operators without an id attribute
const UnknownOperatorID = "unknown"

// StopRecord represents a stop point declared in a document
// Coordinates keep their original textual precision
type StopRecord struct {
	StopID    string
	StopName  string
	Locality  string
	Latitude  string
	Longitude string
}

// OperatorRecord represents an operator declared in a document
type OperatorRecord struct {
	OperatorID    string
	NationalCode  string
	OperatorCode  string
	OperatorName  string
	LicenceNumber string
}

// ServiceRecord represents the (single) service of a document
type ServiceRecord struct {
	ServiceCode         string
	LineName            string
	Origin              string
	Destination         string
	OutboundDescription string
	InboundDescription  string
	StartDate           string
	EndDate             string
	PublicUse           string
}

// JourneyPatternRecord represents a journey pattern declared under a service
type JourneyPatternRecord struct {
	ID                 string
	DestinationDisplay string
	Direction          string
	RouteRef           string
	SectionRefs        []string
}

// TimingSegment is one stop-to-stop travel segment with denormalized metadata
type TimingSegment struct {
	SourceFile   string `json:"source_file"`
	SectionID    string `json:"section_id"`
	TimingLinkID string `json:"timing_link_id"`

	FromStopID       string `json:"from_stop_id"`
	FromStopName     string `json:"from_stop_name"`
	FromLatitude     string `json:"from_latitude"`
	FromLongitude    string `json:"from_longitude"`
	FromSequence     string `json:"from_sequence"`
	FromTimingStatus string `json:"from_timing_status"`
	FromActivity     string `json:"from_activity"`

	ToStopID       string `json:"to_stop_id"`
	ToStopName     string `json:"to_stop_name"`
	ToLatitude     string `json:"to_latitude"`
	ToLongitude    string `json:"to_longitude"`
	ToSequence     string `json:"to_sequence"`
	ToTimingStatus string `json:"to_timing_status"`
	ToActivity     string `json:"to_activity"`

	RuntimeRaw     string `json:"runtime_raw"`
	RuntimeSeconds *int   `json:"runtime_seconds"` // nil when the run time could not be decoded
	RouteLinkRef   string `json:"route_link_ref"`

	LineName           string `json:"line_name"`
	OperatorName       string `json:"operator_name"`
	ServiceCode        string `json:"service_code"`
	ServiceOrigin      string `json:"service_origin"`
	ServiceDestination string `json:"service_destination"`
}

// Field returns the textual value of a column by name
// The second return value is false for unknown column names
func (s TimingSegment) Field(name string) (string, bool) {
	switch name {
	case "source_file":
		return s.SourceFile, true
	case "section_id":
		return s.SectionID, true
	case "timing_link_id":
		return s.TimingLinkID, true
	case "from_stop_id":
		return s.FromStopID, true
	case "from_stop_name":
		return s.FromStopName, true
	case "from_latitude":
		return s.FromLatitude, true
	case "from_longitude":
		return s.FromLongitude, true
	case "from_sequence":
		return s.FromSequence, true
	case "from_timing_status":
		return s.FromTimingStatus, true
	case "from_activity":
		return s.FromActivity, true
	case "to_stop_id":
		return s.ToStopID, true
	case "to_stop_name":
		return s.ToStopName, true
	case "to_latitude":
		return s.ToLatitude, true
	case "to_longitude":
		return s.ToLongitude, true
	case "to_sequence":
		return s.ToSequence, true
	case "to_timing_status":
		return s.ToTimingStatus, true
	case "to_activity":
		return s.ToActivity, true
	case "runtime_raw":
		return s.RuntimeRaw, true
	case "runtime_seconds":
		if s.RuntimeSeconds == nil {
			return "", true
		}
		return strconv.Itoa(*s.RuntimeSeconds), true
	case "route_link_ref":
		return s.RouteLinkRef, true
	case "line_name":
		return s.LineName, true
	case "operator_name":
		return s.OperatorName, true
	case "service_code":
		return s.ServiceCode, true
	case "service_origin":
		return s.ServiceOrigin, true
	case "service_destination":
		return s.ServiceDestination, true
	}
	return "", false
}

// ExtractionResult is the per-document outcome of an extraction
type ExtractionResult struct {
	Filename       string           `json:"filename"`
	StopsFound     int              `json:"stops_found"`
	OperatorsFound int              `json:"operators_found"`
	ServicesFound  int              `json:"services_found"`
	PatternsFound  int              `json:"journey_patterns_found"`
	SegmentsFound  int              `json:"segments_found"`
	Status         ExtractionStatus `json:"status"`
	Error          string           `json:"error,omitempty"`
	Segments       []TimingSegment  `json:"segments"`
	CacheHit       bool             `json:"-"`
}

// FailedResult builds the result reported for a document that could not be processed
func FailedResult(filename string, err error) ExtractionResult {
	return ExtractionResult{
		Filename: filename,
		Status:   StatusError,
		Error:    err.Error(),
		Segments: []TimingSegment{},
	}
}

// OK reports whether the document was processed successfully
func (r ExtractionResult) OK() bool {
	return r.Status == StatusSuccess
}

// BatchSummary aggregates per-document counts across a run
type BatchSummary struct {
	RunID         string        `json:"run_id"`
	TotalFiles    int           `json:"total_files"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	TotalSegments int           `json:"total_segments"`
	TotalStops    int           `json:"total_stops"`
	CacheHits     int           `json:"cache_hits"`
	Duration      time.Duration `json:"duration"`
}

// FieldQuality is the completeness of one column over a segment set
type FieldQuality struct {
	Field        string  `json:"field"`
	Populated    int     `json:"populated"`
	Completeness float64 `json:"completeness"`
}

// UniqueStop is a stop as seen from extracted segments
type UniqueStop struct {
	StopID    string `json:"stop_id"`
	StopName  string `json:"stop_name"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// SegmentFeatures is the tabular input expected by the travel time model
type SegmentFeatures struct {
	LineName          string
	SegmentDistanceKm float64
	IsTimingPoint     bool
	IsPickup          bool
	LatDiff           float64
	LonDiff           float64
	HeadingNS         float64
	HeadingEW         float64
	RuntimeSeconds    *int
}

// ImportRun represents a persisted extraction run
type ImportRun struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Status        string     `json:"status"`
	InputDir      string     `json:"input_dir"`
	Strategy      string     `json:"strategy"`
	TotalFiles    int        `json:"total_files"`
	Successful    int        `json:"successful"`
	Failed        int        `json:"failed"`
	TotalSegments int        `json:"total_segments"`
	Message       string     `json:"message,omitempty"`
}
