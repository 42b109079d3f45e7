package db

import (
	"github.com/passbi/txc_segments/internal/models"
)

const segmentSelectColumns = `source_file, section_id, timing_link_id,
	from_stop_id, from_stop_name, from_latitude, from_longitude, from_sequence,
	from_timing_status, from_activity, to_stop_id, to_stop_name, to_latitude,
	to_longitude, to_sequence, to_timing_status, to_activity, runtime_raw,
	runtime_seconds, route_link_ref, line_name, operator_name, service_code,
	service_origin, service_destination`

// rowScanner is satisfied by pgx.Rows and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func segmentArgs(runID string, position int, seg models.TimingSegment) []any {
	var runtime any
	if seg.RuntimeSeconds != nil {
		runtime = *seg.RuntimeSeconds
	}
	return []any{
		runID, position, seg.SourceFile, seg.SectionID, seg.TimingLinkID,
		seg.FromStopID, seg.FromStopName, seg.FromLatitude, seg.FromLongitude, seg.FromSequence,
		seg.FromTimingStatus, seg.FromActivity, seg.ToStopID, seg.ToStopName, seg.ToLatitude,
		seg.ToLongitude, seg.ToSequence, seg.ToTimingStatus, seg.ToActivity, seg.RuntimeRaw,
		runtime, seg.RouteLinkRef, seg.LineName, seg.OperatorName, seg.ServiceCode,
		seg.ServiceOrigin, seg.ServiceDestination,
	}
}

func scanSegment(row rowScanner) (models.TimingSegment, error) {
	var seg models.TimingSegment
	var runtime *int64
	err := row.Scan(
		&seg.SourceFile, &seg.SectionID, &seg.TimingLinkID,
		&seg.FromStopID, &seg.FromStopName, &seg.FromLatitude, &seg.FromLongitude, &seg.FromSequence,
		&seg.FromTimingStatus, &seg.FromActivity, &seg.ToStopID, &seg.ToStopName, &seg.ToLatitude,
		&seg.ToLongitude, &seg.ToSequence, &seg.ToTimingStatus, &seg.ToActivity, &seg.RuntimeRaw,
		&runtime, &seg.RouteLinkRef, &seg.LineName, &seg.OperatorName, &seg.ServiceCode,
		&seg.ServiceOrigin, &seg.ServiceDestination,
	)
	if err != nil {
		return seg, err
	}
	if runtime != nil {
		v := int(*runtime)
		seg.RuntimeSeconds = &v
	}
	return seg, nil
}
