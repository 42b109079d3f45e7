package txc

import (
	"github.com/passbi/txc_segments/internal/models"
)

// SegmentStats counts recoverable anomalies met while flattening a document
type SegmentStats struct {
	DroppedLinks      int
	UndecodedRuntimes int
	UnresolvedStops   int
}

type linkPoint struct {
	stopID       string
	sequence     string
	timingStatus string
	activity     string
}

// ExtractSegments flattens the timing links of a document into segments
// Segments follow section order, then link order within a section.
func ExtractSegments(doc *Document, idx *Index, policy RuntimePolicy) ([]models.TimingSegment, SegmentStats) {
	segments := make([]models.TimingSegment, 0)
	var stats SegmentStats

	var service models.ServiceRecord
	if idx.Service != nil {
		service = *idx.Service
	}
	operator, _ := idx.FirstOperator()

	for _, section := range doc.find("JourneyPatternSections", "JourneyPatternSection") {
		sectionID := section.Attr("id", "")

		for _, link := range doc.children(section, "JourneyPatternTimingLink") {
			from := readLinkPoint(doc, doc.child(link, "From"))
			to := readLinkPoint(doc, doc.child(link, "To"))

			if from.stopID == "" && to.stopID == "" && doc.Strategy.DropEmptyLinks() {
				stats.DroppedLinks++
				continue
			}

			runtimeRaw := doc.text(link, path("RunTime"))
			runtime := DecodeRuntime(runtimeRaw, policy)
			if _, ok := ParseDuration(runtimeRaw); runtimeRaw != "" && !ok {
				stats.UndecodedRuntimes++
			}

			seg := models.TimingSegment{
				SourceFile:   doc.SourceFile,
				SectionID:    sectionID,
				TimingLinkID: link.Attr("id", ""),

				FromStopID:       from.stopID,
				FromSequence:     from.sequence,
				FromTimingStatus: from.timingStatus,
				FromActivity:     from.activity,

				ToStopID:       to.stopID,
				ToSequence:     to.sequence,
				ToTimingStatus: to.timingStatus,
				ToActivity:     to.activity,

				RuntimeRaw:     runtimeRaw,
				RuntimeSeconds: runtime,
				RouteLinkRef:   doc.text(link, path("RouteLinkRef")),

				LineName:           service.LineName,
				OperatorName:       operator.OperatorName,
				ServiceCode:        service.ServiceCode,
				ServiceOrigin:      service.Origin,
				ServiceDestination: service.Destination,
			}

			if stop, ok := idx.Stop(from.stopID); ok {
				seg.FromStopName = stop.StopName
				seg.FromLatitude = stop.Latitude
				seg.FromLongitude = stop.Longitude
			} else if from.stopID != "" {
				stats.UnresolvedStops++
			}

			if stop, ok := idx.Stop(to.stopID); ok {
				seg.ToStopName = stop.StopName
				seg.ToLatitude = stop.Latitude
				seg.ToLongitude = stop.Longitude
			} else if to.stopID != "" {
				stats.UnresolvedStops++
			}

			segments = append(segments, seg)
		}
	}

	return segments, stats
}

func readLinkPoint(doc *Document, el *Node) linkPoint {
	if el == nil {
		return linkPoint{}
	}

	seq := el.Attr("SequenceNumber", "")
	if seq == "" {
		seq = doc.child(el, "SequenceNumber").Text()
	}

	return linkPoint{
		stopID:       doc.text(el, path("StopPointRef")),
		sequence:     seq,
		timingStatus: doc.text(el, path("TimingStatus")),
		activity:     doc.text(el, path("Activity")),
	}
}
