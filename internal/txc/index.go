package txc

import (
	"strings"

	"github.com/passbi/txc_segments/internal/models"
)

// Document is the extraction context for one source document
// A Document is built fresh for every file and never shared between files.
type Document struct {
	SourceFile string
	Root       *Node
	Namespace  Namespace
	Strategy   Strategy
}

// NewDocument resolves the namespace of root and binds the lookup strategy
func NewDocument(sourceFile string, root *Node, strategy Strategy) *Document {
	return &Document{
		SourceFile: sourceFile,
		Root:       root,
		Namespace:  ResolveNamespace(root),
		Strategy:   strategy,
	}
}

func (d *Document) find(container string, locals ...string) []*Node {
	return d.Strategy.Find(d.Namespace, d.Root, container, locals...)
}

func (d *Document) first(n *Node, path ...string) *Node {
	if found := d.Strategy.Lookup(d.Namespace, n, path...); len(found) > 0 {
		return found[0]
	}
	return nil
}

func (d *Document) children(n *Node, local string) []*Node {
	var found []*Node
	if n == nil {
		return found
	}
	for _, c := range n.Children {
		if d.Strategy.Match(d.Namespace, c, local) {
			found = append(found, c)
		}
	}
	return found
}

func (d *Document) child(n *Node, local string) *Node {
	if found := d.children(n, local); len(found) > 0 {
		return found[0]
	}
	return nil
}

// text returns the first non-empty text among the candidate paths
func (d *Document) text(n *Node, candidates ...[]string) string {
	for _, path := range candidates {
		if v := d.first(n, path...).Text(); v != "" {
			return v
		}
	}
	return ""
}

func path(steps ...string) []string {
	return steps
}

// Index holds the reference data of one document, keyed by natural IDs
type Index struct {
	Stops           map[string]models.StopRecord
	Operators       map[string]models.OperatorRecord
	Service         *models.ServiceRecord
	JourneyPatterns []models.JourneyPatternRecord

	operatorOrder []string
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{
		Stops:     make(map[string]models.StopRecord),
		Operators: make(map[string]models.OperatorRecord),
	}
}

// Stop returns the stop with the given ID
func (idx *Index) Stop(stopID string) (models.StopRecord, bool) {
	if stopID == "" {
		return models.StopRecord{}, false
	}
	stop, ok := idx.Stops[stopID]
	return stop, ok
}

// FirstOperator returns the first operator declared in the document
func (idx *Index) FirstOperator() (models.OperatorRecord, bool) {
	if len(idx.operatorOrder) == 0 {
		return models.OperatorRecord{}, false
	}
	return idx.Operators[idx.operatorOrder[0]], true
}

// ServiceCount returns 1 when a service was found, 0 otherwise
func (idx *Index) ServiceCount() int {
	if idx.Service == nil {
		return 0
	}
	return 1
}

// BuildIndex extracts stops, operators and the service of a document
func BuildIndex(doc *Document) *Index {
	idx := NewIndex()
	extractStops(doc, idx)
	extractOperators(doc, idx)
	extractService(doc, idx)
	return idx
}

func extractStops(doc *Document, idx *Index) {
	for _, el := range doc.find("StopPoints", "AnnotatedStopPointRef", "StopPoint") {
		stopID := doc.text(el, path("StopPointRef"), path("AtcoCode"))
		if stopID == "" {
			continue
		}

		stop := models.StopRecord{
			StopID:    stopID,
			StopName:  doc.text(el, path("CommonName"), path("Descriptor", "CommonName")),
			Locality:  doc.text(el, path("LocalityName"), path("Place", "LocalityName")),
			Latitude:  coordinate(doc, el, "Latitude"),
			Longitude: coordinate(doc, el, "Longitude"),
		}

		if existing, ok := idx.Stops[stopID]; ok {
			stop = mergeStop(existing, stop)
		}
		idx.Stops[stopID] = stop
	}
}

// coordinate resolves a coordinate through a Location container when present
func coordinate(doc *Document, el *Node, local string) string {
	return doc.text(el,
		path("Location", local),
		path("Location", "Translation", local),
		path("Place", "Location", local),
		path("Place", "Location", "Translation", local),
		path(local),
	)
}

// mergeStop fills empty fields of an earlier declaration from a later one
func mergeStop(existing, later models.StopRecord) models.StopRecord {
	if existing.StopName == "" {
		existing.StopName = later.StopName
	}
	if existing.Locality == "" {
		existing.Locality = later.Locality
	}
	if existing.Latitude == "" {
		existing.Latitude = later.Latitude
	}
	if existing.Longitude == "" {
		existing.Longitude = later.Longitude
	}
	return existing
}

func extractOperators(doc *Document, idx *Index) {
	for _, el := range doc.find("Operators", "Operator", "LicensedOperator") {
		opID := el.Attr("id", "")
		if opID == "" {
			opID = models.UnknownOperatorID
		}

		op := models.OperatorRecord{
			OperatorID:    opID,
			NationalCode:  doc.text(el, path("NationalOperatorCode")),
			OperatorCode:  doc.text(el, path("OperatorCode")),
			OperatorName:  doc.text(el, path("OperatorShortName"), path("TradingName"), path("OperatorNameOnLicence")),
			LicenceNumber: doc.text(el, path("LicenceNumber")),
		}

		if _, ok := idx.Operators[opID]; !ok {
			idx.operatorOrder = append(idx.operatorOrder, opID)
		}
		idx.Operators[opID] = op
	}
}

func extractService(doc *Document, idx *Index) {
	services := doc.find("Services", "Service")
	if len(services) == 0 {
		return
	}
	svc := services[0]

	idx.Service = &models.ServiceRecord{
		ServiceCode:         doc.text(svc, path("ServiceCode")),
		LineName:            doc.text(svc, path("Lines", "Line", "LineName"), path("LineName")),
		Origin:              doc.text(svc, path("StandardService", "Origin"), path("Origin")),
		Destination:         doc.text(svc, path("StandardService", "Destination"), path("Destination")),
		OutboundDescription: doc.text(svc, path("Lines", "Line", "OutboundDescription", "Description"), path("OutboundDescription", "Description")),
		InboundDescription:  doc.text(svc, path("Lines", "Line", "InboundDescription", "Description"), path("InboundDescription", "Description")),
		StartDate:           doc.text(svc, path("OperatingPeriod", "StartDate"), path("StartDate")),
		EndDate:             doc.text(svc, path("OperatingPeriod", "EndDate"), path("EndDate")),
		PublicUse:           doc.text(svc, path("PublicUse")),
	}

	for _, jp := range doc.Strategy.Lookup(doc.Namespace, svc, "StandardService", "JourneyPattern") {
		var refs []string
		for _, ref := range doc.children(jp, "JourneyPatternSectionRefs") {
			refs = append(refs, strings.Fields(ref.Text())...)
		}
		idx.JourneyPatterns = append(idx.JourneyPatterns, models.JourneyPatternRecord{
			ID:                 jp.Attr("id", ""),
			DestinationDisplay: doc.text(jp, path("DestinationDisplay")),
			Direction:          doc.text(jp, path("Direction")),
			RouteRef:           doc.text(jp, path("RouteRef")),
			SectionRefs:        refs,
		})
	}
}
