package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/passbi/txc_segments/internal/models"
	"github.com/passbi/txc_segments/internal/quality"
)

const rule = "======================================================================"

// PrintSummary writes the end-of-run report
func PrintSummary(w io.Writer, summary models.BatchSummary, report quality.Report, outputs ...string) {
	fmt.Fprintf(w, "\n%s\n  EXTRACTION COMPLETE\n%s\n", rule, rule)

	fmt.Fprintf(w, "\n  Run: %s (%s)\n", summary.RunID, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n  Files Processed: %d\n", summary.TotalFiles)
	fmt.Fprintf(w, "    - Successful: %d\n", summary.Successful)
	fmt.Fprintf(w, "    - Failed: %d\n", summary.Failed)
	if summary.CacheHits > 0 {
		fmt.Fprintf(w, "    - From cache: %d\n", summary.CacheHits)
	}

	fmt.Fprintf(w, "\n  Data Extracted:\n")
	fmt.Fprintf(w, "    - Total Segments: %d\n", summary.TotalSegments)
	fmt.Fprintf(w, "    - Total Stops: %d\n", summary.TotalStops)

	if len(report) > 0 {
		fmt.Fprintf(w, "\n  Data Quality (%% populated):\n  %s\n", strings.Repeat("-", 40))
		for _, fq := range report {
			fmt.Fprintf(w, "  %s %-20s [%s] %.2f%%\n", quality.StatusOf(fq.Completeness), fq.Field, Bar(fq.Completeness), fq.Completeness)
		}
	}

	if len(outputs) > 0 {
		fmt.Fprintf(w, "\n  Output Files:\n")
		for _, out := range outputs {
			fmt.Fprintf(w, "    - %s\n", out)
		}
	}

	fmt.Fprintf(w, "\n%s\n", rule)
}

// Bar renders a completeness percentage as a 20 character gauge
func Bar(completeness float64) string {
	n := int(completeness / 5)
	if n < 0 {
		n = 0
	}
	if n > 20 {
		n = 20
	}
	return strings.Repeat("|", n) + strings.Repeat(".", 20-n)
}
