package tourimport

import (
	"fmt"
	"strings"
	"time"
)

// maxReportedErrors bounds how many errors a rendered report lists
// before truncating with an "and N more" tail.
const maxReportedErrors = 10

// RenderReport formats an import report for human consumption. It is a
// pure function: the same report always renders the same text.
func RenderReport(report *ImportReport) string {
	var b strings.Builder

	b.WriteString("Import report\n")
	b.WriteString("=============\n\n")
	fmt.Fprintf(&b, "Records:        %d total, %d succeeded, %d failed\n",
		report.TotalRecords, report.Succeeded, report.Failed)
	fmt.Fprintf(&b, "Images:         %d total, %d migrated, %d skipped, %d failed\n",
		report.TotalImages, report.MigratedImages, report.SkippedImages, report.FailedImages)
	fmt.Fprintf(&b, "Success rate:   %s\n", successRate(report.MigratedImages, report.TotalImages-report.SkippedImages))
	fmt.Fprintf(&b, "Storage used:   %s\n", formatBytes(report.StorageBytes))
	fmt.Fprintf(&b, "Elapsed:        %s\n", report.Duration.Round(time.Millisecond))

	writeErrorList(&b, report.Errors)
	return b.String()
}

// RenderValidationReport formats a dry-run validation summary.
func RenderValidationReport(report *ValidationReport) string {
	var b strings.Builder

	b.WriteString("Validation report\n")
	b.WriteString("=================\n\n")
	fmt.Fprintf(&b, "Rows:           %d total, %d valid, %d invalid\n",
		report.TotalRows, report.ValidRecords, len(report.InvalidRecords))
	fmt.Fprintf(&b, "Violations:     %d\n", report.Violations)

	if len(report.InvalidRecords) > 0 {
		b.WriteString("\nInvalid records:\n")
		shown := report.InvalidRecords
		if len(shown) > maxReportedErrors {
			shown = shown[:maxReportedErrors]
		}
		for _, rec := range shown {
			identity := rec.Identity
			if identity == "" {
				identity = "(no identity)"
			}
			fmt.Fprintf(&b, "  row %d %s: %s\n", rec.Row, identity, strings.Join(rec.Errors, "; "))
		}
		if rest := len(report.InvalidRecords) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}

	return b.String()
}

// RenderStats formats pipeline observability counters.
func RenderStats(stats *PipelineStats) string {
	var b strings.Builder

	b.WriteString("Pipeline stats\n")
	b.WriteString("==============\n\n")
	fmt.Fprintf(&b, "Pages:          %d\n", stats.Rows.Pages)
	fmt.Fprintf(&b, "Categories:     %d\n", stats.Rows.Categories)
	fmt.Fprintf(&b, "Page links:     %d\n", stats.Rows.PageCategories)
	fmt.Fprintf(&b, "Tours:          %d\n", stats.Rows.Tours)
	fmt.Fprintf(&b, "Images:         %d\n", stats.Rows.Images)
	fmt.Fprintf(&b, "Objects:        %d (%s)\n", stats.Store.ObjectCount, formatBytes(stats.Store.TotalBytes))
	return b.String()
}

func writeErrorList(b *strings.Builder, errs []*RunError) {
	if len(errs) == 0 {
		return
	}

	b.WriteString("\nErrors:\n")
	shown := errs
	if len(shown) > maxReportedErrors {
		shown = shown[:maxReportedErrors]
	}
	for _, e := range shown {
		identity := e.Identity
		if identity == "" {
			identity = "(no identity)"
		}
		if e.Row > 0 {
			fmt.Fprintf(b, "  row %d %s [%s]: %s\n", e.Row, identity, e.Stage, e.Error())
		} else {
			fmt.Fprintf(b, "  %s [%s]: %s\n", identity, e.Stage, e.Error())
		}
	}
	if rest := len(errs) - len(shown); rest > 0 {
		fmt.Fprintf(b, "  ... and %d more\n", rest)
	}
}

// successRate excludes skips from the denominator: a legitimately absent
// source image is neither success nor failure.
func successRate(succeeded, attempted int) string {
	if attempted <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(succeeded)/float64(attempted)*100)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
