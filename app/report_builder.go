package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"goconform/domain/run"
)

// ReportBuilder renders run records into markdown and HTML reports
type ReportBuilder struct{}

// NewReportBuilder creates a report builder
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Markdown renders one run record as a markdown report
func (b *ReportBuilder) Markdown(record *run.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Calibration Run %s\n\n", record.ID)
	fmt.Fprintf(&sb, "Generated %s\n\n", record.CreatedAt.String())

	sb.WriteString("## Configuration\n\n")
	fmt.Fprintf(&sb, "| Parameter | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Classifier | %s |\n", record.Classifier)
	fmt.Fprintf(&sb, "| Alpha | %.4f |\n", record.Alpha)
	fmt.Fprintf(&sb, "| Target coverage | %.4f |\n", record.TargetCoverage())
	fmt.Fprintf(&sb, "| Seed | %d |\n", record.Seed)
	fmt.Fprintf(&sb, "| Dataset | %s (%d samples, %d features, %d classes) |\n",
		record.Dataset.Source, record.Dataset.Samples, record.Dataset.Features, record.Dataset.Classes)
	fmt.Fprintf(&sb, "| Fingerprint | %s |\n\n", record.Dataset.Fingerprint)

	sb.WriteString("## Calibration\n\n")
	fmt.Fprintf(&sb, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Calibration size | %d |\n", record.CalibrationSize)
	fmt.Fprintf(&sb, "| Quantile level | %.6f |\n", record.QuantileLevel)
	fmt.Fprintf(&sb, "| Threshold | %.6f |\n", record.Threshold)
	fmt.Fprintf(&sb, "| Classes | %s |\n\n", formatClasses(record.Classes))

	eval := record.Evaluation
	sb.WriteString("## Held-out Evaluation\n\n")
	fmt.Fprintf(&sb, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Test size | %d |\n", eval.TestSize)
	fmt.Fprintf(&sb, "| Empirical coverage | %.4f |\n", eval.EmpiricalCoverage)
	fmt.Fprintf(&sb, "| Coverage gap | %+.4f |\n", eval.CoverageGap())
	fmt.Fprintf(&sb, "| Accuracy | %.4f |\n", eval.Accuracy)
	fmt.Fprintf(&sb, "| Avg set size | %.3f |\n", eval.AvgSetSize)
	fmt.Fprintf(&sb, "| Median set size | %.1f |\n", eval.MedianSetSize)
	fmt.Fprintf(&sb, "| Empty set rate | %.4f |\n", eval.EmptySetRate)
	fmt.Fprintf(&sb, "| Singleton rate | %.4f |\n", eval.SingletonRate)
	fmt.Fprintf(&sb, "| Full set rate | %.4f |\n\n", eval.FullSetRate)

	if len(eval.SetSizeCounts) > 0 {
		sb.WriteString("## Set Size Distribution\n\n")
		fmt.Fprintf(&sb, "| Set size | Count |\n|---|---|\n")
		sizes := make([]int, 0, len(eval.SetSizeCounts))
		for size := range eval.SetSizeCounts {
			sizes = append(sizes, size)
		}
		sort.Ints(sizes)
		for _, size := range sizes {
			fmt.Fprintf(&sb, "| %d | %d |\n", size, eval.SetSizeCounts[size])
		}
		sb.WriteString("\n")
	}

	verdict := "met"
	if !eval.CoverageWithin(0) {
		verdict = "missed"
	}
	fmt.Fprintf(&sb, "The nominal coverage guarantee of %.4f was %s on the test split (%.4f observed).\n",
		eval.TargetCoverage, verdict, eval.EmpiricalCoverage)

	return sb.String()
}

// HTML renders the markdown report as a standalone HTML document
func (b *ReportBuilder) HTML(record *run.Record) []byte {
	md := b.Markdown(record)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: fmt.Sprintf("Calibration Run %s", record.ID),
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func formatClasses(classes []int) string {
	parts := make([]string, len(classes))
	for i, class := range classes {
		parts[i] = fmt.Sprintf("%d", class)
	}
	return strings.Join(parts, ", ")
}
