package app

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"goconform/internal/testkit"
)

func TestReportBuilder_Markdown(t *testing.T) {
	kit := testkit.NewTestKit()
	record := kit.MakeRecord("knn", 0.1)

	md := NewReportBuilder().Markdown(record)

	assert.Contains(t, md, fmt.Sprintf("# Calibration Run %s", record.ID))
	assert.Contains(t, md, "| Classifier | knn |")
	assert.Contains(t, md, "| Alpha | 0.1000 |")
	assert.Contains(t, md, "| Target coverage | 0.9000 |")
	assert.Contains(t, md, "| Threshold | 0.370000 |")
	assert.Contains(t, md, "| Classes | 0, 1, 2 |")
	assert.Contains(t, md, "## Set Size Distribution")
	assert.Contains(t, md, "guarantee of 0.9000 was met")
}

func TestReportBuilder_MarkdownMissedCoverage(t *testing.T) {
	kit := testkit.NewTestKit()
	record := kit.MakeRecord("centroid", 0.1)
	record.Evaluation.EmpiricalCoverage = 0.85

	md := NewReportBuilder().Markdown(record)
	assert.Contains(t, md, "was missed")
}

func TestReportBuilder_HTML(t *testing.T) {
	kit := testkit.NewTestKit()
	record := kit.MakeRecord("knn", 0.05)

	html := string(NewReportBuilder().HTML(record))

	assert.True(t, strings.Contains(html, "<html>") || strings.Contains(html, "<html "),
		"expected a complete HTML page")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, record.ID.String())
}
