package excel

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"goconform/domain/run"
	"goconform/internal/testkit"
)

func TestReportWriter_Write(t *testing.T) {
	kit := testkit.NewTestKit()
	first := kit.MakeRecord("knn", 0.1)
	second := kit.MakeRecord("centroid", 0.2)

	var buf bytes.Buffer
	writer := NewReportWriter()
	if err := writer.Write(&buf, []*run.Record{first, second}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Summary" || sheets[1] != "Runs" {
		t.Errorf("Expected sheets [Summary Runs], got %v", sheets)
	}

	header, err := f.GetCellValue("Runs", "A1")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if header != "Run ID" {
		t.Errorf("Expected Run ID header, got %q", header)
	}

	firstID, _ := f.GetCellValue("Runs", "A2")
	if firstID != first.ID.String() {
		t.Errorf("Expected first run ID %s, got %s", first.ID, firstID)
	}
	secondClassifier, _ := f.GetCellValue("Runs", "C3")
	if secondClassifier != "centroid" {
		t.Errorf("Expected classifier centroid, got %s", secondClassifier)
	}
	alpha, _ := f.GetCellValue("Runs", "D2")
	if alpha != "0.1000" {
		t.Errorf("Expected alpha 0.1000, got %s", alpha)
	}

	runCount, _ := f.GetCellValue("Summary", "B2")
	if runCount != "2" {
		t.Errorf("Expected 2 runs in summary, got %s", runCount)
	}
	classifierList, _ := f.GetCellValue("Summary", "B3")
	if classifierList != "centroid, knn" {
		t.Errorf("Expected sorted classifier list, got %q", classifierList)
	}
	meanGap, _ := f.GetCellValue("Summary", "B6")
	if meanGap != "0.0050" {
		t.Errorf("Expected mean coverage gap 0.0050, got %s", meanGap)
	}
	meeting, _ := f.GetCellValue("Summary", "B8")
	if meeting != "2/2" {
		t.Errorf("Expected 2/2 runs at or above target, got %s", meeting)
	}
}

func TestReportWriter_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	writer := NewReportWriter()
	if err := writer.Write(&buf, nil); err != nil {
		t.Fatalf("Write failed for empty report: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to reopen workbook: %v", err)
	}
	defer f.Close()

	runCount, _ := f.GetCellValue("Summary", "B2")
	if runCount != "0" {
		t.Errorf("Expected 0 runs in summary, got %s", runCount)
	}
	firstRun, _ := f.GetCellValue("Runs", "A2")
	if firstRun != "" {
		t.Errorf("Expected empty runs sheet, got %q", firstRun)
	}
}

func TestReportWriter_WriteFile(t *testing.T) {
	kit := testkit.NewTestKit()
	record := kit.MakeRecord("knn", 0.1)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	writer := NewReportWriter()
	if err := writer.WriteFile(path, []*run.Record{record}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open saved workbook: %v", err)
	}
	defer f.Close()

	id, _ := f.GetCellValue("Runs", "A2")
	if id != record.ID.String() {
		t.Errorf("Expected run ID %s, got %s", record.ID, id)
	}
}
