package excel

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"

	"goconform/domain/run"
)

// ReportWriter renders calibration run records into an xlsx workbook
// with a Summary sheet and a per-run Runs sheet
type ReportWriter struct{}

// NewReportWriter creates a new report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write renders the workbook into an io.Writer
func (w *ReportWriter) Write(out io.Writer, records []*run.Record) error {
	f, err := w.build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile renders the workbook to a file path
func (w *ReportWriter) WriteFile(path string, records []*run.Record) error {
	f, err := w.build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *ReportWriter) build(records []*run.Record) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet("Runs"); err != nil {
		return nil, fmt.Errorf("failed to create runs sheet: %w", err)
	}

	if err := w.writeSummary(f, records); err != nil {
		return nil, err
	}
	if err := w.writeRuns(f, records); err != nil {
		return nil, err
	}
	return f, nil
}

func (w *ReportWriter) writeSummary(f *excelize.File, records []*run.Record) error {
	classifiers := make(map[string]bool)
	var targets, empiricals, gaps, setSizes []float64
	meeting := 0
	for _, record := range records {
		classifiers[record.Classifier] = true
		targets = append(targets, record.Evaluation.TargetCoverage)
		empiricals = append(empiricals, record.Evaluation.EmpiricalCoverage)
		gaps = append(gaps, record.Evaluation.CoverageGap())
		setSizes = append(setSizes, record.Evaluation.AvgSetSize)
		if record.Evaluation.CoverageWithin(0) {
			meeting++
		}
	}

	names := make([]string, 0, len(classifiers))
	for name := range classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	classifierList := ""
	for i, name := range names {
		if i > 0 {
			classifierList += ", "
		}
		classifierList += name
	}

	rows := [][2]interface{}{
		{"Generated", time.Now().Format(time.RFC3339)},
		{"Runs", len(records)},
		{"Classifiers", classifierList},
	}
	if len(records) > 0 {
		meanTarget, err := stats.Mean(targets)
		if err != nil {
			return fmt.Errorf("failed to compute mean target coverage: %w", err)
		}
		meanEmpirical, err := stats.Mean(empiricals)
		if err != nil {
			return fmt.Errorf("failed to compute mean empirical coverage: %w", err)
		}
		meanGap, err := stats.Mean(gaps)
		if err != nil {
			return fmt.Errorf("failed to compute mean coverage gap: %w", err)
		}
		meanSetSize, err := stats.Mean(setSizes)
		if err != nil {
			return fmt.Errorf("failed to compute mean set size: %w", err)
		}
		rows = append(rows,
			[2]interface{}{"Mean Target Coverage", fToStr(meanTarget, 4)},
			[2]interface{}{"Mean Empirical Coverage", fToStr(meanEmpirical, 4)},
			[2]interface{}{"Mean Coverage Gap", fToStr(meanGap, 4)},
			[2]interface{}{"Mean Avg Set Size", fToStr(meanSetSize, 2)},
			[2]interface{}{"Runs At Or Above Target", fmt.Sprintf("%d/%d", meeting, len(records))},
		)
	}

	for i, pair := range rows {
		if err := setCell(f, "Summary", 1, i+1, pair[0]); err != nil {
			return err
		}
		if err := setCell(f, "Summary", 2, i+1, pair[1]); err != nil {
			return err
		}
	}
	return nil
}

var runColumns = []string{
	"Run ID", "Created", "Classifier", "Alpha", "Target Coverage",
	"Empirical Coverage", "Coverage Gap", "Threshold", "Quantile Level",
	"Calibration Size", "Accuracy", "Avg Set Size", "Median Set Size",
	"Singleton Rate", "Empty Set Rate", "Full Set Rate", "Test Size",
	"Dataset", "Samples", "Features", "Classes", "Seed", "Fingerprint",
}

func (w *ReportWriter) writeRuns(f *excelize.File, records []*run.Record) error {
	for i, header := range runColumns {
		if err := setCell(f, "Runs", i+1, 1, header); err != nil {
			return err
		}
	}

	for r, record := range records {
		eval := record.Evaluation
		values := []interface{}{
			record.ID.String(),
			record.CreatedAt.String(),
			record.Classifier,
			fToStr(record.Alpha, 4),
			fToStr(eval.TargetCoverage, 4),
			fToStr(eval.EmpiricalCoverage, 4),
			fToStr(eval.CoverageGap(), 4),
			fToStr(record.Threshold, 6),
			fToStr(record.QuantileLevel, 6),
			record.CalibrationSize,
			fToStr(eval.Accuracy, 4),
			fToStr(eval.AvgSetSize, 2),
			fToStr(eval.MedianSetSize, 2),
			fToStr(eval.SingletonRate, 4),
			fToStr(eval.EmptySetRate, 4),
			fToStr(eval.FullSetRate, 4),
			eval.TestSize,
			record.Dataset.Source,
			record.Dataset.Samples,
			record.Dataset.Features,
			record.Dataset.Classes,
			record.Seed,
			record.Dataset.Fingerprint.String(),
		}
		for c, value := range values {
			if err := setCell(f, "Runs", c+1, r+2, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func fToStr(x float64, decimals int) string {
	p := math.Pow10(decimals)
	x = math.Round(x*p) / p
	return strconv.FormatFloat(x, 'f', decimals, 64)
}
