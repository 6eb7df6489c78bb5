package analytics

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderPDF renders the comprehensive report as an A4 PDF document.
func RenderPDF(report ComprehensiveReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Attendance Analytics Report")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s  |  engine: %s  |  window: %d days",
		report.GeneratedAt.Format("2006-01-02 15:04:05"), report.Engine, report.WindowDays))
	pdf.Ln(10)

	section(pdf, "Peak Hours")
	if report.PeakHours.BusiestHour != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Busiest hour: %02d:00 with %d recognitions",
			report.PeakHours.BusiestHour.Hour, report.PeakHours.BusiestHour.Count))
		pdf.Ln(7)
	}
	table(pdf, []string{"Hour", "Count", "Avg confidence", "Unique"}, func(row func(...string)) {
		for _, h := range report.PeakHours.Hours {
			row(fmt.Sprintf("%02d:00", h.Hour), itoa(h.Count), ftoa(h.AvgConfidence), itoa(h.UniqueNames))
		}
	})

	section(pdf, "Daily Patterns")
	table(pdf, []string{"Weekday", "Total", "Late", "Late rate"}, func(row func(...string)) {
		for _, d := range report.DailyPatterns.Weekdays {
			row(d.Weekday, itoa(d.Total), itoa(d.LateCount), ftoa(d.LateRate))
		}
	})

	section(pdf, "Employee Performance")
	table(pdf, []string{"Employee", "Name", "Present", "Late", "Punctuality", "Avg enter"}, func(row func(...string)) {
		for _, p := range report.Performance.Employees {
			row(p.EmployeeID, p.Name, itoa(p.DaysPresent), itoa(p.LateDays), ftoa(p.Punctuality), p.AvgEnterTime)
		}
	})

	section(pdf, "Recognition Accuracy")
	table(pdf, []string{"Week", "Count", "Avg", "Min", "Max", "StdDev"}, func(row func(...string)) {
		for _, w := range report.Accuracy.Weeks {
			row(w.Week, itoa(w.Count), ftoa(w.AvgConfidence), ftoa(w.MinConfidence), ftoa(w.MaxConfidence), ftoa(w.StdDev))
		}
	})

	section(pdf, "Pipeline")
	pdf.Cell(0, 6, fmt.Sprintf("Uptime: %.0fs", report.Runtime.UptimeSeconds))
	pdf.Ln(6)
	for _, name := range counterOrder {
		if v, ok := report.Runtime.Counters[name]; ok {
			pdf.Cell(0, 6, fmt.Sprintf("%s: %d", name, v))
			pdf.Ln(6)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// counterOrder fixes the counter listing order in the PDF.
var counterOrder = []string{
	"frames_processed",
	"motion_detected",
	"faces_detected",
	"faces_recognized",
	"recognition_events",
	"attendance_marked",
	"queue_dropped",
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
}

func table(pdf *gofpdf.Fpdf, headers []string, fill func(row func(...string))) {
	width := 190.0 / float64(len(headers))

	pdf.SetFont("Helvetica", "B", 9)
	for _, h := range headers {
		pdf.CellFormat(width, 6, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	rows := 0
	row := func(cells ...string) {
		for _, c := range cells {
			pdf.CellFormat(width, 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		rows++
	}
	fill(row)
	if rows == 0 {
		pdf.CellFormat(190, 6, "no data in window", "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func itoa(v int) string { return fmt.Sprintf("%d", v) }
func ftoa(v float64) string { return fmt.Sprintf("%.3f", v) }
