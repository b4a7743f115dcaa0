// Package remedypdf renders prescribed remedy documents as PDF.
package remedypdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

// Document carries everything the PDF layout needs.
type Document struct {
	PatientName        string
	GurujiName         string
	TemplateName       string
	Category           string
	Instructions       string
	Dosage             string
	Duration           string
	CustomInstructions string
	PrescribedAt       time.Time
}

// Render produces the remedy PDF bytes.
func Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Remedy Prescription", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Remedy Prescription", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Prescribed on %s", doc.PrescribedAt.Format("02 Jan 2006 15:04 MST")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	row := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 7, value, "", "L", false)
	}

	row("Patient", doc.PatientName)
	row("Guruji", doc.GurujiName)
	row("Remedy", doc.TemplateName)
	row("Category", doc.Category)
	pdf.Ln(4)

	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(4)

	row("Instructions", doc.Instructions)
	row("Dosage", doc.Dosage)
	row("Duration", doc.Duration)
	if doc.CustomInstructions != "" {
		pdf.Ln(2)
		row("Additional notes", doc.CustomInstructions)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Follow the remedy as instructed. Contact the ashram office with any questions.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render remedy pdf: %w", err)
	}
	return buf.Bytes(), nil
}
