package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer renders tables as landscape A4 documents
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }

func (PDFRenderer) Extension() string { return FormatPDF }

const (
	pdfRowHeight = 7.0
	pdfFontSize  = 9.0
)

// Render writes the title, a shaded header row and the rows. The header is
// repeated on each new page.
func (PDFRenderer) Render(w io.Writer, t Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := pageWidth - left - right
	if len(t.Headers) > 0 {
		colWidth /= float64(len(t.Headers))
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(221, 235, 247)
		for _, h := range t.Headers {
			pdf.CellFormat(colWidth, pdfRowHeight, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	pdf.SetHeaderFuncMode(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	}, true)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(t.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", pdfFontSize)
	pdf.CellFormat(0, 6, "Dicetak "+time.Now().Format("02-01-2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for _, row := range t.Rows {
		for _, value := range row {
			align := "L"
			if isNumeric(value) {
				align = "R"
			}
			text := pdf.SplitText(tr(cellText(value)), colWidth-2)
			line := ""
			if len(text) > 0 {
				line = text[0]
			}
			pdf.CellFormat(colWidth, pdfRowHeight, line, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
