package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// XLSXRenderer renders tables as Excel workbooks
type XLSXRenderer struct{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Extension() string { return FormatXLSX }

// Render writes a single sheet with a title row, a header row and the data rows
func (XLSXRenderer) Render(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", t.Title); err != nil {
		return err
	}

	for i, header := range t.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}
	if len(t.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), 2)
		if err := f.SetCellStyle(sheetName, "A2", last, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+3)
			switch val := value.(type) {
			case decimal.Decimal:
				// fixed two places keeps the stored text equal to the NUMERIC(14,2) value
				if err := f.SetCellFloat(sheetName, cell, val.Round(2).InexactFloat64(), 2, 64); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheetName, cell, cell, moneyStyle); err != nil {
					return err
				}
			case time.Time, *time.Time:
				if err := f.SetCellValue(sheetName, cell, cellText(val)); err != nil {
					return err
				}
			default:
				if err := f.SetCellValue(sheetName, cell, value); err != nil {
					return err
				}
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
