package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFormat is returned for an unknown export format
var ErrUnsupportedFormat = errors.New("unsupported export format, use xlsx or pdf")

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Table is a titled grid of cells. Cells may be string, int, int32, int64,
// decimal.Decimal, time.Time or *time.Time; anything else is rendered with fmt.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// Renderer turns a table into a downloadable document
type Renderer interface {
	Render(w io.Writer, t Table) error
	ContentType() string
	Extension() string
}

// RendererFor returns the renderer for a format name
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatXLSX, "":
		return XLSXRenderer{}, nil
	case FormatPDF:
		return PDFRenderer{}, nil
	}
	return nil, ErrUnsupportedFormat
}

const dateLayout = "02-01-2006"

// cellText formats a cell for text based output
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case decimal.Decimal:
		return val.StringFixed(2)
	case time.Time:
		return val.Format(dateLayout)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format(dateLayout)
	}
	return fmt.Sprint(v)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case decimal.Decimal, int, int32, int64, float64:
		return true
	}
	return false
}
