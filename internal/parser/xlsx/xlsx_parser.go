// Package xlsx reads one worksheet of an Office Open XML workbook into a
// Dataset. The first row is the header; cells are read as displayed text and
// typed by inference like CSV input.
package xlsx

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
)

// ErrNoHeader is returned for an empty worksheet.
var ErrNoHeader = errors.New("xlsx: sheet has no header row")

// Options selects the worksheet. An empty Sheet means the first one.
type Options struct {
	Sheet string
}

func FromConfig(in config.Input) Options { return Options{Sheet: in.Sheet} }

// Parse reads the selected sheet from r.
func Parse(r io.Reader, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook (legacy binary .xls is not supported): %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	// GetRows trims trailing empty cells per row, so the widest row decides
	// the column count.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	header := make([]string, width)
	copy(header, rows[0])
	return dataset.FromStrings(header, rows[1:])
}
