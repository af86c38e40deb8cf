// Package csv reads delimited text into a Dataset. The first record is the
// header; column types are inferred from the cells.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
)

// Options configures the CSV parser. Zero values are usable.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each cell.
	TrimSpace bool

	// LazyQuotes tolerates a quote appearing in an unquoted field.
	LazyQuotes bool

	// HeaderMap renames source headers after cleaning.
	HeaderMap map[string]string
}

// FromConfig derives parser options from the input section.
func FromConfig(in config.Input) Options {
	opt := Options{}
	if r, _ := utf8.DecodeRuneInString(in.Delimiter); r != utf8.RuneError {
		opt.Comma = r
	}
	return opt
}

// Parser turns CSV bytes into a Dataset. It is safe to reuse across inputs
// but not concurrency-safe.
type Parser struct{ opt Options }

func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// ErrNoHeader is returned for an empty input.
var ErrNoHeader = errors.New("csv: no header row")

// Parse reads all of r. Rows shorter than the header are padded with nulls;
// a row with more fields than the header is an error.
func (p *Parser) Parse(r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = p.renameHeader(dataset.CleanHeader(header))

	var rows [][]string
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		if p.opt.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		rows = append(rows, row)
	}
	return dataset.FromStrings(header, rows)
}

func (p *Parser) renameHeader(h []string) []string {
	if len(p.opt.HeaderMap) == 0 {
		return h
	}
	for i, c := range h {
		if m, ok := p.opt.HeaderMap[c]; ok {
			h[i] = m
		}
	}
	return h
}

// isBlank reports a record made of one empty field, which encoding/csv
// yields for whitespace-only lines.
func isBlank(row []string) bool {
	return len(row) == 1 && strings.TrimSpace(row[0]) == ""
}
