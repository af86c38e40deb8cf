package builtin

import (
	"strings"
	"time"

	"etlcore/internal/dataset"
)

// DefaultDatetimeLayouts are tried in order when no layouts are configured.
// "02.01.2006" covers the day-first dotted dates common in European exports.
var DefaultDatetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"02.01.2006 15:04:05",
}

// Coercion records whether a text column was converted to Datetime. Layout
// is set on success; Reason explains a failure.
type Coercion struct {
	Column string `json:"column"`
	OK     bool   `json:"ok"`
	Layout string `json:"layout,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CoerceDatetimes tries to convert every Text column to Datetime. Each column
// is handled independently: the first layout that parses all non-null cells
// wins, and a column no layout fits stays Text.
type CoerceDatetimes struct {
	Layouts []string         // empty means DefaultDatetimeLayouts
	Report  func([]Coercion) // optional sink, called once per Apply
}

func (CoerceDatetimes) Name() string { return "coerce_datetimes" }

// Apply implements the stage; it never fails.
func (c CoerceDatetimes) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out, tags := c.Coerce(in)
	if c.Report != nil {
		c.Report(tags)
	}
	return out, nil
}

// Coerce returns a copy of in with convertible Text columns replaced and one
// tag per Text column, in column order.
func (c CoerceDatetimes) Coerce(in *dataset.Dataset) (*dataset.Dataset, []Coercion) {
	layouts := c.Layouts
	if len(layouts) == 0 {
		layouts = DefaultDatetimeLayouts
	}
	out := in.Clone()
	tags := []Coercion{}
	for _, col := range out.ColumnsOfType(dataset.Text) {
		conv, tag := coerceColumn(col, layouts)
		tags = append(tags, tag)
		if conv != nil {
			// same name and length, cannot fail
			_ = out.ReplaceColumn(conv)
		}
	}
	return out, tags
}

func coerceColumn(col *dataset.Column, layouts []string) (*dataset.Column, Coercion) {
	tag := Coercion{Column: col.Name}
	if col.NullCount() == col.Len() {
		tag.Reason = "no values"
		return nil, tag
	}
	first := ""
	for i, s := range col.Strs {
		if !col.IsNull(i) {
			first = strings.TrimSpace(s)
			break
		}
	}

	for _, layout := range layouts {
		// cheap reject on the first value before scanning the column
		if _, err := time.Parse(layout, first); err != nil {
			continue
		}
		times, ok := parseAll(col, layout)
		if !ok {
			continue
		}
		var nulls []bool
		if col.Nulls != nil {
			nulls = append([]bool(nil), col.Nulls...)
		}
		tag.OK = true
		tag.Layout = layout
		return dataset.NewDatetime(col.Name, times, nulls), tag
	}
	tag.Reason = "no layout matched every value"
	return nil, tag
}

func parseAll(col *dataset.Column, layout string) ([]time.Time, bool) {
	times := make([]time.Time, col.Len())
	for i, s := range col.Strs {
		if col.IsNull(i) {
			continue
		}
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err != nil {
			return nil, false
		}
		times[i] = t
	}
	return times, true
}
