package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnType tags the physical representation of a column and decides which
// validators and transformers apply to it.
type ColumnType int

const (
	Numeric ColumnType = iota
	Text
	Categorical
	Datetime
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Categorical:
		return "categorical"
	case Datetime:
		return "datetime"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// ParseColumnType maps a configuration type name onto a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "int", "integer":
		return Numeric, nil
	case "categorical", "category":
		return Categorical, nil
	case "datetime", "date", "timestamp":
		return Datetime, nil
	case "boolean", "bool":
		return Boolean, nil
	case "text", "string":
		return Text, nil
	}
	return 0, fmt.Errorf("dataset: unknown column type %q", s)
}

// Column is a named, typed sequence of values. Exactly one of the value
// slices is populated, selected by Type. Text and Categorical share Strs.
// Nulls marks missing cells; a nil mask means the column has no nulls.
type Column struct {
	Name  string
	Type  ColumnType
	Nums  []float64
	Strs  []string
	Times []time.Time
	Bools []bool
	Nulls []bool
}

func NewNumeric(name string, vals []float64, nulls []bool) *Column {
	return &Column{Name: name, Type: Numeric, Nums: vals, Nulls: nulls}
}

func NewText(name string, vals []string, nulls []bool) *Column {
	return &Column{Name: name, Type: Text, Strs: vals, Nulls: nulls}
}

func NewCategorical(name string, vals []string, nulls []bool) *Column {
	return &Column{Name: name, Type: Categorical, Strs: vals, Nulls: nulls}
}

func NewDatetime(name string, vals []time.Time, nulls []bool) *Column {
	return &Column{Name: name, Type: Datetime, Times: vals, Nulls: nulls}
}

func NewBoolean(name string, vals []bool, nulls []bool) *Column {
	return &Column{Name: name, Type: Boolean, Bools: vals, Nulls: nulls}
}

// Len returns the number of rows held by the column.
func (c *Column) Len() int {
	switch c.Type {
	case Numeric:
		return len(c.Nums)
	case Text, Categorical:
		return len(c.Strs)
	case Datetime:
		return len(c.Times)
	case Boolean:
		return len(c.Bools)
	}
	return 0
}

// IsText reports whether the column holds string values (Text or Categorical).
func (c *Column) IsText() bool { return c.Type == Text || c.Type == Categorical }

// IsNull reports whether row i is missing.
func (c *Column) IsNull(i int) bool { return c.Nulls != nil && c.Nulls[i] }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, null := range c.Nulls {
		if null {
			n++
		}
	}
	return n
}

func (c *Column) check() error {
	if c.Nulls != nil && len(c.Nulls) != c.Len() {
		return fmt.Errorf("%w: column %q has %d values and %d null flags",
			ErrLengthMismatch, c.Name, c.Len(), len(c.Nulls))
	}
	return nil
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Type: c.Type}
	if c.Nums != nil {
		out.Nums = append([]float64(nil), c.Nums...)
	}
	if c.Strs != nil {
		out.Strs = append([]string(nil), c.Strs...)
	}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	if c.Bools != nil {
		out.Bools = append([]bool(nil), c.Bools...)
	}
	if c.Nulls != nil {
		out.Nulls = append([]bool(nil), c.Nulls...)
	}
	return out
}

// Format renders row i the way it is written to delimited text. Nulls render
// as the empty string.
func (c *Column) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.Type {
	case Numeric:
		return strconv.FormatFloat(c.Nums[i], 'f', -1, 64)
	case Text, Categorical:
		return c.Strs[i]
	case Datetime:
		return FormatTime(c.Times[i])
	case Boolean:
		if c.Bools[i] {
			return "True"
		}
		return "False"
	}
	return ""
}

// Value returns row i as a JSON-friendly Go value (nil for nulls).
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.Type {
	case Numeric:
		return c.Nums[i]
	case Text, Categorical:
		return c.Strs[i]
	case Datetime:
		return FormatTime(c.Times[i])
	case Boolean:
		return c.Bools[i]
	}
	return nil
}

// AppendKey appends a type-tagged, length-prefixed encoding of row i to dst.
// Two cells encode identically iff they are equal; nulls compare equal to
// nulls and 0 equals -0.
func (c *Column) AppendKey(dst []byte, i int) []byte {
	if c.IsNull(i) {
		return append(dst, 0x00)
	}
	dst = append(dst, byte(c.Type)+1)
	switch c.Type {
	case Numeric:
		v := c.Nums[i]
		if v == 0 { // folds -0
			v = 0
		}
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
	case Datetime:
		return binary.AppendVarint(dst, c.Times[i].UnixNano())
	case Boolean:
		if c.Bools[i] {
			return append(dst, 1)
		}
		return append(dst, 0)
	}
	s := c.Format(i)
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// AsCategorical converts the column to Categorical, rendering non-string
// values through Format. Nulls are preserved.
func (c *Column) AsCategorical() *Column {
	n := c.Len()
	strs := make([]string, n)
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			continue
		}
		if c.IsText() {
			strs[i] = c.Strs[i]
			continue
		}
		strs[i] = c.Format(i)
	}
	var nulls []bool
	if c.Nulls != nil {
		nulls = append([]bool(nil), c.Nulls...)
	}
	return NewCategorical(c.Name, strs, nulls)
}

// FormatTime renders midnight UTC timestamps as plain dates and everything
// else as RFC 3339.
func FormatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
