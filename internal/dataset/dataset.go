// Package dataset holds the in-memory, column-oriented table that flows
// through the pipeline stages.
//
// A Dataset is an ordered list of uniquely named columns of equal length.
// Stages never share a Dataset: validators read it, transformers Clone it and
// return the modified copy.
package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch  = errors.New("dataset: column length mismatch")
	ErrDuplicateColumn = errors.New("dataset: duplicate column name")
	ErrNoSuchColumn    = errors.New("dataset: no such column")
)

// Dataset is an ordered collection of named columns with equal row counts.
type Dataset struct {
	cols  []*Column
	index map[string]int
}

// New builds a Dataset from cols, enforcing unique names and equal lengths.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := d.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Rows returns the row count (0 for a dataset without columns).
func (d *Dataset) Rows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].Len()
}

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.cols) }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in order. The slice is a copy; the columns are
// shared with the dataset.
func (d *Dataset) Columns() []*Column {
	return append([]*Column(nil), d.cols...)
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// AddColumn appends c to the dataset.
func (d *Dataset) AddColumn(c *Column) error {
	if err := c.check(); err != nil {
		return err
	}
	if _, dup := d.index[c.Name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if len(d.cols) > 0 && c.Len() != d.Rows() {
		return fmt.Errorf("%w: column %q has %d rows, dataset has %d",
			ErrLengthMismatch, c.Name, c.Len(), d.Rows())
	}
	d.index[c.Name] = len(d.cols)
	d.cols = append(d.cols, c)
	return nil
}

// ReplaceColumn swaps the column named c.Name for c, keeping its position.
func (d *Dataset) ReplaceColumn(c *Column) error {
	i, ok := d.index[c.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchColumn, c.Name)
	}
	if err := c.check(); err != nil {
		return err
	}
	if c.Len() != d.Rows() {
		return fmt.Errorf("%w: column %q has %d rows, dataset has %d",
			ErrLengthMismatch, c.Name, c.Len(), d.Rows())
	}
	d.cols[i] = c
	return nil
}

// DropColumn removes the named column and reports whether it existed.
func (d *Dataset) DropColumn(name string) bool {
	i, ok := d.index[name]
	if !ok {
		return false
	}
	d.cols = append(d.cols[:i], d.cols[i+1:]...)
	delete(d.index, name)
	for j := i; j < len(d.cols); j++ {
		d.index[d.cols[j].Name] = j
	}
	return true
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		cols:  make([]*Column, len(d.cols)),
		index: make(map[string]int, len(d.cols)),
	}
	for i, c := range d.cols {
		out.cols[i] = c.Clone()
		out.index[c.Name] = i
	}
	return out
}

// NullCount returns the number of missing cells across all columns.
func (d *Dataset) NullCount() int {
	n := 0
	for _, c := range d.cols {
		n += c.NullCount()
	}
	return n
}

// ColumnsOfType returns the columns whose type is one of types, in order.
func (d *Dataset) ColumnsOfType(types ...ColumnType) []*Column {
	var out []*Column
	for _, c := range d.cols {
		for _, t := range types {
			if c.Type == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// AppendRowKey appends the encoding of row i across all columns to dst.
func (d *Dataset) AppendRowKey(dst []byte, i int) []byte {
	for _, c := range d.cols {
		dst = c.AppendKey(dst, i)
	}
	return dst
}
