// Package parser reads an input file into a Dataset, choosing the reader by
// file extension.
package parser

import (
	"context"
	"fmt"
	"io"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
	"etlcore/internal/datasource"
	"etlcore/internal/duck"
	"etlcore/internal/format"
	pcsv "etlcore/internal/parser/csv"
	pjson "etlcore/internal/parser/json"
	"etlcore/internal/parser/xlsx"
)

// StreamParser builds a Dataset from a byte stream.
type StreamParser interface {
	Parse(r io.Reader) (*dataset.Dataset, error)
}

// ParquetReader reads a Parquet file by path.
type ParquetReader interface {
	ReadParquet(ctx context.Context, path string) (*dataset.Dataset, error)
}

type parseFunc func(io.Reader) (*dataset.Dataset, error)

func (f parseFunc) Parse(r io.Reader) (*dataset.Dataset, error) { return f(r) }

// Reader dispatches to the per-format parsers.
type Reader struct {
	Input config.Input

	// Parquet reads .parquet inputs. When nil an in-memory DuckDB engine is
	// opened for the call.
	Parquet ParquetReader
}

// For returns the stream parser for f. Parquet has none; it needs a path.
func (r Reader) For(f format.Format) (StreamParser, error) {
	switch f {
	case format.CSV:
		return pcsv.NewParser(pcsv.FromConfig(r.Input)), nil
	case format.JSON:
		return parseFunc(pjson.Parse), nil
	case format.XLSX, format.XLS:
		opt := xlsx.FromConfig(r.Input)
		return parseFunc(func(in io.Reader) (*dataset.Dataset, error) { return xlsx.Parse(in, opt) }), nil
	}
	return nil, &format.UnsupportedFormatError{Op: "read", Value: string(f)}
}

// Read loads src. The format comes from the extension of src.Path().
func (r Reader) Read(ctx context.Context, src datasource.Source) (*dataset.Dataset, error) {
	f, err := format.FromPath(src.Path())
	if err != nil {
		return nil, err
	}
	if f == format.Parquet {
		return r.readParquet(ctx, src.Path())
	}

	p, err := r.For(f)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := p.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Path(), err)
	}
	return ds, nil
}

func (r Reader) readParquet(ctx context.Context, path string) (*dataset.Dataset, error) {
	pr := r.Parquet
	if pr == nil {
		eng, err := duck.Open()
		if err != nil {
			return nil, err
		}
		defer eng.Close()
		pr = eng
	}
	ds, err := pr.ReadParquet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}
