// Package storage persists pipeline output. It holds the artifact writers
// (csv, json, parquet), destination resolution, and the run-ledger
// repository contract that database backends register against.
package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"

	jsoniter "github.com/json-iterator/go"

	"etlcore/internal/dataset"
	"etlcore/internal/duck"
	"etlcore/internal/format"
)

// Writer writes a dataset to a local file.
type Writer interface {
	WriteFile(ctx context.Context, ds *dataset.Dataset, path string) error
}

// ParquetWriter is implemented by *duck.Engine.
type ParquetWriter interface {
	WriteParquet(ctx context.Context, ds *dataset.Dataset, path string) error
}

// WriterFor returns the writer for an output format. pq may be nil; a
// short-lived DuckDB engine is then opened per parquet write.
func WriterFor(f format.Format, pq ParquetWriter) (Writer, error) {
	switch f {
	case format.CSV:
		return streamWriter(EncodeCSV), nil
	case format.JSON:
		return streamWriter(EncodeJSON), nil
	case format.Parquet:
		return parquetWriter{pq: pq}, nil
	}
	return nil, &format.UnsupportedFormatError{Op: "write", Value: string(f)}
}

type streamWriter func(w io.Writer, ds *dataset.Dataset) error

func (enc streamWriter) WriteFile(ctx context.Context, ds *dataset.Dataset, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if err := enc(bw, ds); err != nil {
		f.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("storage: flush %s: %w", path, err)
	}
	return f.Close()
}

type parquetWriter struct{ pq ParquetWriter }

func (p parquetWriter) WriteFile(ctx context.Context, ds *dataset.Dataset, path string) error {
	pq := p.pq
	if pq == nil {
		eng, err := duck.Open()
		if err != nil {
			return err
		}
		defer eng.Close()
		pq = eng
	}
	return pq.WriteParquet(ctx, ds, path)
}

// EncodeCSV writes a header row and one record per row. Nulls are empty
// cells; see dataset.Column.Format for the cell encoding.
func EncodeCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names()); err != nil {
		return err
	}
	cols := ds.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < ds.Rows(); i++ {
		for j, c := range cols {
			rec[j] = c.Format(i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeJSON writes a records-oriented array: one object per row with keys
// in column order. Nulls are null and datetimes are strings.
func EncodeJSON(w io.Writer, ds *dataset.Dataset) error {
	s := jsoniter.NewStream(jsonAPI, w, 64*1024)
	cols := ds.Columns()

	s.WriteArrayStart()
	for i := 0; i < ds.Rows(); i++ {
		if i > 0 {
			s.WriteMore()
		}
		s.WriteObjectStart()
		for j, c := range cols {
			if j > 0 {
				s.WriteMore()
			}
			s.WriteObjectField(c.Name)
			writeCell(s, c, i)
		}
		s.WriteObjectEnd()
		if s.Error != nil {
			return s.Error
		}
	}
	s.WriteArrayEnd()
	s.WriteRaw("\n")
	if s.Error != nil {
		return s.Error
	}
	return s.Flush()
}

func writeCell(s *jsoniter.Stream, c *dataset.Column, i int) {
	if c.IsNull(i) {
		s.WriteNil()
		return
	}
	switch c.Type {
	case dataset.Numeric:
		v := c.Nums[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.WriteNil()
			return
		}
		s.WriteFloat64(v)
	case dataset.Boolean:
		s.WriteBool(c.Bools[i])
	default:
		s.WriteString(c.Format(i))
	}
}
