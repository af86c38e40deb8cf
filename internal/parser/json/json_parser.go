// Package json reads record-oriented JSON into a Dataset.
//
// Accepted shapes:
//
//	[{"id":1,"name":"a"},{"id":2,"name":"b"}]   // array of records
//	{"id":1,"name":"a"}                          // NDJSON / concatenated objects
//	{"id":2,"name":"b"}
//
// Columns appear in order of first appearance; a key missing from a record
// is null. Nested objects and arrays are kept as their raw JSON text.
package json

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"etlcore/internal/dataset"
)

// api keeps numbers as json.Number so integers survive until inference.
var api = jsoniter.Config{UseNumber: true}.Froze()

const bufSize = 64 * 1024

type collector struct {
	keys []string
	seen map[string]struct{}
	recs []map[string]any
}

// Parse reads every record from r.
func Parse(r io.Reader) (*dataset.Dataset, error) {
	iter := jsoniter.Parse(api, r, bufSize)
	c := &collector{seen: map[string]struct{}{}}

	for top := 0; ; top++ {
		next := iter.WhatIsNext()
		if errors.Is(iter.Error, io.EOF) {
			break
		}
		if iter.Error != nil {
			return nil, fmt.Errorf("json parser: %w", iter.Error)
		}
		switch next {
		case jsoniter.ObjectValue:
			if err := c.readRecord(iter); err != nil {
				return nil, err
			}
		case jsoniter.ArrayValue:
			if top > 0 {
				return nil, fmt.Errorf("json parser: array after top-level value %d", top)
			}
			if err := c.readArray(iter); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("json parser: top-level value %d is not an object or array", top+1)
		}
	}
	return dataset.FromRecords(c.keys, c.recs)
}

func (c *collector) readArray(iter *jsoniter.Iterator) error {
	idx := 0
	var elemErr error
	ok := iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		if it.WhatIsNext() != jsoniter.ObjectValue {
			elemErr = fmt.Errorf("json parser: element %d in array is not an object", idx)
			return false
		}
		if err := c.readRecord(it); err != nil {
			elemErr = err
			return false
		}
		idx++
		return true
	})
	if elemErr != nil {
		return elemErr
	}
	if !ok {
		return fmt.Errorf("json parser: array: %w", truncated(iter.Error))
	}
	return nil
}

func (c *collector) readRecord(iter *jsoniter.Iterator) error {
	rec := map[string]any{}
	ok := iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if _, ok := c.seen[key]; !ok {
			c.seen[key] = struct{}{}
			c.keys = append(c.keys, key)
		}
		rec[key] = readValue(it)
		return it.Error == nil
	})
	if !ok {
		return fmt.Errorf("json parser: record %d: %w", len(c.recs)+1, truncated(iter.Error))
	}
	c.recs = append(c.recs, rec)
	return nil
}

func readValue(it *jsoniter.Iterator) any {
	switch it.WhatIsNext() {
	case jsoniter.NilValue:
		it.ReadNil()
		return nil
	case jsoniter.StringValue:
		return it.ReadString()
	case jsoniter.NumberValue:
		return it.ReadNumber()
	case jsoniter.BoolValue:
		return it.ReadBool()
	case jsoniter.ObjectValue, jsoniter.ArrayValue:
		return string(it.SkipAndReturnBytes())
	}
	it.ReportError("readValue", "unexpected token")
	return nil
}

// truncated maps a missing error or a bare EOF in the middle of a value to
// io.ErrUnexpectedEOF.
func truncated(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
