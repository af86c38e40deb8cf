package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"
)

// nullTokens are cell spellings read as missing values.
var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

var (
	trueTokens  = map[string]struct{}{"true": {}, "True": {}, "TRUE": {}}
	falseTokens = map[string]struct{}{"false": {}, "False": {}, "FALSE": {}}
)

const utf8BOM = "\uFEFF"

// IsNullToken reports whether a raw cell spells a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

// CleanHeader NFC-normalizes and trims header names, strips a UTF-8 BOM from
// the first cell, names blank headers "Unnamed: <i>" and disambiguates
// repeated names with ".1", ".2" suffixes.
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(norm.NFC.String(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = fmt.Sprintf("%s.%d", h, suffix[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// FromStrings builds a Dataset from a header and string rows, inferring a
// type per column: all non-null cells numeric → Numeric, all boolean
// spellings → Boolean, otherwise Text. A column with no values is Numeric.
// Short rows are padded with nulls; rows longer than the header are an error.
func FromStrings(header []string, rows [][]string) (*Dataset, error) {
	names := CleanHeader(header)
	cells := make([][]string, len(names))
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("dataset: row %d has %d fields, header has %d", i+1, len(row), len(names))
		}
		for j := range names {
			if j < len(row) {
				cells[j][i] = row[j]
			} else {
				cells[j][i] = ""
			}
		}
	}
	cols := make([]*Column, len(names))
	for j, name := range names {
		cols[j] = inferStrings(name, cells[j])
	}
	return New(cols...)
}

func inferStrings(name string, cells []string) *Column {
	n := len(cells)
	nulls := make([]bool, n)
	anyNull := false
	isNum, isBool := true, true
	nonNull := 0
	for i, s := range cells {
		if IsNullToken(s) {
			nulls[i] = true
			anyNull = true
			continue
		}
		nonNull++
		t := strings.TrimSpace(s)
		if isNum {
			// inf, Infinity and stray NaN spellings parse but cannot be scaled
			if f, err := strconv.ParseFloat(t, 64); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				isNum = false
			}
		}
		if isBool {
			_, tr := trueTokens[t]
			_, fa := falseTokens[t]
			isBool = tr || fa
		}
	}
	if !anyNull {
		nulls = nil
	}

	switch {
	case nonNull == 0 || isNum:
		vals := make([]float64, n)
		for i, s := range cells {
			if nulls != nil && nulls[i] {
				continue
			}
			vals[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
		return NewNumeric(name, vals, nulls)
	case isBool:
		vals := make([]bool, n)
		for i, s := range cells {
			_, vals[i] = trueTokens[strings.TrimSpace(s)]
		}
		return NewBoolean(name, vals, nulls)
	default:
		vals := make([]string, n)
		for i, s := range cells {
			if nulls != nil && nulls[i] {
				continue
			}
			vals[i] = s
		}
		return NewText(name, vals, nulls)
	}
}

// FromRecords builds a Dataset from decoded records (JSON objects and the
// like). keys fixes the column order; a key missing from a record is null.
// Columns whose values are all numbers become Numeric, all booleans become
// Boolean, anything else is rendered to Text.
func FromRecords(keys []string, recs []map[string]any) (*Dataset, error) {
	names := CleanHeader(keys)
	cols := make([]*Column, len(keys))
	for j, key := range keys {
		vals := make([]any, len(recs))
		for i, r := range recs {
			vals[i] = r[key]
		}
		cols[j] = inferValues(names[j], vals)
	}
	return New(cols...)
}

func inferValues(name string, vals []any) *Column {
	n := len(vals)
	nulls := make([]bool, n)
	anyNull := false
	isNum, isBool := true, true
	nonNull := 0
	for i, v := range vals {
		if isNullValue(v) {
			nulls[i] = true
			anyNull = true
			continue
		}
		nonNull++
		switch v.(type) {
		case bool:
			isNum = false
		case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			isBool = false
		default:
			if s, ok := v.(fmt.Stringer); ok {
				if _, err := strconv.ParseFloat(s.String(), 64); err == nil {
					isBool = false
					continue
				}
			}
			isNum, isBool = false, false
		}
	}
	if !anyNull {
		nulls = nil
	}

	switch {
	case nonNull == 0 || isNum:
		out := make([]float64, n)
		for i, v := range vals {
			if nulls != nil && nulls[i] {
				continue
			}
			out[i] = cast.ToFloat64(stringerValue(v))
		}
		return NewNumeric(name, out, nulls)
	case isBool:
		out := make([]bool, n)
		for i, v := range vals {
			if b, ok := v.(bool); ok {
				out[i] = b
			}
		}
		return NewBoolean(name, out, nulls)
	default:
		out := make([]string, n)
		for i, v := range vals {
			if nulls != nil && nulls[i] {
				continue
			}
			s, err := cast.ToStringE(stringerValue(v))
			if err != nil {
				s = fmt.Sprint(v)
			}
			out[i] = s
		}
		return NewText(name, out, nulls)
	}
}

func isNullValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// stringerValue unwraps json.Number-like values so cast can parse them.
func stringerValue(v any) any {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}
