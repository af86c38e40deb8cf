// Package stats computes the column summaries shared by the quality checker
// and the numeric transformers. Nulls are skipped.
package stats

import (
	"math"

	"etlcore/internal/dataset"
)

// Summary describes the non-null values of a numeric column.
type Summary struct {
	Count int
	Mean  float64
	Std   float64 // sample standard deviation (n-1); 0 when Count < 2
	Min   float64
	Max   float64
	// NonFinite counts non-null ±Inf and NaN values, which are left out of
	// every other field.
	NonFinite int
}

// Describe summarizes the finite values of a Numeric column. Non-numeric
// columns yield a zero Summary.
func Describe(c *dataset.Column) Summary {
	var s Summary
	if c.Type != dataset.Numeric {
		return s
	}
	sum := 0.0
	for i, v := range c.Nums {
		if c.IsNull(i) {
			continue
		}
		if math.IsInf(v, 0) || math.IsNaN(v) {
			s.NonFinite++
			continue
		}
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		s.Count++
		sum += v
	}
	if s.Count == 0 {
		return s
	}
	s.Mean = sum / float64(s.Count)
	if s.Count < 2 {
		return s
	}
	// two-pass variance keeps precision for large offsets
	ss := 0.0
	for i, v := range c.Nums {
		if c.IsNull(i) || math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		d := v - s.Mean
		ss += d * d
	}
	s.Std = math.Sqrt(ss / float64(s.Count-1))
	return s
}

// ZScores returns |x-mean|/std per row, or nil when the column has zero
// variance. Null and non-finite rows get NaN.
func ZScores(c *dataset.Column, s Summary) []float64 {
	if s.Std == 0 || math.IsNaN(s.Std) {
		return nil
	}
	out := make([]float64, len(c.Nums))
	for i, v := range c.Nums {
		if c.IsNull(i) || math.IsInf(v, 0) || math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Abs(v-s.Mean) / s.Std
	}
	return out
}
