package builtin

import (
	"etlcore/internal/dataset"
	"etlcore/internal/stats"
)

// MinMax scales every Numeric column to [0,1]. Columns whose max equals their
// min, that have no values, or that hold ±Inf or NaN are left unchanged.
// Nulls stay null.
type MinMax struct{}

func (MinMax) Name() string { return "normalize" }

func (MinMax) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out := in.Clone()
	for _, c := range out.ColumnsOfType(dataset.Numeric) {
		s := stats.Describe(c)
		if s.Count == 0 || s.NonFinite > 0 || s.Max <= s.Min {
			continue
		}
		span := s.Max - s.Min
		for i := range c.Nums {
			if !c.IsNull(i) {
				c.Nums[i] = (c.Nums[i] - s.Min) / span
			}
		}
	}
	return out, nil
}

// ZScore standardizes every Numeric column to zero mean and unit sample
// standard deviation. Columns with zero variance or non-finite values are
// left unchanged.
type ZScore struct{}

func (ZScore) Name() string { return "standardize" }

func (ZScore) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out := in.Clone()
	for _, c := range out.ColumnsOfType(dataset.Numeric) {
		s := stats.Describe(c)
		if s.Std == 0 || s.NonFinite > 0 {
			continue
		}
		for i := range c.Nums {
			if !c.IsNull(i) {
				c.Nums[i] = (c.Nums[i] - s.Mean) / s.Std
			}
		}
	}
	return out, nil
}
