package builtin

import (
	"time"

	"etlcore/internal/dataset"
)

// Temporal appends calendar features for every Datetime column c:
// c_year, c_month, c_day, c_dayofweek (Monday=0), c_quarter (1-4) as Numeric
// and c_is_weekend as Boolean. The source column is kept. A null timestamp
// yields null features.
//
// Applying Temporal twice fails with dataset.ErrDuplicateColumn.
type Temporal struct{}

func (Temporal) Name() string { return "temporal_features" }

func (Temporal) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out := in.Clone()
	for _, c := range in.ColumnsOfType(dataset.Datetime) {
		for _, f := range temporalFeatures(c) {
			if err := out.AddColumn(f); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Weekday returns the day of week with Monday=0 and Sunday=6.
func Weekday(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }

func temporalFeatures(c *dataset.Column) []*dataset.Column {
	n := c.Len()
	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	dow := make([]float64, n)
	quarter := make([]float64, n)
	weekend := make([]bool, n)
	for i, t := range c.Times {
		if c.IsNull(i) {
			continue
		}
		wd := Weekday(t)
		year[i] = float64(t.Year())
		month[i] = float64(t.Month())
		day[i] = float64(t.Day())
		dow[i] = float64(wd)
		quarter[i] = float64((int(t.Month())-1)/3 + 1)
		weekend[i] = wd >= 5
	}
	mask := func() []bool {
		if c.Nulls == nil {
			return nil
		}
		return append([]bool(nil), c.Nulls...)
	}
	return []*dataset.Column{
		dataset.NewNumeric(c.Name+"_year", year, mask()),
		dataset.NewNumeric(c.Name+"_month", month, mask()),
		dataset.NewNumeric(c.Name+"_day", day, mask()),
		dataset.NewNumeric(c.Name+"_dayofweek", dow, mask()),
		dataset.NewNumeric(c.Name+"_quarter", quarter, mask()),
		dataset.NewBoolean(c.Name+"_is_weekend", weekend, mask()),
	}
}
