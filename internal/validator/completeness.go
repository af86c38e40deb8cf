package validator

import "etlcore/internal/dataset"

// CompletenessReport gives the fraction of non-null cells overall and per
// column.
type CompletenessReport struct {
	OverallCompleteness float64            `json:"overall_completeness"`
	PerColumn           map[string]float64 `json:"column_completeness"`
	MissingCells        int                `json:"missing_cells"`
	TotalCells          int                `json:"total_cells"`
}

type Completeness struct{}

// Analyze never modifies ds. Overall completeness is 0 for a dataset without
// cells, and a column of an empty dataset is 0 complete.
func (Completeness) Analyze(ds *dataset.Dataset) CompletenessReport {
	rows := ds.Rows()
	r := CompletenessReport{
		PerColumn:    make(map[string]float64, ds.Width()),
		MissingCells: ds.NullCount(),
		TotalCells:   rows * ds.Width(),
	}
	if r.TotalCells > 0 {
		r.OverallCompleteness = 1 - float64(r.MissingCells)/float64(r.TotalCells)
	}
	for _, c := range ds.Columns() {
		if rows == 0 {
			r.PerColumn[c.Name] = 0
			continue
		}
		r.PerColumn[c.Name] = 1 - float64(c.NullCount())/float64(rows)
	}
	return r
}
