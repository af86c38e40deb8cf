package validator

import (
	"bytes"

	"github.com/zeebo/xxh3"

	"etlcore/internal/config"
	"etlcore/internal/dataset"
	"etlcore/internal/stats"
)

// IssueKind names a class of quality finding.
type IssueKind string

const (
	MissingValues IssueKind = "missing_values"
	Duplicates    IssueKind = "duplicates"
	Outliers      IssueKind = "outliers"
)

// Issue is one quality finding. Which detail fields are set depends on Kind:
// missing_values carries PerColumnCounts, duplicates carries Count, outliers
// carries Column and Count.
type Issue struct {
	Kind            IssueKind      `json:"kind"`
	Column          string         `json:"column,omitempty"`
	Count           int            `json:"count,omitempty"`
	PerColumnCounts map[string]int `json:"per_column_counts,omitempty"`
}

// QualityReport carries a heuristic score in [0,1] and the findings behind it.
type QualityReport struct {
	QualityScore float64 `json:"quality_score"`
	Issues       []Issue `json:"issues"`
}

// Quality scores a dataset. Nulls and duplicate rows lower the score;
// outliers are only reported.
type Quality struct {
	// OutlierDetection is nil when outlier detection is disabled.
	OutlierDetection *config.OutlierDetection
}

// Check computes the quality report for ds without modifying it.
func (q Quality) Check(ds *dataset.Dataset) QualityReport {
	r := QualityReport{QualityScore: 1.0, Issues: []Issue{}}
	rows, cols := ds.Rows(), ds.Width()

	if nulls := ds.NullCount(); nulls > 0 && rows*cols > 0 {
		per := make(map[string]int)
		for _, c := range ds.Columns() {
			if n := c.NullCount(); n > 0 {
				per[c.Name] = n
			}
		}
		r.QualityScore -= float64(nulls) / float64(rows*cols)
		r.Issues = append(r.Issues, Issue{Kind: MissingValues, PerColumnCounts: per})
	}

	if dups := DuplicateRows(ds); dups > 0 {
		r.QualityScore -= float64(dups) / float64(rows)
		r.Issues = append(r.Issues, Issue{Kind: Duplicates, Count: dups})
	}

	if od := q.OutlierDetection; od != nil && od.Method == "zscore" {
		for _, c := range ds.ColumnsOfType(dataset.Numeric) {
			if n := countOutliers(c, od.Threshold); n > 0 {
				r.Issues = append(r.Issues, Issue{Kind: Outliers, Column: c.Name, Count: n})
			}
		}
	}

	r.QualityScore = clamp01(r.QualityScore)
	return r
}

// DuplicateRows counts rows equal to some earlier row. Nulls compare equal to
// nulls. Rows are bucketed by xxh3 hash and compared exactly within a bucket.
func DuplicateRows(ds *dataset.Dataset) int {
	rows := ds.Rows()
	if rows < 2 {
		return 0
	}
	seen := make(map[uint64][]int, rows)
	var cur, prev []byte
	dups := 0
	for i := 0; i < rows; i++ {
		cur = ds.AppendRowKey(cur[:0], i)
		h := xxh3.Hash(cur)
		dup := false
		for _, j := range seen[h] {
			prev = ds.AppendRowKey(prev[:0], j)
			if bytes.Equal(cur, prev) {
				dup = true
				break
			}
		}
		if dup {
			dups++
			continue
		}
		seen[h] = append(seen[h], i)
	}
	return dups
}

// countOutliers returns the number of rows with |x-mean|/std above
// threshold. Columns with fewer than two values or zero variance have none.
func countOutliers(c *dataset.Column, threshold float64) int {
	z := stats.ZScores(c, stats.Describe(c))
	n := 0
	for _, v := range z {
		// NaN (null rows) compares false
		if v > threshold {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
