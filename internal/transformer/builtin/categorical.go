package builtin

import (
	"fmt"
	"sort"
	"strconv"

	"etlcore/internal/dataset"
)

// UnknownCode is the ordinal code for nulls and for values outside a column's
// category set.
const UnknownCode = -1

// Categories returns the distinct non-null values of a Text or Categorical
// column in sort order. When every value parses as a number the order is
// numeric, otherwise lexical.
func Categories(c *dataset.Column) []string {
	seen := make(map[string]struct{})
	var out []string
	for i, s := range c.Strs {
		if c.IsNull(i) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sortCategories(out)
	return out
}

func sortCategories(vals []string) {
	key := make(map[string]float64, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			sort.Strings(vals)
			return
		}
		key[v] = f
	}
	sort.Slice(vals, func(i, j int) bool { return key[vals[i]] < key[vals[j]] })
}

// Ordinal replaces every Text and Categorical column by Numeric integer
// codes, assigned by category sort order. Categories optionally pins the
// category set per column; values outside it, and nulls, get UnknownCode.
type Ordinal struct {
	Categories map[string][]string
}

func (Ordinal) Name() string { return "ordinal_encode" }

func (o Ordinal) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out := in.Clone()
	for _, c := range out.ColumnsOfType(dataset.Text, dataset.Categorical) {
		cats, ok := o.Categories[c.Name]
		if !ok {
			cats = Categories(c)
		}
		code := make(map[string]int, len(cats))
		for i, v := range cats {
			code[v] = i
		}
		vals := make([]float64, c.Len())
		for i, s := range c.Strs {
			vals[i] = UnknownCode
			if c.IsNull(i) {
				continue
			}
			if k, ok := code[s]; ok {
				vals[i] = float64(k)
			}
		}
		if err := out.ReplaceColumn(dataset.NewNumeric(c.Name, vals, nil)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// OneHot replaces each Text or Categorical column with at most MaxCategories
// distinct values by one Boolean column per value, named "<col>_<value>" and
// appended after the existing columns; the source column is dropped. Wider
// columns are left as they are. A null row is false in every indicator.
type OneHot struct {
	MaxCategories int
}

func (OneHot) Name() string { return "one_hot_encode" }

func (o OneHot) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	out := in.Clone()
	for _, c := range in.ColumnsOfType(dataset.Text, dataset.Categorical) {
		cats := Categories(c)
		if len(cats) > o.MaxCategories {
			continue
		}
		out.DropColumn(c.Name)
		for _, v := range cats {
			ind := make([]bool, c.Len())
			for i, s := range c.Strs {
				ind[i] = !c.IsNull(i) && s == v
			}
			if err := out.AddColumn(dataset.NewBoolean(c.Name+"_"+v, ind, nil)); err != nil {
				return nil, fmt.Errorf("one-hot %q: %w", c.Name, err)
			}
		}
	}
	return out, nil
}
