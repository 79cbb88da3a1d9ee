package table

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"
)

// Select keeps only cols, in the order given. Repeated names are kept once.
func (t *Table) Select(cols []string) (*Table, error) {
	cols = uniq(cols)
	if len(cols) == 0 {
		return nil, ErrNoColumnsSelected
	}
	if err := t.requireColumns(cols); err != nil {
		return nil, err
	}
	return wrap(t.df.Select(cols))
}

// Drop removes cols. Dropping nothing returns t; dropping every column is
// an error.
func (t *Table) Drop(cols []string) (*Table, error) {
	cols = uniq(cols)
	if len(cols) == 0 {
		return t, nil
	}
	if err := t.requireColumns(cols); err != nil {
		return nil, err
	}
	if len(cols) == t.Width() {
		return nil, fmt.Errorf("%w: every column would be removed", ErrNoColumnsSelected)
	}
	return wrap(t.df.Drop(cols))
}

func uniq(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Search keeps the rows where any cell contains term case-insensitively.
// Cells are matched as exported, except that whole floats also read with a
// trailing ".0" so "2.0" finds 2 in a float column. An empty term matches
// every row.
func (t *Table) Search(term string) *Table {
	if term == "" {
		return t
	}
	needle := strings.ToLower(term)

	names := t.df.Names()
	floats := make([]bool, len(names))
	for j, name := range names {
		floats[j] = t.df.Col(name).Type() == series.Float
	}

	var idx []int
	for i, rec := range t.Records()[1:] {
		for j, v := range rec {
			if floats[j] {
				v = floatText(v)
			}
			if strings.Contains(strings.ToLower(v), needle) {
				idx = append(idx, i)
				break
			}
		}
	}
	if len(idx) == t.Len() {
		return t
	}
	return t.subset(idx)
}

func floatText(v string) string {
	if v == "" || strings.ContainsAny(v, ".InfNa") {
		return v
	}
	return v + ".0"
}

// FilterAtLeast keeps the rows whose value in col is >= threshold. Missing
// values never match.
func (t *Table) FilterAtLeast(col string, threshold float64) (*Table, error) {
	if err := t.requireKind(col, KindNumeric); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return t, nil
	}

	df := t.df.Filter(dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: atLeast(threshold),
	})
	return wrap(df)
}

func atLeast(threshold float64) func(series.Element) bool {
	return func(el series.Element) bool {
		if el.IsNA() {
			return false
		}
		v := el.Float()
		return !math.IsNaN(v) && v >= threshold
	}
}

// Range returns the smallest and largest present value of a numeric column.
func (t *Table) Range(col string) (lo, hi float64, err error) {
	values, err := t.NumericSeries(col)
	if err != nil {
		return 0, 0, err
	}
	data := present(values)
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoValues, col)
	}
	lo, _ = stats.Min(data)
	hi, _ = stats.Max(data)
	return lo, hi, nil
}

// NormalizeReport lists which numeric columns were scaled and which were
// left alone because they hold fewer than two distinct values.
type NormalizeReport struct {
	Scaled   []string
	Constant []string
}

// Normalize min-max scales every numeric column with at least two distinct
// values to [0, 1]. Missing values stay missing.
func (t *Table) Normalize() (*Table, NormalizeReport, error) {
	var report NormalizeReport

	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, report, ErrNoNumericColumns
	}

	df := t.df
	for _, name := range numeric {
		values := t.df.Col(name).Float()
		data := present(values)
		if len(data) == 0 {
			report.Constant = append(report.Constant, name)
			continue
		}
		lo, _ := stats.Min(data)
		hi, _ := stats.Max(data)
		if lo == hi {
			report.Constant = append(report.Constant, name)
			continue
		}

		span := hi - lo
		for i, v := range values {
			if !math.IsNaN(v) {
				values[i] = (v - lo) / span
			}
		}
		df = df.Mutate(series.New(values, series.Float, name))
		report.Scaled = append(report.Scaled, name)
	}

	out, err := wrap(df)
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}
