package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"
)

// RemoveDuplicates drops rows that exactly repeat an earlier row, keeping
// the first occurrence. It returns the number of rows removed.
func (t *Table) RemoveDuplicates() (*Table, int) {
	records := t.Records()[1:]

	seen := make(map[string]struct{}, len(records))
	keep := make([]int, 0, len(records))
	for i, rec := range records {
		key := rowKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	removed := len(records) - len(keep)
	if removed == 0 {
		return t, 0
	}
	return t.subset(keep), removed
}

func rowKey(rec []string) string {
	var b strings.Builder
	for _, v := range rec {
		b.WriteString(strconv.Quote(v))
		b.WriteByte(',')
	}
	return b.String()
}

// FillMissingMean replaces missing cells of every numeric column with the
// mean of that column's present values. Filled int columns become float
// columns. The returned map holds the number of cells filled per column;
// columns with nothing to fill, or nothing to average, are absent.
func (t *Table) FillMissingMean() (*Table, map[string]int, error) {
	df := t.df
	filled := make(map[string]int)

	for _, name := range t.NumericColumns() {
		values := t.df.Col(name).Float()
		mean, err := stats.Mean(present(values))
		if err != nil {
			continue
		}

		n := 0
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = mean
				n++
			}
		}
		if n == 0 {
			continue
		}
		df = df.Mutate(series.New(values, series.Float, name))
		filled[name] = n
	}

	out, err := wrap(df)
	if err != nil {
		return nil, nil, err
	}
	return out, filled, nil
}

// present returns the non-NaN values of xs.
func present(xs []float64) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
