package table

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// ColumnSummary holds descriptive statistics for one column. Numeric
// columns fill Mean through Max; text columns fill Unique, Top and Freq.
type ColumnSummary struct {
	Name  string
	Kind  Kind
	Count int

	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64

	Unique int
	Top    string
	Freq   int
}

// Describe summarizes the numeric columns. A table without numeric columns
// gets a summary of its text columns instead.
func (t *Table) Describe() []ColumnSummary {
	if numeric := t.NumericColumns(); len(numeric) > 0 {
		out := make([]ColumnSummary, 0, len(numeric))
		for _, name := range numeric {
			out = append(out, t.describeNumeric(name))
		}
		return out
	}

	text := t.CategoricalColumns()
	out := make([]ColumnSummary, 0, len(text))
	for _, name := range text {
		out = append(out, t.describeText(name))
	}
	return out
}

func (t *Table) describeNumeric(name string) ColumnSummary {
	s := ColumnSummary{Name: name, Kind: KindNumeric}
	data := present(t.df.Col(name).Float())
	s.Count = len(data)
	if s.Count == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	s.Mean, _ = stats.Mean(data)
	s.Std, _ = stats.StandardDeviationSample(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Median, _ = stats.Median(data)
	s.Q1 = quantile(data, 25)
	s.Q3 = quantile(data, 75)
	return s
}

// quantile falls back to nearest rank for samples too small to interpolate.
func quantile(data stats.Float64Data, pct float64) float64 {
	q, err := stats.Percentile(data, pct)
	if err == nil {
		return q
	}
	q, err = stats.PercentileNearestRank(data, pct)
	if err != nil {
		return math.NaN()
	}
	return q
}

func (t *Table) describeText(name string) ColumnSummary {
	s := ColumnSummary{Name: name, Kind: KindText}
	counts, _ := t.ValueCounts(name)
	s.Unique = len(counts)
	for _, c := range counts {
		s.Count += c.Count
	}
	if len(counts) > 0 {
		s.Top = counts[0].Value
		s.Freq = counts[0].Count
	}
	return s
}

// ValueCount is one distinct value of a column and how often it occurs.
type ValueCount struct {
	Value   string
	Count   int
	Percent float64
}

// ValueCounts counts the present values of a text column, most frequent
// first. Ties keep the order of first appearance.
func (t *Table) ValueCounts(col string) ([]ValueCount, error) {
	if err := t.requireKind(col, KindText); err != nil {
		return nil, err
	}

	s := t.df.Col(col)
	index := make(map[string]int)
	var counts []ValueCount
	total := 0
	for i := 0; i < s.Len(); i++ {
		el := s.Elem(i)
		if el.IsNA() {
			continue
		}
		v := el.String()
		total++
		if j, ok := index[v]; ok {
			counts[j].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	for i := range counts {
		counts[i].Percent = 100 * float64(counts[i].Count) / float64(total)
	}
	return counts, nil
}
