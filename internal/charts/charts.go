// Package charts renders the column visualizations as SVG.
//
// Inputs are plain values so the package has no dependency on the table
// model; callers extract the columns and cap the number of rows.
package charts

import (
	"errors"
	"fmt"
	"html"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

// ErrNotEnoughData is returned when there is nothing drawable.
var ErrNotEnoughData = errors.New("not enough data to chart")

const (
	defaultWidth  = 800
	defaultHeight = 400
)

// Options controls the canvas.
type Options struct {
	Title  string
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// Series is one numeric column. NaN marks a missing value.
type Series struct {
	Name   string
	Values []float64
}

// Slice is one category of a pie chart.
type Slice struct {
	Label   string
	Count   int
	Percent float64
}

// Bar draws each series as bars against the row number, overlaid with
// partial transparency on a zero-based axis. Missing values leave a gap.
func Bar(w io.Writer, opts Options, series []Series) error {
	rows := rowCount(series)
	if rows == 0 {
		return fmt.Errorf("%w: no rows", ErrNotEnoughData)
	}

	var (
		drawn  []chart.Series
		lo, hi float64
	)
	for i, s := range series {
		xs, ys := present(s.Values)
		if len(xs) == 0 {
			continue
		}
		for _, v := range ys {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		color := chart.GetDefaultColor(i)
		drawn = append(drawn, chart.HistogramSeries{
			Name: text(s.Name),
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 1,
				FillColor:   color.WithAlpha(160),
			},
			InnerSeries: chart.ContinuousSeries{Name: text(s.Name), XValues: xs, YValues: ys},
		})
	}
	if len(drawn) == 0 || (lo == 0 && hi == 0) {
		return fmt.Errorf("%w: every value is zero or missing", ErrNotEnoughData)
	}

	width, height := opts.size()
	ch := chart.Chart{
		Title:      text(opts.Title),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis: chart.XAxis{
			Name:  "row",
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(rows) + 0.5},
		},
		YAxis:  chart.YAxis{Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		Series: drawn,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// Line draws each series against its row number. Missing values are
// skipped; a series needs two present points to be drawn.
func Line(w io.Writer, opts Options, series []Series) error {
	var (
		drawn  []chart.Series
		lo, hi = math.Inf(1), math.Inf(-1)
	)
	for _, s := range series {
		xs, ys := present(s.Values)
		if len(xs) < 2 {
			continue
		}
		for _, v := range ys {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		drawn = append(drawn, chart.ContinuousSeries{Name: text(s.Name), XValues: xs, YValues: ys})
	}
	if len(drawn) == 0 {
		return fmt.Errorf("%w: a line needs at least two values", ErrNotEnoughData)
	}

	yAxis := chart.YAxis{}
	if lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	width, height := opts.size()
	ch := chart.Chart{
		Title:      text(opts.Title),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis:      chart.XAxis{Name: "row"},
		YAxis:      yAxis,
		Series:     drawn,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

// Pie draws value frequencies labelled with their share to one decimal.
// Slices beyond maxSlices are folded into "Other"; maxSlices <= 0 keeps all.
func Pie(w io.Writer, opts Options, slices []Slice, maxSlices int) error {
	slices = foldSlices(slices, maxSlices)

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		if s.Count <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: text(PieLabel(s)),
			Value: float64(s.Count),
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: no values to count", ErrNotEnoughData)
	}

	width, height := opts.size()
	pc := chart.PieChart{
		Title:  text(opts.Title),
		Width:  width,
		Height: height,
		Values: values,
	}
	if err := pc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// PieLabel formats a slice as "value (12.5%)".
func PieLabel(s Slice) string {
	return fmt.Sprintf("%s (%.1f%%)", s.Label, s.Percent)
}

func foldSlices(slices []Slice, max int) []Slice {
	if max <= 0 || len(slices) <= max {
		return slices
	}
	out := make([]Slice, max, max+1)
	copy(out, slices[:max])
	other := Slice{Label: "Other"}
	for _, s := range slices[max:] {
		other.Count += s.Count
		other.Percent += s.Percent
	}
	return append(out, other)
}

// text escapes a string for the SVG body; go-chart writes text verbatim.
func text(s string) string { return html.EscapeString(s) }

// present pairs each finite value with its 1-based row number.
func present(values []float64) (xs, ys []float64) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, float64(i+1))
		ys = append(ys, v)
	}
	return xs, ys
}

func rowCount(series []Series) int {
	n := 0
	for _, s := range series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
	}
	return n
}
