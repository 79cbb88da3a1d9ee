// Package table is the in-memory model behind every uploaded file.
//
// A Table wraps a gota DataFrame. Operations never modify the receiver: each
// one returns a new Table, so the parsed original of a file can be re-used
// by every request that runs a pipeline over it.
//
// Column kinds follow the dataframe's detected types:
//
//   - KindNumeric: int or float columns (fill, filter, normalize, bar/line charts)
//   - KindText:    string columns (search, pie charts)
//   - KindBool:    true/false columns
//
// Missing cells are NA in the dataframe and render as the empty string.
package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Kind classifies a column for the operations that depend on its type.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "boolean"
	default:
		return "text"
	}
}

func kindOf(t series.Type) Kind {
	switch t {
	case series.Int, series.Float:
		return KindNumeric
	case series.Bool:
		return KindBool
	default:
		return KindText
	}
}

// Table is an immutable rows × named columns structure.
type Table struct {
	df dataframe.DataFrame
}

func wrap(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	return &Table{df: df}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.df.Nrow() }

// Width returns the number of columns.
func (t *Table) Width() int { return t.df.Ncol() }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.df.Names() }

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Kind returns the kind of the named column.
func (t *Table) Kind(col string) (Kind, error) {
	names := t.df.Names()
	types := t.df.Types()
	for i, n := range names {
		if n == col {
			return kindOf(types[i]), nil
		}
	}
	return KindText, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
}

// Kinds returns the kind of every column, in column order.
func (t *Table) Kinds() []Kind {
	types := t.df.Types()
	kinds := make([]Kind, len(types))
	for i, typ := range types {
		kinds[i] = kindOf(typ)
	}
	return kinds
}

// NumericColumns returns the names of int and float columns in order.
func (t *Table) NumericColumns() []string { return t.columnsOf(KindNumeric) }

// CategoricalColumns returns the names of text columns in order.
func (t *Table) CategoricalColumns() []string { return t.columnsOf(KindText) }

func (t *Table) columnsOf(kind Kind) []string {
	var out []string
	names := t.df.Names()
	for i, k := range t.Kinds() {
		if k == kind {
			out = append(out, names[i])
		}
	}
	return out
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n >= t.Len() {
		return t
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.subset(idx)
}

// Records returns the header followed by every row, with each cell
// stringified the way it is exported.
func (t *Table) Records() [][]string {
	names := t.df.Names()
	cols := make([]series.Series, len(names))
	for i, n := range names {
		cols[i] = t.df.Col(n)
	}

	out := make([][]string, 0, t.Len()+1)
	out = append(out, append([]string(nil), names...))
	for r := 0; r < t.Len(); r++ {
		row := make([]string, len(cols))
		for c := range cols {
			row[c] = formatElement(cols[c].Elem(r))
		}
		out = append(out, row)
	}
	return out
}

// NumericSeries returns the values of a numeric column. Missing cells are NaN.
func (t *Table) NumericSeries(col string) ([]float64, error) {
	if err := t.requireKind(col, KindNumeric); err != nil {
		return nil, err
	}
	return t.df.Col(col).Float(), nil
}

func (t *Table) requireKind(col string, want Kind) error {
	kind, err := t.Kind(col)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: %q is %s, not %s", ErrUnsupportedColumn, col, kind, want)
	}
	return nil
}

func (t *Table) requireColumns(cols []string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return fmt.Errorf("%w: %q", ErrColumnNotFound, c)
		}
	}
	return nil
}

// subset keeps the rows at idx. The indexes are always produced by this
// package and in range, so the dataframe cannot fail.
func (t *Table) subset(idx []int) *Table {
	if idx == nil {
		idx = []int{}
	}
	return &Table{df: t.df.Subset(idx)}
}

func formatElement(el series.Element) string {
	if el.IsNA() {
		return ""
	}
	switch el.Type() {
	case series.Float:
		return formatFloat(el.Float())
	case series.Int:
		v, err := el.Int()
		if err != nil {
			return ""
		}
		return strconv.Itoa(v)
	case series.Bool:
		b, err := el.Bool()
		if err != nil {
			return ""
		}
		return strconv.FormatBool(b)
	default:
		return el.String()
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
