package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Sheet1"

// Write encodes t in the given format.
func (t *Table) Write(w io.Writer, kind FileKind) error {
	switch kind {
	case FileCSV:
		return t.WriteCSV(w)
	case FileXLSX:
		return t.WriteXLSX(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, string(kind))
	}
}

// WriteCSV writes the header and every row. Missing cells are empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook. Numbers and booleans are stored
// as typed cells; missing cells are left blank.
func (t *Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	names := t.df.Names()
	header := make([]interface{}, len(names))
	cols := make([]series.Series, len(names))
	for i, n := range names {
		header[i] = n
		cols[i] = t.df.Col(n)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for r := 0; r < t.Len(); r++ {
		row := make([]interface{}, len(cols))
		for c := range cols {
			row[c] = cellValue(cols[c].Elem(r))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("write xlsx row %d: %w", r+1, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", r+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cellValue(el series.Element) interface{} {
	if el.IsNA() {
		return nil
	}
	switch el.Type() {
	case series.Float:
		f := el.Float()
		if math.IsNaN(f) {
			return nil
		}
		return f
	case series.Int:
		v, err := el.Int()
		if err != nil {
			return nil
		}
		return v
	case series.Bool:
		b, err := el.Bool()
		if err != nil {
			return nil
		}
		return b
	default:
		return el.String()
	}
}
