package templates

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestUploadResults(t *testing.T) {
	ok := core.FileResult{Name: "a.csv", Meta: &core.FileMeta{ID: "f1", Name: "a.csv", Rows: 3, Columns: 2}}

	t.Run("all succeeded", func(t *testing.T) {
		html := renderString(t, UploadResults(core.BatchResult{Files: []core.FileResult{ok}}))
		assert.Contains(t, html, `href="/files/f1"`)
		assert.Contains(t, html, "3 rows, 2 columns")
		assert.Contains(t, html, "All files processed successfully")
	})

	t.Run("failures are listed inline", func(t *testing.T) {
		bad := core.FileResult{Name: "<b>.txt", Err: table.ErrUnsupportedFileType}
		html := renderString(t, UploadResults(core.BatchResult{Files: []core.FileResult{ok, bad}}))
		assert.Contains(t, html, "&lt;b&gt;.txt")
		assert.Contains(t, html, "FILE002")
		assert.NotContains(t, html, "All files processed successfully")
	})
}

func TestGridTableEscapes(t *testing.T) {
	html := renderString(t, GridTable(Grid{
		Header: []string{"name"},
		Rows:   [][]string{{`<img src=x onerror="alert(1)">`}},
		Total:  7,
	}))
	assert.NotContains(t, html, "<img")
	assert.Contains(t, html, "&lt;img")
	assert.Contains(t, html, "Showing 1 of 7 rows")
}

func TestNewGrid(t *testing.T) {
	tbl, err := table.Load(strings.NewReader("a,b\n1,x\n2,y\n3,z\n"), table.FileCSV)
	require.NoError(t, err)

	g := NewGrid(tbl, 2)
	assert.Equal(t, []string{"a", "b"}, g.Header)
	assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}}, g.Rows)
	assert.Equal(t, 3, g.Total)
}

func TestSummaryTable(t *testing.T) {
	numeric := renderString(t, SummaryTable([]table.ColumnSummary{
		{Name: "units", Kind: table.KindNumeric, Count: 2, Mean: 8.5, Std: math.NaN(), Min: 7, Q1: 7, Median: 8.5, Q3: 10, Max: 10},
	}))
	assert.Contains(t, numeric, "<th>mean</th>")
	assert.Contains(t, numeric, "<td>8.5</td>")
	assert.Contains(t, numeric, "<td>–</td>")

	text := renderString(t, SummaryTable([]table.ColumnSummary{
		{Name: "city", Kind: table.KindText, Count: 3, Unique: 2, Top: "Oslo", Freq: 2},
	}))
	assert.Contains(t, text, "<th>unique</th>")
	assert.Contains(t, text, "<td>Oslo</td>")
}

func TestFilePage(t *testing.T) {
	meta := core.FileMeta{ID: "f1", Name: "sales.csv", Kind: table.FileCSV}

	t.Run("pipeline error replaces the result", func(t *testing.T) {
		msg := core.MapError(table.ErrNoNumericColumns)
		html := renderString(t, FilePage(FileParams{Meta: meta, Columns: []string{"a"}, Err: &msg}))
		assert.Contains(t, html, "COL004")
		assert.NotContains(t, html, "<h2>Result</h2>")
	})

	t.Run("form echoes its values", func(t *testing.T) {
		html := renderString(t, FilePage(FileParams{
			Meta:         meta,
			Columns:      []string{"region", "units"},
			Numeric:      []string{"units"},
			FilterRanges: map[string]Bounds{"units": {Min: 4, Max: 10}},
			PieColumns:   []string{"region"},
			Form:         Form{Dedup: true, Keep: []string{"units"}, FilterCol: "units", Min: "5", Format: "xlsx"},
			Outcome:      &core.Outcome{Notices: []core.Notice{{Step: core.StepDedup, Level: core.LevelSuccess, Message: "Duplicates removed: 1 row"}}},
		}))
		assert.Contains(t, html, `name="dedup" value="1" checked`)
		assert.Contains(t, html, `<option value="units" selected>units (4 – 10)</option>`)
		assert.Contains(t, html, `<input type="number" step="any" min="4" max="10" name="min" value="5">`)
		// units is offered for removal but not as a pie column.
		assert.Equal(t, 1, strings.Count(html, `<option value="units">units</option>`))
		assert.Equal(t, 3, strings.Count(html, `<option value="region">region</option>`))
		assert.Contains(t, html, `<option value="xlsx" selected>`)
		assert.Contains(t, html, `formaction="/files/f1/export"`)
		assert.Contains(t, html, `class="alert alert-success">Duplicates removed: 1 row`)
	})
}

func TestErrorPage(t *testing.T) {
	html := renderString(t, ErrorPage(core.MapError(errors.New("boom"))))
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "ERR000")
}
