package templates

import (
	"context"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

// Grid is a preview of a table.
type Grid struct {
	Header []string
	Rows   [][]string
	Total  int
}

// NewGrid previews the first n rows of t.
func NewGrid(t *table.Table, n int) Grid {
	records := t.Head(n).Records()
	return Grid{Header: records[0], Rows: records[1:], Total: t.Len()}
}

// Form echoes the pipeline form's current values.
type Form struct {
	Dedup     bool
	Fill      bool
	Normalize bool
	Stats     bool
	Charts    bool
	Keep      []string
	Remove    []string
	Search    string
	FilterCol string
	Min       string
	PieCol    string
	Format    string
}

// Bounds is the range of a numeric column.
type Bounds struct {
	Min, Max float64
}

func (b Bounds) String() string { return num(b.Min) + " – " + num(b.Max) }

// FileParams feeds the file workspace.
type FileParams struct {
	Meta     core.FileMeta
	Original Grid

	// Columns are the uploaded table's columns, for keep and remove.
	Columns []string

	// Numeric and FilterRanges describe the table the filter step reads.
	Numeric      []string
	FilterRanges map[string]Bounds

	Form Form

	// Query is Form encoded for chart and export links.
	Query string

	Outcome *core.Outcome
	Result  Grid
	Summary []table.ColumnSummary

	// PieColumns are the text columns left after the pipeline.
	PieColumns []string
	HasNumeric bool

	Err *core.UserMessage
}

// FilePage is the workspace for one uploaded file.
func FilePage(p FileParams) templ.Component {
	return Layout(p.Meta.Name, component(func(ctx context.Context, h *html) {
		h.raw(`<p><a href="/">← All files</a></p><section class="card"><h1>`)
		h.text(p.Meta.Name)
		h.raw(`</h1><dl class="meta"><dt>Type</dt><dd>`)
		h.text(string(p.Meta.Kind))
		h.raw(`</dd><dt>Size</dt><dd>`)
		h.text(p.Meta.SizeLabel())
		h.raw(`</dd><dt>Rows</dt><dd>`)
		h.textf("%d", p.Meta.Rows)
		h.raw(`</dd><dt>Columns</dt><dd>`)
		h.textf("%d", p.Meta.Columns)
		h.raw(`</dd></dl><h2>Preview</h2>`)
		h.render(ctx, GridTable(p.Original))
		h.raw(`</section>`)

		h.render(ctx, pipelineForm(p))

		if p.Err != nil {
			h.render(ctx, ErrorAlert(p.Err.Message, p.Err.Action, p.Err.Code))
			return
		}
		if p.Outcome == nil {
			return
		}

		h.raw(`<section class="card"><h2>Result</h2>`)
		h.render(ctx, Notices(p.Outcome.Notices))
		h.render(ctx, GridTable(p.Result))
		h.raw(`</section>`)

		if p.Form.Stats {
			h.raw(`<section class="card"><h2>Statistics</h2>`)
			h.render(ctx, SummaryTable(p.Summary))
			h.raw(`</section>`)
		}
		if p.Form.Charts {
			h.render(ctx, chartSection(p))
		}
	}))
}

func pipelineForm(p FileParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		f := p.Form
		h.raw(`<section class="card"><form method="get" action="`)
		h.text(fileURL(p.Meta.ID, ""))
		h.raw(`" class="pipeline">`)

		h.raw(`<fieldset><legend>Cleaning</legend>`)
		checkbox(h, "dedup", "Remove duplicates", f.Dedup)
		checkbox(h, "fill", "Fill missing values", f.Fill)
		h.raw(`</fieldset>`)

		h.raw(`<fieldset><legend>Columns</legend><label>Keep<select name="keep" multiple>`)
		options(h, p.Columns, f.Keep)
		h.raw(`</select></label><label>Remove<select name="remove" multiple>`)
		options(h, p.Columns, f.Remove)
		h.raw(`</select></label></fieldset>`)

		h.raw(`<fieldset><legend>Search and filter</legend><label>Search<input type="search" name="q" maxlength="200" value="`)
		h.text(f.Search)
		h.raw(`"></label>`)
		if len(p.Numeric) > 0 {
			h.raw(`<label>Column<select name="filter_col"><option value="">No filter</option>`)
			for _, c := range p.Numeric {
				h.raw(`<option value="`)
				h.text(c)
				h.raw(`"`)
				if c == f.FilterCol {
					h.raw(` selected`)
				}
				h.raw(`>`)
				h.text(c)
				if b, ok := p.FilterRanges[c]; ok {
					h.textf(" (%s)", b)
				}
				h.raw(`</option>`)
			}
			h.raw(`</select></label><label>At least<input type="number" step="any"`)
			if b, ok := p.FilterRanges[f.FilterCol]; ok {
				h.raw(` min="`, attrNum(b.Min), `" max="`, attrNum(b.Max), `"`)
			}
			h.raw(` name="min" value="`)
			h.text(f.Min)
			h.raw(`"></label>`)
		}
		h.raw(`</fieldset>`)

		h.raw(`<fieldset><legend>Transform and view</legend>`)
		checkbox(h, "normalize", "Normalize numeric columns", f.Normalize)
		checkbox(h, "stats", "Show statistics", f.Stats)
		checkbox(h, "charts", "Show charts", f.Charts)
		h.raw(`<label>Pie column<select name="pie_col"><option value="">First text column</option>`)
		options(h, p.PieColumns, []string{f.PieCol})
		h.raw(`</select></label></fieldset>`)

		h.raw(`<fieldset><legend>Convert</legend><label>Format<select name="format">`)
		for _, opt := range [][2]string{{"csv", "CSV"}, {"xlsx", "Excel"}} {
			h.raw(`<option value="`, opt[0], `"`)
			if f.Format == opt[0] {
				h.raw(` selected`)
			}
			h.raw(`>`, opt[1], `</option>`)
		}
		h.raw(`</select></label></fieldset>`)

		h.raw(`<div class="actions"><button type="submit">Apply</button>`,
			`<button type="submit" formaction="`)
		h.text(fileURL(p.Meta.ID, "/export"))
		h.raw(`">Download</button></div></form></section>`)
	})
}

func checkbox(h *html, name, label string, checked bool) {
	h.raw(`<label class="check"><input type="checkbox" name="`, name, `" value="1"`)
	if checked {
		h.raw(` checked`)
	}
	h.raw(`> `)
	h.text(label)
	h.raw(`</label>`)
}

func options(h *html, values, selected []string) {
	for _, v := range values {
		h.raw(`<option value="`)
		h.text(v)
		h.raw(`"`)
		if contains(selected, v) {
			h.raw(` selected`)
		}
		h.raw(`>`)
		h.text(v)
		h.raw(`</option>`)
	}
}

func chartSection(p FileParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<section class="card charts"><h2>Charts</h2>`)
		if !p.HasNumeric && len(p.PieColumns) == 0 {
			h.raw(`<p class="hint">No columns to chart.</p></section>`)
			return
		}
		if p.HasNumeric {
			for _, kind := range []string{"bar", "line"} {
				h.raw(`<figure><img alt="`, kind, ` chart" src="`)
				h.text(withQuery(fileURL(p.Meta.ID, "/charts/"+kind+".svg"), p.Query))
				h.raw(`"></figure>`)
			}
		}
		if len(p.PieColumns) > 0 {
			h.raw(`<figure><img alt="pie chart" src="`)
			h.text(withQuery(fileURL(p.Meta.ID, "/charts/pie.svg"), p.Query))
			h.raw(`"></figure>`)
		}
		h.raw(`</section>`)
	})
}

// GridTable renders a preview grid.
func GridTable(g Grid) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="scroll"><table class="grid"><thead><tr>`)
		for _, c := range g.Header {
			h.raw(`<th>`)
			h.text(c)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, row := range g.Rows {
			h.raw(`<tr>`)
			for _, v := range row {
				h.raw(`<td>`)
				h.text(v)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div><p class="hint">`)
		h.textf("Showing %d of %d rows", len(g.Rows), g.Total)
		h.raw(`</p>`)
	})
}

// SummaryTable renders descriptive statistics.
func SummaryTable(summary []table.ColumnSummary) templ.Component {
	return component(func(_ context.Context, h *html) {
		if len(summary) == 0 {
			h.raw(`<p class="hint">No columns to describe.</p>`)
			return
		}
		if summary[0].Kind != table.KindNumeric {
			h.raw(`<table class="grid"><thead><tr><th></th><th>count</th><th>unique</th><th>top</th><th>freq</th></tr></thead><tbody>`)
			for _, s := range summary {
				h.raw(`<tr><th>`)
				h.text(s.Name)
				h.raw(`</th><td>`)
				h.textf("%d", s.Count)
				h.raw(`</td><td>`)
				h.textf("%d", s.Unique)
				h.raw(`</td><td>`)
				h.text(s.Top)
				h.raw(`</td><td>`)
				h.textf("%d", s.Freq)
				h.raw(`</td></tr>`)
			}
			h.raw(`</tbody></table>`)
			return
		}

		h.raw(`<table class="grid"><thead><tr><th></th><th>count</th><th>mean</th><th>std</th>`,
			`<th>min</th><th>25%</th><th>50%</th><th>75%</th><th>max</th></tr></thead><tbody>`)
		for _, s := range summary {
			h.raw(`<tr><th>`)
			h.text(s.Name)
			h.raw(`</th><td>`)
			h.textf("%d", s.Count)
			for _, v := range []float64{s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max} {
				h.raw(`</td><td>`)
				h.text(num(v))
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}
