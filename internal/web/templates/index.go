package templates

import (
	"context"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// IndexParams feeds the upload page.
type IndexParams struct {
	Files []core.FileMeta

	// Batch is the result of the upload that led to this page, if any.
	Batch *core.BatchResult

	// UploadErr is set when the upload as a whole was rejected.
	UploadErr *core.UserMessage

	MaxFileSize string
	MaxFiles    int
}

// IndexPage is the upload form and the session's file list.
func IndexPage(p IndexParams) templ.Component {
	return Layout("Data Sweeper", component(func(ctx context.Context, h *html) {
		h.raw(`<section class="card"><h1>Upload files</h1>`,
			`<form method="post" action="/upload" enctype="multipart/form-data">`,
			`<input type="file" name="files" accept=".csv,.xlsx" multiple required>`,
			`<button type="submit">Upload</button></form>`,
			`<p class="hint">CSV or Excel (.xlsx), up to `)
		h.textf("%d files of %s each.", p.MaxFiles, p.MaxFileSize)
		h.raw(`</p>`)

		if p.UploadErr != nil {
			h.render(ctx, ErrorAlert(p.UploadErr.Message, p.UploadErr.Action, p.UploadErr.Code))
		}
		if p.Batch != nil {
			h.render(ctx, UploadResults(*p.Batch))
		}
		h.raw(`</section>`)

		h.render(ctx, FileList(p.Files))
	}))
}

// UploadResults reports each file of a batch inline.
func UploadResults(batch core.BatchResult) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<ul class="results">`)
		for _, f := range batch.Files {
			h.raw(`<li>`)
			if f.OK() {
				h.raw(`<a href="`)
				h.text(fileURL(f.Meta.ID, ""))
				h.raw(`">`)
				h.text(f.Name)
				h.raw(`</a> `)
				h.textf("%d rows, %d columns", f.Meta.Rows, f.Meta.Columns)
			} else {
				h.raw(`<strong>`)
				h.text(f.Name)
				h.raw(`</strong>`)
				msg := f.Message()
				h.render(ctx, ErrorAlert(msg.Message, msg.Action, msg.Code))
			}
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
		if batch.AllSucceeded() {
			h.raw(`<div class="alert alert-success">All files processed successfully</div>`)
		}
	})
}

// FileList is the table of uploaded files.
func FileList(files []core.FileMeta) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<section class="card"><h2>Your files</h2>`)
		if len(files) == 0 {
			h.raw(`<p class="hint">Nothing uploaded yet.</p></section>`)
			return
		}
		h.raw(`<table class="grid"><thead><tr><th>File</th><th>Type</th><th>Size</th>`,
			`<th>Rows</th><th>Columns</th><th></th></tr></thead><tbody>`)
		for _, f := range files {
			h.raw(`<tr><td><a href="`)
			h.text(fileURL(f.ID, ""))
			h.raw(`">`)
			h.text(f.Name)
			h.raw(`</a></td><td>`)
			h.text(string(f.Kind))
			h.raw(`</td><td>`)
			h.text(f.SizeLabel())
			h.raw(`</td><td>`)
			h.textf("%d", f.Rows)
			h.raw(`</td><td>`)
			h.textf("%d", f.Columns)
			h.raw(`</td><td><form method="post" action="`)
			h.text(fileURL(f.ID, "/delete"))
			h.raw(`"><button type="submit" class="link">Remove</button></form></td></tr>`)
		}
		h.raw(`</tbody></table><form method="post" action="/session/end" class="actions">`,
			`<button type="submit">Remove all files</button></form></section>`)
	})
}
