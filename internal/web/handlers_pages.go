package web

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/table"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// handleIndex renders the upload form and the session's files.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	files, err := s.sessionFiles(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, templates.IndexPage(s.indexParams(files)))
}

func (s *Server) indexParams(files []core.FileMeta) templates.IndexParams {
	limit := core.FileMeta{Size: s.cfg.Upload.MaxFileSize}
	return templates.IndexParams{
		Files:       files,
		MaxFileSize: limit.SizeLabel(),
		MaxFiles:    s.cfg.Upload.MaxFiles,
	}
}

// handleUpload loads a batch of files and shows the per-file results.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r = s.ensureSession(w, r)
	sid := sessionID(r)

	var batch core.BatchResult
	uploads, cleanup, err := s.parseUpload(w, r)
	if err == nil {
		batch, err = s.service.Upload(r.Context(), sid, uploads)
		cleanup()
	}

	files, ferr := s.service.Files(sid)
	if ferr != nil {
		s.respondError(w, r, ferr)
		return
	}
	params := s.indexParams(files)
	status := http.StatusOK
	if err != nil {
		logging.FromContext(r.Context()).Warn("upload rejected", "error", err)
		msg := core.MapError(err)
		params.UploadErr = &msg
		status = statusFor(err)
	} else {
		params.Batch = &batch
	}
	s.renderPage(w, r, status, templates.IndexPage(params))
}

// parseUpload reads the multipart "files" field. cleanup removes any
// temporary files once the upload has been loaded.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]core.UploadFile, func(), error) {
	maxBody := s.cfg.Upload.MaxFileSize*int64(s.cfg.Upload.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, fmt.Errorf("parse upload: %w", err)
	}
	form := r.MultipartForm
	cleanup := func() {
		if err := form.RemoveAll(); err != nil {
			logging.FromContext(r.Context()).Warn("remove upload temp files", "error", err)
		}
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		cleanup()
		return nil, nil, core.ErrNoFiles
	}
	return uploadFiles(headers), cleanup, nil
}

// uploadFiles adapts multipart headers for core.Service.Upload.
func uploadFiles(headers []*multipart.FileHeader) []core.UploadFile {
	out := make([]core.UploadFile, len(headers))
	for i, fh := range headers {
		out[i] = core.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		}
	}
	return out
}

// handleFileView renders the workspace for one file with the pipeline from
// the query string applied. Pipeline errors are shown inline.
func (s *Server) handleFileView(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	fileID := chi.URLParam(r, "fileID")

	meta, original, err := s.service.File(sid, fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	preview := s.cfg.Pipeline.PreviewRows
	form := formFromQuery(r.URL.Query())
	params := templates.FileParams{
		Meta:     meta,
		Original: templates.NewGrid(original, preview),
		Columns:  original.Columns(),
		Form:     form,
		Query:    encodeForm(form),
	}

	// Filter choices follow the table the filter step sees, falling back to
	// the upload when the pipeline fails.
	filterable := original
	out, err := s.process(r, fileID, form)
	if err != nil {
		logging.FromContext(r.Context()).Info("pipeline failed", "file_id", fileID, "error", err)
		msg := core.MapError(err)
		params.Err = &msg
	} else {
		filterable = out.Filterable
		params.Outcome = out
		params.Result = templates.NewGrid(out.Table, preview)
		if form.Stats {
			params.Summary = out.Table.Describe()
		}
		params.PieColumns = out.Table.CategoricalColumns()
		params.HasNumeric = len(out.Table.NumericColumns()) > 0
	}
	params.Numeric = filterable.NumericColumns()
	params.FilterRanges = filterRanges(filterable)

	s.renderPage(w, r, http.StatusOK, templates.FilePage(params))
}

func (s *Server) process(r *http.Request, fileID string, form templates.Form) (*core.Outcome, error) {
	p, err := s.pipeline(form)
	if err != nil {
		return nil, err
	}
	return s.service.Process(r.Context(), sessionID(r), fileID, p)
}

// filterRanges gives the threshold bounds for each numeric column.
func filterRanges(t *table.Table) map[string]templates.Bounds {
	out := make(map[string]templates.Bounds)
	for _, col := range t.NumericColumns() {
		lo, hi, err := t.Range(col)
		if err != nil {
			continue
		}
		out[col] = templates.Bounds{Min: lo, Max: hi}
	}
	return out
}

// handleChartImage serves a chart for the pipeline in the query string.
// Errors are drawn into the image so the page shows them in place.
func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	form := formFromQuery(r.URL.Query())

	svg, err := s.chart(r, fileID, chi.URLParam(r, "kind"), form.PieCol, form)
	if err != nil {
		logging.FromContext(r.Context()).Info("chart failed", "file_id", fileID, "error", err)
		svg = errorSVG(core.MapError(err))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(svg)
}

func (s *Server) chart(r *http.Request, fileID, kindName, column string, form templates.Form) ([]byte, error) {
	kind, err := core.ParseChartKind(kindName)
	if err != nil {
		return nil, err
	}
	p, err := s.pipeline(form)
	if err != nil {
		return nil, err
	}
	return s.service.Chart(r.Context(), sessionID(r), fileID, p, core.ChartRequest{Kind: kind, Column: column})
}

// errorSVG is a placeholder image carrying an error message.
func errorSVG(msg core.UserMessage) []byte {
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="800" height="80" viewBox="0 0 800 80">` +
		`<rect width="800" height="80" fill="#fdecea"/>` +
		`<text x="16" y="34" font-family="sans-serif" font-size="16" fill="#8a1c13">` +
		templ.EscapeString(msg.Message) + `</text>` +
		`<text x="16" y="60" font-family="sans-serif" font-size="13" fill="#8a1c13">` +
		templ.EscapeString(msg.Action+" ("+msg.Code+")") + `</text></svg>`)
}

// handleExport downloads the pipeline result in the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	form := formFromQuery(r.URL.Query())

	format := table.FileCSV
	if form.Format != "" {
		f, err := core.ParseExportFormat(form.Format)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		format = f
	}

	p, err := s.pipeline(form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	exp, err := s.service.Export(r.Context(), sessionID(r), fileID, p, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDownload(w, exp)
}

// handleDeleteFile removes a file and returns to the upload page.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveFile(sessionID(r), chi.URLParam(r, "fileID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleEndSession removes every file of the session.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// writeDownload sends an export as an attachment.
func writeDownload(w http.ResponseWriter, exp *core.Export) {
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(exp.Data)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
