package web

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

// fileResultResponse is one file of an API upload.
type fileResultResponse struct {
	Name  string            `json:"name"`
	OK    bool              `json:"ok"`
	File  *core.FileMeta    `json:"file,omitempty"`
	Error *core.UserMessage `json:"error,omitempty"`
}

type uploadResponse struct {
	Files        []fileResultResponse `json:"files"`
	Succeeded    int                  `json:"succeeded"`
	AllSucceeded bool                 `json:"all_succeeded"`
}

func toUploadResponse(batch core.BatchResult) uploadResponse {
	resp := uploadResponse{
		Files:        make([]fileResultResponse, 0, len(batch.Files)),
		Succeeded:    batch.Succeeded(),
		AllSucceeded: batch.AllSucceeded(),
	}
	for _, f := range batch.Files {
		item := fileResultResponse{Name: f.Name, OK: f.OK(), File: f.Meta}
		if !f.OK() {
			msg := f.Message()
			item.Error = &msg
		}
		resp.Files = append(resp.Files, item)
	}
	return resp
}

// previewResponse is a table slice with column kinds.
type previewResponse struct {
	Columns   []string   `json:"columns"`
	Kinds     []string   `json:"kinds"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

func newPreview(t *table.Table, n int) previewResponse {
	records := t.Head(n).Records()
	kinds := make([]string, 0, t.Width())
	for _, k := range t.Kinds() {
		kinds = append(kinds, k.String())
	}
	return previewResponse{
		Columns:   records[0],
		Kinds:     kinds,
		Rows:      records[1:],
		TotalRows: t.Len(),
	}
}

type fileResponse struct {
	File    core.FileMeta   `json:"file"`
	Preview previewResponse `json:"preview"`
}

// summaryResponse mirrors table.ColumnSummary with NaN as null.
type summaryResponse struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Q1     *float64 `json:"q1,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Q3     *float64 `json:"q3,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Unique int      `json:"unique,omitempty"`
	Top    string   `json:"top,omitempty"`
	Freq   int      `json:"freq,omitempty"`
}

func toSummaryResponse(summary []table.ColumnSummary) []summaryResponse {
	out := make([]summaryResponse, 0, len(summary))
	for _, s := range summary {
		item := summaryResponse{Name: s.Name, Kind: s.Kind.String(), Count: s.Count}
		if s.Kind == table.KindNumeric {
			item.Mean, item.Std = finite(s.Mean), finite(s.Std)
			item.Min, item.Q1, item.Median = finite(s.Min), finite(s.Q1), finite(s.Median)
			item.Q3, item.Max = finite(s.Q3), finite(s.Max)
		} else {
			item.Unique, item.Top, item.Freq = s.Unique, s.Top, s.Freq
		}
		out = append(out, item)
	}
	return out
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

type processRequest struct {
	Pipeline    core.Pipeline `json:"pipeline"`
	PreviewRows int           `json:"preview_rows" validate:"omitempty,min=1,max=1000"`
	Stats       bool          `json:"stats"`
}

type processResponse struct {
	Preview previewResponse   `json:"preview"`
	RowsIn  int               `json:"rows_in"`
	RowsOut int               `json:"rows_out"`
	Notices []core.Notice     `json:"notices"`
	Stats   []summaryResponse `json:"stats,omitempty"`
}

type exportRequest struct {
	Pipeline core.Pipeline `json:"pipeline"`
	Format   string        `json:"format" validate:"required,oneof=csv xlsx excel"`
}

type chartRequest struct {
	Pipeline core.Pipeline `json:"pipeline"`
	Column   string        `json:"column"`
}

// handleAPIUpload accepts the same multipart form as the upload page.
func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	r = s.ensureSession(w, r)
	uploads, cleanup, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	batch, err := s.service.Upload(r.Context(), sessionID(r), uploads)
	cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if batch.Succeeded() == 0 {
		status = http.StatusUnprocessableEntity
	}
	render.Status(r, status)
	render.JSON(w, r, toUploadResponse(batch))
}

func (s *Server) handleAPIListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.sessionFiles(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []core.FileMeta{}
	}
	render.JSON(w, r, map[string]any{"files": files})
}

func (s *Server) handleAPIGetFile(w http.ResponseWriter, r *http.Request) {
	meta, t, err := s.service.File(sessionID(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, fileResponse{File: meta, Preview: newPreview(t, s.cfg.Pipeline.PreviewRows)})
}

func (s *Server) handleAPIDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveFile(sessionID(r), chi.URLParam(r, "fileID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIEndSession(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// handleAPIProcess runs a pipeline and returns the preview, notices and,
// on request, the summary statistics of the result.
func (s *Server) handleAPIProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	out, err := s.service.Process(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), req.Pipeline)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows := req.PreviewRows
	if rows == 0 {
		rows = s.cfg.Pipeline.PreviewRows
	}
	resp := processResponse{
		Preview: newPreview(out.Table, rows),
		RowsIn:  out.RowsIn,
		RowsOut: out.RowsOut,
		Notices: out.Notices,
	}
	if resp.Notices == nil {
		resp.Notices = []core.Notice{}
	}
	if req.Stats {
		resp.Stats = toSummaryResponse(out.Table.Describe())
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	format, err := core.ParseExportFormat(req.Format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	exp, err := s.service.Export(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), req.Pipeline, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDownload(w, exp)
}

func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	kind, err := core.ParseChartKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	svg, err := s.service.Chart(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), req.Pipeline,
		core.ChartRequest{Kind: kind, Column: req.Column})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(svg)
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Sessions int                      `json:"sessions"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
}

// handleHealth reports liveness and load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Uploads:  s.service.Limiter().Status(),
	})
}
