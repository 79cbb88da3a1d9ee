package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/datasweeper/internal/charts"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

// Config holds the service limits. Zero values fall back to defaults.
type Config struct {
	MaxFileSize   int64
	MaxFiles      int
	MaxConcurrent int
	MaxWait       time.Duration
	SessionTTL    time.Duration
	PreviewRows   int
	ChartMaxRows  int
	PieMaxSlices  int
}

const (
	DefaultMaxFileSize  = 100 << 20
	DefaultMaxFiles     = 20
	DefaultSessionTTL   = time.Hour
	DefaultPreviewRows  = 5
	DefaultChartMaxRows = 50
	DefaultPieMaxSlices = 10
)

func (c Config) withDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = DefaultMaxFiles
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = DefaultPreviewRows
	}
	if c.ChartMaxRows <= 0 {
		c.ChartMaxRows = DefaultChartMaxRows
	}
	if c.PieMaxSlices <= 0 {
		c.PieMaxSlices = DefaultPieMaxSlices
	}
	return c
}

// Service owns the browser sessions and every file uploaded into them.
// Parsed tables are never modified after upload, so a session's files can
// be read concurrently; only the session map and file lists are locked.
type Service struct {
	cfg     Config
	limiter *UploadLimiter
	metrics *metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id       string
	lastSeen atomic.Int64
	timer    *time.Timer

	mu    sync.RWMutex
	files []*storedFile
}

type storedFile struct {
	meta  FileMeta
	table *table.Table
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:      cfg,
		limiter:  NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		metrics:  newMetrics(),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Limiter returns the upload limiter, for health output and shutdown.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// NewSession starts an empty session and returns its ID.
func (s *Service) NewSession(ctx context.Context) string {
	sess := &session{id: uuid.NewString()}
	sess.lastSeen.Store(s.now().UnixNano())

	s.mu.Lock()
	s.sessions[sess.id] = sess
	sess.timer = time.AfterFunc(s.cfg.SessionTTL, func() { s.expire(sess.id) })
	s.mu.Unlock()

	s.metrics.sessions.Add(ctx, 1)
	return sess.id
}

// HasSession reports whether id names a live session and marks it used.
func (s *Service) HasSession(id string) bool {
	_, err := s.session(id)
	return err == nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastSeen.Store(s.now().UnixNano())
	return sess, nil
}

// expire drops a session that has been idle for the TTL, or re-arms the
// timer for the remaining idle time.
func (s *Service) expire(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	idle := s.now().Sub(time.Unix(0, sess.lastSeen.Load()))
	if idle < s.cfg.SessionTTL {
		sess.timer.Reset(s.cfg.SessionTTL - idle)
		s.mu.Unlock()
		return
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	s.metrics.sessions.Add(context.Background(), -1)
	slog.Info("session expired", "session_id", id, "idle", idle.Round(time.Second).String())
}

// EndSession discards a session and its files.
func (s *Service) EndSession(ctx context.Context, id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.timer.Stop()
	s.metrics.sessions.Add(ctx, -1)
}

// Close stops every session timer and drops all sessions.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.timer.Stop()
		delete(s.sessions, id)
	}
}

// Upload loads a batch of files into a session one at a time. A file that
// fails is reported on its FileResult and does not stop the others. The
// returned error is only for problems with the batch itself.
func (s *Service) Upload(ctx context.Context, sessionID string, files []UploadFile) (BatchResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return BatchResult{}, err
	}
	if len(files) == 0 {
		return BatchResult{}, ErrNoFiles
	}
	if len(files) > s.cfg.MaxFiles {
		return BatchResult{}, fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, len(files), s.cfg.MaxFiles)
	}

	ctx, span := tracer.Start(ctx, "service.upload", trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	ip, _ := ClientFromContext(ctx)
	batch := BatchResult{Files: make([]FileResult, 0, len(files))}
	for _, f := range files {
		log := logging.WithFields(ctx, "file", f.Name, "client_ip", ip)

		meta, tbl, err := s.loadFile(ctx, f)
		kind := ""
		if meta != nil {
			kind = string(meta.Kind)
		}
		rows := 0
		if tbl != nil {
			rows = tbl.Len()
		}
		s.metrics.fileLoaded(ctx, kind, rows, err)

		if err != nil {
			log.Warn("file rejected", "error", err, "code", MapError(err).Code)
			batch.Files = append(batch.Files, FileResult{Name: f.Name, Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		sess.mu.Lock()
		sess.files = append(sess.files, &storedFile{meta: *meta, table: tbl})
		sess.mu.Unlock()

		log.Info("file loaded", "file_id", meta.ID, "rows", meta.Rows, "columns", meta.Columns, "bytes", meta.Size)
		m := *meta
		batch.Files = append(batch.Files, FileResult{Name: f.Name, Meta: &m})
	}

	span.SetAttributes(attribute.Int("files.ok", batch.Succeeded()))
	return batch, nil
}

func (s *Service) loadFile(ctx context.Context, f UploadFile) (*FileMeta, *table.Table, error) {
	kind, err := table.DetectKind(f.Name)
	if err != nil {
		return nil, nil, err
	}
	meta := &FileMeta{ID: uuid.NewString(), Name: f.Name, Kind: kind}

	if f.Size > s.cfg.MaxFileSize {
		return meta, nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, f.Size, s.cfg.MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return meta, nil, err
	}
	defer s.limiter.Release()

	_, span := tracer.Start(ctx, "service.load_file", trace.WithAttributes(
		attribute.String("file.kind", string(kind)),
	))
	defer span.End()

	rc, err := f.Open()
	if err != nil {
		return meta, nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.cfg.MaxFileSize+1))
	if err != nil {
		return meta, nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return meta, nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.cfg.MaxFileSize)
	}

	tbl, err := table.Load(bytes.NewReader(data), kind)
	if err != nil {
		span.RecordError(err)
		return meta, nil, err
	}

	meta.Size = int64(len(data))
	meta.UploadedAt = s.now()
	meta.Rows = tbl.Len()
	meta.Columns = tbl.Width()
	span.SetAttributes(attribute.Int("rows", meta.Rows), attribute.Int("columns", meta.Columns))
	return meta, tbl, nil
}

// Files lists a session's files in upload order.
func (s *Service) Files(sessionID string) ([]FileMeta, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	out := make([]FileMeta, len(sess.files))
	for i, f := range sess.files {
		out[i] = f.meta
	}
	return out, nil
}

// File returns a file's metadata and its parsed original table.
func (s *Service) File(sessionID, fileID string) (FileMeta, *table.Table, error) {
	f, err := s.file(sessionID, fileID)
	if err != nil {
		return FileMeta{}, nil, err
	}
	return f.meta, f.table, nil
}

func (s *Service) file(sessionID, fileID string) (*storedFile, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	for _, f := range sess.files {
		if f.meta.ID == fileID {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
}

// RemoveFile drops a file from a session.
func (s *Service) RemoveFile(sessionID, fileID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i, f := range sess.files {
		if f.meta.ID == fileID {
			sess.files = append(sess.files[:i], sess.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
}

// Process runs p over a file's parsed original.
func (s *Service) Process(ctx context.Context, sessionID, fileID string, p Pipeline) (*Outcome, error) {
	f, err := s.file(sessionID, fileID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	out, err := Run(ctx, f.table, p)
	s.metrics.pipeline.Record(ctx, s.now().Sub(start).Seconds(),
		metric.WithAttributes(attribute.Bool("ok", err == nil)))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Export runs p and encodes the result in format.
func (s *Service) Export(ctx context.Context, sessionID, fileID string, p Pipeline, format table.FileKind) (*Export, error) {
	f, err := s.file(sessionID, fileID)
	if err != nil {
		return nil, err
	}
	out, err := s.Process(ctx, sessionID, fileID, p)
	if err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "service.export", trace.WithAttributes(
		attribute.String("format", string(format)),
		attribute.Int("rows", out.Table.Len()),
	))
	defer span.End()

	var buf bytes.Buffer
	if err := out.Table.Write(&buf, format); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("format", string(format))))

	return &Export{
		FileName:    OutputFileName(f.meta.Name, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Chart runs p and renders the requested chart as SVG. Bar and line charts
// use the first two numeric columns; pie charts count the values of
// req.Column, or of the first text column when none is given.
func (s *Service) Chart(ctx context.Context, sessionID, fileID string, p Pipeline, req ChartRequest) ([]byte, error) {
	out, err := s.Process(ctx, sessionID, fileID, p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch req.Kind {
	case ChartBar, ChartLine:
		series, err := s.numericSeries(out.Table)
		if err != nil {
			return nil, err
		}
		opts := charts.Options{Title: seriesTitle(series)}
		if req.Kind == ChartBar {
			err = charts.Bar(&buf, opts, series)
		} else {
			err = charts.Line(&buf, opts, series)
		}
		if err != nil {
			return nil, err
		}
	case ChartPie:
		col, slices, err := s.pieSlices(out.Table, req.Column)
		if err != nil {
			return nil, err
		}
		if err := charts.Pie(&buf, charts.Options{Title: "Distribution of " + col}, slices, s.cfg.PieMaxSlices); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, string(req.Kind))
	}

	s.metrics.charts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(req.Kind))))
	return buf.Bytes(), nil
}

func (s *Service) numericSeries(t *table.Table) ([]charts.Series, error) {
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, table.ErrNoNumericColumns
	}
	if len(numeric) > 2 {
		numeric = numeric[:2]
	}

	head := t.Head(s.cfg.ChartMaxRows)
	series := make([]charts.Series, 0, len(numeric))
	for _, name := range numeric {
		values, err := head.NumericSeries(name)
		if err != nil {
			return nil, err
		}
		series = append(series, charts.Series{Name: name, Values: values})
	}
	return series, nil
}

func (s *Service) pieSlices(t *table.Table, col string) (string, []charts.Slice, error) {
	text := t.CategoricalColumns()
	if len(text) == 0 {
		return "", nil, table.ErrNoCategoricalColumns
	}
	if col == "" {
		col = text[0]
	}
	counts, err := t.ValueCounts(col)
	if err != nil {
		return "", nil, err
	}
	slices := make([]charts.Slice, len(counts))
	for i, c := range counts {
		slices[i] = charts.Slice{Label: c.Value, Count: c.Count, Percent: c.Percent}
	}
	return col, slices, nil
}

func seriesTitle(series []charts.Series) string {
	if len(series) == 1 {
		return series[0].Name
	}
	return series[0].Name + " and " + series[1].Name
}
