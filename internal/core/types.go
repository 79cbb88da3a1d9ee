package core

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

// CleanConfig toggles the cleaning steps.
type CleanConfig struct {
	RemoveDuplicates bool `json:"remove_duplicates"`
	FillMissing      bool `json:"fill_missing"`
}

// ProjectConfig chooses columns. Keep, when non-empty, is applied before
// Remove.
type ProjectConfig struct {
	Keep   []string `json:"keep,omitempty" validate:"omitempty,dive,required"`
	Remove []string `json:"remove,omitempty" validate:"omitempty,dive,required"`
}

// SearchConfig filters rows by a case-insensitive substring.
type SearchConfig struct {
	Term string `json:"term,omitempty" validate:"max=200"`
}

// NormalizeConfig toggles min-max scaling of numeric columns.
type NormalizeConfig struct {
	Enabled bool `json:"enabled"`
}

// FilterConfig keeps rows whose Column value is at least Threshold. A nil
// Threshold or empty Column disables the step.
type FilterConfig struct {
	Column    string   `json:"column,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Active reports whether the filter should run.
func (f FilterConfig) Active() bool {
	return f.Column != "" && f.Threshold != nil
}

// Pipeline is the full set of transformation flags applied to a file. It is
// re-run from the parsed original on every request.
type Pipeline struct {
	Clean     CleanConfig     `json:"clean"`
	Project   ProjectConfig   `json:"project"`
	Search    SearchConfig    `json:"search"`
	Normalize NormalizeConfig `json:"normalize"`
	Filter    FilterConfig    `json:"filter"`
}

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notice is a user-facing message produced by a pipeline step.
type Notice struct {
	Step    string `json:"step"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func notice(step string, level Level, format string, args ...any) Notice {
	return Notice{Step: step, Level: level, Message: fmt.Sprintf(format, args...)}
}

// Outcome is the result of running a Pipeline over a file.
type Outcome struct {
	Table   *table.Table
	Notices []Notice

	// Filterable is the table the filter step reads: the result of every
	// step before it. It is Table when no filter is set.
	Filterable *table.Table

	RowsIn  int
	RowsOut int
}

// FileMeta describes an uploaded file.
type FileMeta struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Kind       table.FileKind `json:"kind"`
	Size       int64          `json:"size"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Rows       int            `json:"rows"`
	Columns    int            `json:"columns"`
}

// SizeLabel formats Size in KB below one megabyte and MB above.
func (m FileMeta) SizeLabel() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	if m.Size >= mb {
		return fmt.Sprintf("%.2f MB", float64(m.Size)/mb)
	}
	return fmt.Sprintf("%.2f KB", float64(m.Size)/kb)
}

// UploadFile is one file of a batch upload. Size is the declared size; the
// limit is also enforced while reading.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileResult reports the outcome of one file in a batch.
type FileResult struct {
	Name string
	Meta *FileMeta
	Err  error
}

// OK reports whether the file loaded.
func (r FileResult) OK() bool { return r.Err == nil }

// Message returns the user-facing form of Err.
func (r FileResult) Message() UserMessage { return MapError(r.Err) }

// BatchResult collects the per-file outcomes of an upload.
type BatchResult struct {
	Files []FileResult
}

// AllSucceeded reports whether every file in a non-empty batch loaded.
func (b BatchResult) AllSucceeded() bool {
	if len(b.Files) == 0 {
		return false
	}
	for _, f := range b.Files {
		if !f.OK() {
			return false
		}
	}
	return true
}

// Succeeded returns the number of files that loaded.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, f := range b.Files {
		if f.OK() {
			n++
		}
	}
	return n
}

// ChartKind selects a visualization.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
	ChartPie  ChartKind = "pie"
)

// ParseChartKind validates a chart name.
func ParseChartKind(s string) (ChartKind, error) {
	switch k := ChartKind(s); k {
	case ChartBar, ChartLine, ChartPie:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
}

// ChartRequest selects a chart and, for pie charts, the text column.
type ChartRequest struct {
	Kind   ChartKind
	Column string
}

// Export is a rendered download.
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}
