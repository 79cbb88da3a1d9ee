package core

// pipeline.go applies a Pipeline to a parsed table.
//
// Steps always run in the same order: clean, keep, remove, search,
// normalize, filter. Each step reads the previous step's output and the
// input table is never modified, so running the same Pipeline twice over
// the same file gives the same result.

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

const instrumentationName = "github.com/JonMunkholm/datasweeper/internal/core"

var tracer = otel.Tracer(instrumentationName)

// Step names used in notices and span names.
const (
	StepDedup     = "dedup"
	StepFill      = "fill"
	StepKeep      = "keep"
	StepRemove    = "remove"
	StepSearch    = "search"
	StepNormalize = "normalize"
	StepFilter    = "filter"
)

type stepFunc func(ctx context.Context, t *table.Table) (*table.Table, []Notice, error)

type step struct {
	name    string
	enabled bool
	run     stepFunc
}

// Run applies p to t.
func Run(ctx context.Context, t *table.Table, p Pipeline) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.Int("rows.in", t.Len()),
		attribute.Int("columns.in", t.Width()),
	))
	defer span.End()

	out := &Outcome{Table: t, RowsIn: t.Len()}
	for _, s := range p.steps() {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.name == StepFilter {
			out.Filterable = out.Table
		}

		next, notices, err := runStep(ctx, s, out.Table)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, s.name)
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		out.Table = next
		out.Notices = append(out.Notices, notices...)
	}

	if out.Filterable == nil {
		out.Filterable = out.Table
	}
	out.RowsOut = out.Table.Len()
	span.SetAttributes(attribute.Int("rows.out", out.RowsOut))
	return out, nil
}

func runStep(ctx context.Context, s step, t *table.Table) (*table.Table, []Notice, error) {
	ctx, span := tracer.Start(ctx, "pipeline."+s.name)
	defer span.End()

	next, notices, err := s.run(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int("rows", next.Len()))
	return next, notices, nil
}

func (p Pipeline) steps() []step {
	return []step{
		{StepDedup, p.Clean.RemoveDuplicates, dedupStep},
		{StepFill, p.Clean.FillMissing, fillStep},
		{StepKeep, len(p.Project.Keep) > 0, keepStep(p.Project.Keep)},
		{StepRemove, len(p.Project.Remove) > 0, removeStep(p.Project.Remove)},
		{StepSearch, p.Search.Term != "", searchStep(p.Search.Term)},
		{StepNormalize, p.Normalize.Enabled, normalizeStep},
		{StepFilter, p.Filter.Active(), filterStep(p.Filter)},
	}
}

func dedupStep(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
	out, removed := t.RemoveDuplicates()
	if removed == 0 {
		return out, []Notice{notice(StepDedup, LevelInfo, "No duplicate rows found")}, nil
	}
	return out, []Notice{notice(StepDedup, LevelSuccess, "Duplicates removed: %d %s", removed, plural(removed, "row", "rows"))}, nil
}

func fillStep(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
	out, filled, err := t.FillMissingMean()
	if err != nil {
		return nil, nil, err
	}
	if len(filled) == 0 {
		return out, []Notice{notice(StepFill, LevelInfo, "No missing numeric values to fill")}, nil
	}

	cols := make([]string, 0, len(filled))
	total := 0
	for name, n := range filled {
		cols = append(cols, name)
		total += n
	}
	sort.Strings(cols)
	return out, []Notice{notice(StepFill, LevelSuccess,
		"Missing values have been filled: %d %s in %s", total, plural(total, "cell", "cells"), strings.Join(cols, ", "))}, nil
}

func keepStep(cols []string) stepFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
		out, err := t.Select(cols)
		if err != nil {
			return nil, nil, err
		}
		return out, nil, nil
	}
}

func removeStep(cols []string) stepFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
		out, err := t.Drop(cols)
		if err != nil {
			return nil, nil, err
		}
		return out, []Notice{notice(StepRemove, LevelSuccess, "Removed %s", strings.Join(cols, ", "))}, nil
	}
}

func searchStep(term string) stepFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
		out := t.Search(term)
		return out, []Notice{notice(StepSearch, LevelInfo, "Found %d matching %s", out.Len(), plural(out.Len(), "row", "rows"))}, nil
	}
}

func normalizeStep(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
	out, report, err := t.Normalize()
	if err != nil {
		return nil, nil, err
	}
	if len(report.Scaled) == 0 {
		return out, []Notice{notice(StepNormalize, LevelWarning, "No variation in numeric columns; nothing was normalized")}, nil
	}

	notices := []Notice{notice(StepNormalize, LevelSuccess, "Normalized %s", strings.Join(report.Scaled, ", "))}
	if len(report.Constant) > 0 {
		notices = append(notices, notice(StepNormalize, LevelInfo, "Left unchanged (constant): %s", strings.Join(report.Constant, ", ")))
	}
	return out, notices, nil
}

func filterStep(f FilterConfig) stepFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, []Notice, error) {
		threshold := *f.Threshold
		out, err := t.FilterAtLeast(f.Column, threshold)
		if err != nil {
			return nil, nil, err
		}
		return out, []Notice{notice(StepFilter, LevelInfo, "%d of %d rows have %s ≥ %s",
			out.Len(), t.Len(), f.Column, strconv.FormatFloat(threshold, 'f', -1, 64))}, nil
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
