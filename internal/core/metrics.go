package core

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// metrics holds the instruments recorded by Service. Instruments come from
// the global meter provider, so telemetry must be set up before NewService.
type metrics struct {
	files    metric.Int64Counter
	rows     metric.Int64Histogram
	pipeline metric.Float64Histogram
	exports  metric.Int64Counter
	charts   metric.Int64Counter
	sessions metric.Int64UpDownCounter
}

func newMetrics() *metrics {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	m := &metrics{}
	var err error

	if m.files, err = meter.Int64Counter("datasweeper.files.loaded",
		metric.WithDescription("Uploaded files by outcome and kind")); err != nil {
		m.files, _ = fallback.Int64Counter("datasweeper.files.loaded")
		logInstrumentError("datasweeper.files.loaded", err)
	}
	if m.rows, err = meter.Int64Histogram("datasweeper.files.rows",
		metric.WithDescription("Rows per loaded file")); err != nil {
		m.rows, _ = fallback.Int64Histogram("datasweeper.files.rows")
		logInstrumentError("datasweeper.files.rows", err)
	}
	if m.pipeline, err = meter.Float64Histogram("datasweeper.pipeline.duration",
		metric.WithDescription("Pipeline run time"), metric.WithUnit("s")); err != nil {
		m.pipeline, _ = fallback.Float64Histogram("datasweeper.pipeline.duration")
		logInstrumentError("datasweeper.pipeline.duration", err)
	}
	if m.exports, err = meter.Int64Counter("datasweeper.exports",
		metric.WithDescription("Downloads by format")); err != nil {
		m.exports, _ = fallback.Int64Counter("datasweeper.exports")
		logInstrumentError("datasweeper.exports", err)
	}
	if m.charts, err = meter.Int64Counter("datasweeper.charts",
		metric.WithDescription("Rendered charts by kind")); err != nil {
		m.charts, _ = fallback.Int64Counter("datasweeper.charts")
		logInstrumentError("datasweeper.charts", err)
	}
	if m.sessions, err = meter.Int64UpDownCounter("datasweeper.sessions.active",
		metric.WithDescription("Live browser sessions")); err != nil {
		m.sessions, _ = fallback.Int64UpDownCounter("datasweeper.sessions.active")
		logInstrumentError("datasweeper.sessions.active", err)
	}
	return m
}

func logInstrumentError(name string, err error) {
	slog.Warn("metrics: instrument unavailable", "instrument", name, "error", err)
}

func (m *metrics) fileLoaded(ctx context.Context, kind string, rows int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.files.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("kind", kind),
	))
	if err == nil {
		m.rows.Record(ctx, int64(rows))
	}
}
