// Package telemetry turns exporter events into log lines and metrics.
package telemetry

import (
	"go.uber.org/zap"

	"ibovselic/internal/exporter"
)

// LogObserver writes one zap line per export event.
type LogObserver struct {
	Logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{Logger: logger.Named("exporter")}
}

func (o *LogObserver) Observe(e exporter.Event) {
	l := o.Logger.With(zap.String("series", e.Label))
	switch e.Type {
	case exporter.ExportStarted:
		l.Info("Starting export",
			zap.Int("start_year", e.Span.Start),
			zap.Int("end_year", e.Span.End),
			zap.Int("chunks", e.ChunkCount))
	case exporter.ChunkStarted:
		l.Info("Requesting block",
			zap.Stringer("block", e.Chunk),
			zap.Int("chunk", e.ChunkIndex+1),
			zap.Int("chunks", e.ChunkCount))
	case exporter.ChunkFinished:
		l.Debug("Block received",
			zap.Stringer("block", e.Chunk),
			zap.Int("records", e.Records),
			zap.Duration("elapsed", e.Elapsed))
	case exporter.ExportFinished:
		l.Info("Export done",
			zap.Int("records", e.Records),
			zap.String("path", e.Path),
			zap.Duration("elapsed", e.Elapsed))
	case exporter.ExportFailed:
		l.Error("Export failed",
			zap.Int("start_year", e.Span.Start),
			zap.Int("end_year", e.Span.End),
			zap.Error(e.Err))
	}
}

// Fanout forwards every event to each observer in order.
func Fanout(observers ...exporter.Observer) exporter.Observer {
	return exporter.ObserverFunc(func(e exporter.Event) {
		for _, o := range observers {
			if o != nil {
				o.Observe(e)
			}
		}
	})
}
