package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogFetch records the outcome of a single image fetch at debug level
func LogFetch(l Logger, url string, seq int, status string, bytes int64, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"url":         url,
		"seq":         seq,
		"status":      status,
		"bytes":       bytes,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		l.WithError(err).DebugWithFields("Fetch settled", fields)
		return
	}
	l.DebugWithFields("Fetch settled", fields)
}

// LogBatch summarises a finished class batch
func LogBatch(l Logger, class string, total, saved, failed int, timedOut bool, duration time.Duration) {
	fields := map[string]interface{}{
		"class":       class,
		"total":       total,
		"saved":       saved,
		"failed":      failed,
		"timed_out":   timedOut,
		"duration_ms": duration.Milliseconds(),
	}
	if timedOut {
		l.WarnWithFields("Batch deadline reached before every fetch settled", fields)
		return
	}
	l.InfoWithFields("Batch completed", fields)
}

// LogSearch records a candidate source query
func LogSearch(l Logger, engine, query string, found int, err error) {
	fields := map[string]interface{}{
		"engine": engine,
		"query":  query,
		"found":  found,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Search failed", fields)
		return
	}
	l.InfoWithFields("Search completed", fields)
}

// LogPackProgress logs packing progress
func LogPackProgress(l Logger, processed, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(processed) / float64(total) * 100
	}
	l.DebugWithFields("Packing progress", map[string]interface{}{
		"processed":  processed,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
