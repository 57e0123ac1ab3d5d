package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "skycrawl/pkg/errors"
)

// LogPhaseStart logs when a crawl phase starts
func LogPhaseStart(l Logger, phase string, fields map[string]interface{}) {
	l.WithField("phase", phase).InfoWithFields("Phase started", fields)
}

// LogPhaseComplete logs a finished phase with its elapsed time
func LogPhaseComplete(l Logger, phase string, elapsed time.Duration, fields map[string]interface{}) {
	l.WithFields(map[string]interface{}{
		"phase":    phase,
		"duration": elapsed,
	}).InfoWithFields("Phase completed", fields)
}

// LogTaskFailure logs a single failed expansion or feed fetch. These are
// expected during a crawl and are never fatal, so they go out at warn.
func LogTaskFailure(l Logger, phase, id string, err error) {
	l.WithError(err).WarnWithFields("Task failed, skipping", map[string]interface{}{
		"phase":      phase,
		"identifier": id,
		"error_type": string(apperrors.TypeOf(err)),
	})
}

// LogRunSummary logs the final completion signal of a run
func LogRunSummary(l Logger, users, posts int, elapsed time.Duration) {
	l.InfoWithFields("Crawl complete", map[string]interface{}{
		"users":    users,
		"posts":    posts,
		"duration": elapsed,
	})
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
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
