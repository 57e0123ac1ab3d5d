// Package logger provides the structured logging interface used across skycrawl.
//
// It wraps zerolog behind a small Logger interface with field maps, so pool
// workers and the orchestrating loops can attach a phase, an identifier or a
// run id without depending on zerolog directly.
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Phase started", map[string]interface{}{
//	    "phase":   "followers",
//	    "workers": 100,
//	})
//
// Output is a colored console stream on stderr by default. Format "json"
// emits raw JSON lines instead, and File adds a JSON log file next to the
// terminal stream.
//
// Tests use NewNopLogger or NewTestLogger, which captures messages for
// assertions.
package logger
