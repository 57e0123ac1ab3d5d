package storage

import (
	"context"
	"encoding/json"
	"time"

	apperrors "skycrawl/pkg/errors"
)

// Sink persists crawl results
type Sink interface {
	// WriteUsers replaces the stored user set
	WriteUsers(ctx context.Context, users []string) error
	// WritePosts replaces the stored post collection
	WritePosts(ctx context.Context, posts map[string]json.RawMessage) error
	Close() error
}

// RunInfo describes one completed run
type RunInfo struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Users      int
	Posts      int
}

// RunRecorder is implemented by sinks that keep a history of runs
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunInfo) error
}

func persistenceError(msg string, err error) error {
	return apperrors.Wrap(apperrors.ErrorTypePersistence, msg, err)
}
