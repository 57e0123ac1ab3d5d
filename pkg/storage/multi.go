package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// MultiSink writes to every wrapped sink in order and stops at the first error
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink wraps sinks. Nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// WriteUsers implements Sink
func (m *MultiSink) WriteUsers(ctx context.Context, users []string) error {
	for _, s := range m.sinks {
		if err := s.WriteUsers(ctx, users); err != nil {
			return err
		}
	}
	return nil
}

// WritePosts implements Sink
func (m *MultiSink) WritePosts(ctx context.Context, posts map[string]json.RawMessage) error {
	for _, s := range m.sinks {
		if err := s.WritePosts(ctx, posts); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards to every wrapped sink that keeps run history
func (m *MultiSink) RecordRun(ctx context.Context, run RunInfo) error {
	for _, s := range m.sinks {
		if r, ok := s.(RunRecorder); ok {
			if err := r.RecordRun(ctx, run); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every wrapped sink, even after a failure
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
