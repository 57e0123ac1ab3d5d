package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"skycrawl/pkg/logger"
)

// JSONSink writes users and posts as two JSON documents in one directory
type JSONSink struct {
	dir       string
	usersFile string
	postsFile string
	logger    logger.Logger
}

// NewJSONSink creates the output directory if needed
func NewJSONSink(dir, usersFile, postsFile string, log logger.Logger) (*JSONSink, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, persistenceError("failed to create output directory", err)
	}

	return &JSONSink{
		dir:       dir,
		usersFile: usersFile,
		postsFile: postsFile,
		logger:    log.WithField("sink", "json"),
	}, nil
}

// UsersPath returns the full path of the users document
func (s *JSONSink) UsersPath() string {
	return filepath.Join(s.dir, s.usersFile)
}

// PostsPath returns the full path of the posts document
func (s *JSONSink) PostsPath() string {
	return filepath.Join(s.dir, s.postsFile)
}

// WriteUsers writes users as a JSON array
func (s *JSONSink) WriteUsers(ctx context.Context, users []string) error {
	if err := ctx.Err(); err != nil {
		return persistenceError("users not written", err)
	}
	if users == nil {
		users = []string{}
	}
	if err := writeJSONAtomic(s.UsersPath(), users); err != nil {
		return persistenceError("failed to write users", err)
	}

	s.logger.InfoWithFields("Users written", map[string]interface{}{
		"path":  s.UsersPath(),
		"count": len(users),
	})
	return nil
}

// WritePosts writes posts as a JSON object keyed by URI
func (s *JSONSink) WritePosts(ctx context.Context, posts map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return persistenceError("posts not written", err)
	}
	if posts == nil {
		posts = map[string]json.RawMessage{}
	}
	if err := writeJSONAtomic(s.PostsPath(), posts); err != nil {
		return persistenceError("failed to write posts", err)
	}

	s.logger.InfoWithFields("Posts written", map[string]interface{}{
		"path":  s.PostsPath(),
		"count": len(posts),
	})
	return nil
}

// Close is a no-op; files are closed after every write
func (s *JSONSink) Close() error {
	return nil
}

// writeJSONAtomic encodes v to a temp file next to path, syncs it and then
// renames it over path.
func writeJSONAtomic(path string, v interface{}) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
