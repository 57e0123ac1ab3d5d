package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"skycrawl/pkg/logger"
)

// SQLiteSink stores results in a SQLite database. Each write replaces the
// contents of its table.
type SQLiteSink struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

// NewSQLiteSink opens or creates the database at path and initializes the schema
func NewSQLiteSink(path string, log logger.Logger) (*SQLiteSink, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, persistenceError("failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, persistenceError("failed to connect to database", err)
	}

	s := &SQLiteSink{
		db:     db,
		path:   path,
		logger: log.WithField("sink", "sqlite"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, persistenceError("failed to initialize schema", err)
	}

	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		handle TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS posts (
		uri TEXT PRIMARY KEY,
		author TEXT,
		indexed_at TEXT,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		users INTEGER NOT NULL,
		posts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WriteUsers replaces the users table
func (s *SQLiteSink) WriteUsers(ctx context.Context, users []string) error {
	err := s.replace(ctx, "users", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO users (handle) VALUES (?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, handle := range users {
			if _, err := stmt.ExecContext(ctx, handle); err != nil {
				return fmt.Errorf("failed to insert user %s: %w", handle, err)
			}
		}
		return nil
	})
	if err != nil {
		return persistenceError("failed to write users", err)
	}

	s.logger.InfoWithFields("Users written", map[string]interface{}{
		"path":  s.path,
		"count": len(users),
	})
	return nil
}

// WritePosts replaces the posts table. Author and indexed time are lifted out
// of the payload when present.
func (s *SQLiteSink) WritePosts(ctx context.Context, posts map[string]json.RawMessage) error {
	uris := make([]string, 0, len(posts))
	for uri := range posts {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	err := s.replace(ctx, "posts", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO posts (uri, author, indexed_at, payload) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, uri := range uris {
			payload := posts[uri]
			meta := extractPostMeta(payload)
			if _, err := stmt.ExecContext(ctx, uri, nullable(meta.author), nullable(meta.indexedAt), string(payload)); err != nil {
				return fmt.Errorf("failed to insert post %s: %w", uri, err)
			}
		}
		return nil
	})
	if err != nil {
		return persistenceError("failed to write posts", err)
	}

	s.logger.InfoWithFields("Posts written", map[string]interface{}{
		"path":  s.path,
		"count": len(posts),
	})
	return nil
}

// RecordRun stores a row describing a finished run
func (s *SQLiteSink) RecordRun(ctx context.Context, run RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, users, posts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			users = EXCLUDED.users,
			posts = EXCLUDED.posts
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Users, run.Posts)
	if err != nil {
		return persistenceError("failed to record run", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	if err := s.db.Close(); err != nil {
		return persistenceError("failed to close database", err)
	}
	return nil
}

// replace clears table and refills it with fill in one transaction
func (s *SQLiteSink) replace(ctx context.Context, table string, fill func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	if err := fill(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

type postMeta struct {
	author    string
	indexedAt string
}

// extractPostMeta reads post.author.handle and post.indexedAt from a feed
// item. Payloads of any other shape yield empty values.
func extractPostMeta(payload json.RawMessage) postMeta {
	var item struct {
		Post struct {
			Author struct {
				Handle string `json:"handle"`
			} `json:"author"`
			IndexedAt string `json:"indexedAt"`
		} `json:"post"`
	}
	if err := json.Unmarshal(payload, &item); err != nil {
		return postMeta{}
	}
	return postMeta{author: item.Post.Author.Handle, indexedAt: item.Post.IndexedAt}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
