// Package storage persists the results of a crawl.
//
// A Sink receives the discovered users once the follower phase ends and the
// merged posts once the feed phase ends. Every write replaces what a previous
// run left behind; nothing is merged across runs.
//
// Sinks:
//   - JSONSink writes users.json and posts.json using a temp file and rename
//   - SQLiteSink writes users, posts and runs tables to a WAL-mode database
//   - MultiSink fans out to several sinks
//
// Usage:
//
//	sink, err := storage.NewJSONSink("out", "users.json", "posts.json", log)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	if err := sink.WriteUsers(ctx, users); err != nil {
//	    return err
//	}
package storage
