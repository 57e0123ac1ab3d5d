package crawler

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"skycrawl/internal/workerpool"
	"skycrawl/pkg/logger"
	"skycrawl/pkg/metrics"
)

// HarvestResult is the outcome of the feed phase
type HarvestResult struct {
	Posts    map[string]json.RawMessage
	Fetched  int
	Failed   int
	Duration time.Duration
}

// FeedHarvester fetches the feed of every identifier exactly once and merges
// the posts into one collection.
type FeedHarvester struct {
	client Client
	opts   Options
	logger logger.Logger
}

type feedFetch struct {
	id      string
	posts   []Post
	err     error
	elapsed time.Duration
}

// NewFeedHarvester creates a harvester. Defaults are 50 workers and a 30s
// call timeout.
func NewFeedHarvester(client Client, opts ...Option) *FeedHarvester {
	o := buildOptions(DefaultFeedWorkers, opts)
	return &FeedHarvester{
		client: client,
		opts:   o,
		logger: o.Logger.WithField("phase", metrics.PhaseFeeds),
	}
}

// Harvest fetches the feeds of ids. Duplicate and empty identifiers are
// skipped. It returns once every submitted fetch has completed.
func (h *FeedHarvester) Harvest(ctx context.Context, ids []string) (*HarvestResult, error) {
	start := time.Now()
	ids = uniqueIDs(ids)

	logger.LogPhaseStart(h.logger, metrics.PhaseFeeds, map[string]interface{}{
		"users":   len(ids),
		"workers": h.opts.Workers,
	})

	store := NewPostStore()
	result := &HarvestResult{}

	g, gctx := errgroup.WithContext(ctx)
	pool := workerpool.New(gctx, metrics.PhaseFeeds, h.opts.Workers, h.fetch, h.logger)
	pool.Start()

	// Producer: one job per identifier, then a graceful stop that closes
	// the result channel once every job is done.
	g.Go(func() error {
		defer pool.Stop()
		for _, id := range ids {
			if err := pool.Submit(id); err != nil {
				return err
			}
		}
		return nil
	})

	// Consumer: merge in completion order
	g.Go(func() error {
		remaining := len(ids)
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case f, ok := <-pool.Results():
				if !ok {
					return nil
				}
				remaining--
				h.merge(store, result, f)
				h.opts.Metrics.SetInFlight(metrics.PhaseFeeds, pool.Busy())
				h.opts.Observer.PostsProgress(store.Len(), remaining)
			}
		}
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	result.Posts = store.Snapshot()
	result.Duration = time.Since(start)
	h.opts.Metrics.SetInFlight(metrics.PhaseFeeds, 0)
	h.opts.Metrics.ObservePhase(metrics.PhaseFeeds, result.Duration)

	logger.LogPhaseComplete(h.logger, metrics.PhaseFeeds, result.Duration, map[string]interface{}{
		"posts":   len(result.Posts),
		"fetched": result.Fetched,
		"failed":  result.Failed,
	})
	return result, nil
}

func (h *FeedHarvester) merge(store *PostStore, result *HarvestResult, f feedFetch) {
	h.opts.Metrics.FeedDone(f.err)
	if f.err != nil {
		result.Failed++
		logger.LogTaskFailure(h.logger, metrics.PhaseFeeds, f.id, f.err)
		return
	}

	result.Fetched++
	added := store.Merge(f.posts)
	h.opts.Metrics.AddPostsMerged(added)

	h.logger.DebugWithFields("feed merged", map[string]interface{}{
		"identifier": f.id,
		"returned":   len(f.posts),
		"new":        added,
		"duration":   f.elapsed,
	})
}

func (h *FeedHarvester) fetch(ctx context.Context, id string) feedFetch {
	start := time.Now()
	posts, err := callWithTimeout(ctx, h.opts.CallTimeout, func(ctx context.Context) ([]Post, error) {
		return h.client.FetchFeed(ctx, id)
	})
	return feedFetch{id: id, posts: posts, err: err, elapsed: time.Since(start)}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
