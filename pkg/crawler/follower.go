package crawler

import (
	"context"
	"time"

	"skycrawl/internal/frontier"
	"skycrawl/internal/workerpool"
	apperrors "skycrawl/pkg/errors"
	"skycrawl/pkg/logger"
	"skycrawl/pkg/metrics"
)

// CrawlResult is the outcome of the follower phase
type CrawlResult struct {
	Users        []string
	Expanded     int
	Failed       int
	BoundReached bool
	Duration     time.Duration
}

// FollowerCrawler expands the follower graph from a seed until the discovered
// set reaches its bound or nothing is left to expand.
type FollowerCrawler struct {
	client Client
	opts   Options
	logger logger.Logger
}

type expansion struct {
	id        string
	followers []string
	err       error
	elapsed   time.Duration
}

// NewFollowerCrawler creates a crawler. Defaults are 100 workers, a bound of
// 10000 and a 30s call timeout.
func NewFollowerCrawler(client Client, opts ...Option) *FollowerCrawler {
	o := buildOptions(DefaultFollowerWorkers, opts)
	return &FollowerCrawler{
		client: client,
		opts:   o,
		logger: o.Logger.WithField("phase", metrics.PhaseFollowers),
	}
}

// Crawl runs the follower phase. The seed is expanded but is only part of the
// result if some expansion returns it. ctx cancellation aborts the crawl with
// ctx.Err().
func (c *FollowerCrawler) Crawl(ctx context.Context, seed string) (*CrawlResult, error) {
	if seed == "" {
		return nil, apperrors.New(apperrors.ErrorTypeConfig, "seed identifier is required")
	}

	start := time.Now()
	logger.LogPhaseStart(c.logger, metrics.PhaseFollowers, map[string]interface{}{
		"seed":      seed,
		"max_users": c.opts.MaxUsers,
		"workers":   c.opts.Workers,
	})

	front := frontier.New(seed, c.opts.MaxUsers)
	pool := workerpool.New(ctx, metrics.PhaseFollowers, c.opts.Workers, c.expand, c.logger)
	pool.Start()
	// Whatever is still in flight when the loop ends is abandoned
	defer pool.Abandon()

	result := &CrawlResult{}
	inFlight := 0

	fill := func() error {
		for inFlight < c.opts.Workers && !front.Full() {
			id, ok := front.Next()
			if !ok {
				break
			}
			if err := pool.Submit(id); err != nil {
				return err
			}
			inFlight++
		}
		c.opts.Metrics.SetFrontierDepth(front.Pending())
		c.opts.Metrics.SetInFlight(metrics.PhaseFollowers, inFlight)
		return nil
	}

	if err := fill(); err != nil {
		return nil, c.aborted(ctx, err)
	}

	for inFlight > 0 && !result.BoundReached {
		var exp expansion
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case exp = <-pool.Results():
		}
		inFlight--

		if exp.err != nil {
			result.Failed++
			logger.LogTaskFailure(c.logger, metrics.PhaseFollowers, exp.id, exp.err)
		} else {
			result.Expanded++
			added, full := front.Admit(exp.followers)
			c.opts.Metrics.AddDiscovered(added)
			result.BoundReached = full

			c.logger.DebugWithFields("expansion merged", map[string]interface{}{
				"identifier": exp.id,
				"returned":   len(exp.followers),
				"added":      added,
				"duration":   exp.elapsed,
			})
		}
		c.opts.Metrics.ExpansionDone(exp.err)

		if !result.BoundReached {
			if err := fill(); err != nil {
				return nil, c.aborted(ctx, err)
			}
		}
		c.opts.Observer.FollowersProgress(front.Discovered(), front.Pending())
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result.Users = front.Snapshot()
	result.Duration = time.Since(start)
	c.opts.Metrics.SetInFlight(metrics.PhaseFollowers, 0)
	c.opts.Metrics.ObservePhase(metrics.PhaseFollowers, result.Duration)

	logger.LogPhaseComplete(c.logger, metrics.PhaseFollowers, result.Duration, map[string]interface{}{
		"users":         len(result.Users),
		"expanded":      result.Expanded,
		"failed":        result.Failed,
		"bound_reached": result.BoundReached,
		"abandoned":     inFlight,
	})
	return result, nil
}

func (c *FollowerCrawler) expand(ctx context.Context, id string) expansion {
	start := time.Now()
	followers, err := callWithTimeout(ctx, c.opts.CallTimeout, func(ctx context.Context) ([]string, error) {
		return c.client.Expand(ctx, id)
	})
	return expansion{id: id, followers: followers, err: err, elapsed: time.Since(start)}
}

// aborted prefers the context error over the pool's own shutdown error
func (c *FollowerCrawler) aborted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
