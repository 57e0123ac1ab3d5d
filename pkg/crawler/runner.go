package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"skycrawl/pkg/logger"
	"skycrawl/pkg/metrics"
	"skycrawl/pkg/storage"
)

// Runner drives one complete run: crawl followers, persist users, harvest
// feeds, persist posts and signal completion.
type Runner struct {
	followers   *FollowerCrawler
	harvester   *FeedHarvester
	sink        storage.Sink
	resolver    HandleResolver
	metrics     *metrics.Tracker
	metricsPath string
	observer    Observer
	logger      logger.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithResolver logs the seed's DID before the crawl starts
func WithResolver(r HandleResolver) RunnerOption {
	return func(run *Runner) { run.resolver = r }
}

// WithMetricsTextfile writes the tracker to path after the run
func WithMetricsTextfile(t *metrics.Tracker, path string) RunnerOption {
	return func(run *Runner) {
		run.metrics = t
		run.metricsPath = path
	}
}

// WithRunObserver receives the final summary
func WithRunObserver(obs Observer) RunnerOption {
	return func(run *Runner) { run.observer = obs }
}

func WithRunLogger(l logger.Logger) RunnerOption {
	return func(run *Runner) { run.logger = l }
}

func NewRunner(followers *FollowerCrawler, harvester *FeedHarvester, sink storage.Sink, opts ...RunnerOption) *Runner {
	r := &Runner{
		followers: followers,
		harvester: harvester,
		sink:      sink,
		observer:  NopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.GetLogger()
	}
	return r
}

// Run executes both phases for seed. Errors from the sink are returned as
// persistence errors; failures of single tasks never are.
func (r *Runner) Run(ctx context.Context, seed string) (*Summary, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := r.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"seed":   seed,
	})
	log.Info("Run started")

	if r.resolver != nil {
		if did, err := r.resolver.ResolveHandle(ctx, seed); err != nil {
			log.WithError(err).Warn("Could not resolve seed handle")
		} else {
			log.InfoWithFields("Seed resolved", map[string]interface{}{"did": did})
		}
	}

	crawl, err := r.followers.Crawl(ctx, seed)
	if err != nil {
		return nil, err
	}
	if err := r.sink.WriteUsers(ctx, crawl.Users); err != nil {
		return nil, err
	}

	harvest, err := r.harvester.Harvest(ctx, crawl.Users)
	if err != nil {
		return nil, err
	}
	if err := r.sink.WritePosts(ctx, harvest.Posts); err != nil {
		return nil, err
	}

	finished := time.Now()
	if rec, ok := r.sink.(storage.RunRecorder); ok {
		err := rec.RecordRun(ctx, storage.RunInfo{
			ID:         runID,
			StartedAt:  started,
			FinishedAt: finished,
			Users:      len(crawl.Users),
			Posts:      len(harvest.Posts),
		})
		if err != nil {
			return nil, err
		}
	}

	if r.metrics != nil && r.metricsPath != "" {
		if err := r.metrics.WriteTextfile(r.metricsPath); err != nil {
			log.WithError(err).Warn("Could not write metrics textfile")
		}
	}

	summary := Summary{
		RunID:            runID,
		Seed:             seed,
		Users:            len(crawl.Users),
		Posts:            len(harvest.Posts),
		Expanded:         crawl.Expanded,
		ExpansionsFailed: crawl.Failed,
		FeedsFetched:     harvest.Fetched,
		FeedsFailed:      harvest.Failed,
		BoundReached:     crawl.BoundReached,
		Duration:         finished.Sub(started),
	}

	logger.LogRunSummary(log, summary.Users, summary.Posts, summary.Duration)
	r.observer.Done(summary)
	return &summary, nil
}
