package crawler

import (
	"time"

	"skycrawl/pkg/logger"
	"skycrawl/pkg/metrics"
)

const (
	DefaultMaxUsers        = 10000
	DefaultFollowerWorkers = 100
	DefaultFeedWorkers     = 50
	DefaultCallTimeout     = 30 * time.Second
)

// Options configures a FollowerCrawler or FeedHarvester
type Options struct {
	Workers     int
	MaxUsers    int
	CallTimeout time.Duration
	Logger      logger.Logger
	Metrics     *metrics.Tracker
	Observer    Observer
}

// Option mutates Options
type Option func(*Options)

// WithWorkers sets the number of concurrent calls
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithMaxUsers sets the discovered set bound. Only the follower crawl uses it.
func WithMaxUsers(n int) Option {
	return func(o *Options) { o.MaxUsers = n }
}

// WithCallTimeout bounds each external call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Options) { o.CallTimeout = d }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(m *metrics.Tracker) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

func buildOptions(defaultWorkers int, opts []Option) Options {
	o := Options{
		Workers:     defaultWorkers,
		MaxUsers:    DefaultMaxUsers,
		CallTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.CallTimeout < 0 {
		o.CallTimeout = 0
	}
	if o.Logger == nil {
		o.Logger = logger.GetLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewTracker()
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}
