package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "skycrawl/pkg/errors"
)

// Phase labels
const (
	PhaseFollowers = "followers"
	PhaseFeeds     = "feeds"
)

// Snapshot is a point-in-time copy of the run counters
type Snapshot struct {
	StartTime        time.Time                `json:"start_time"`
	UsersDiscovered  int64                    `json:"users_discovered"`
	ExpansionsOK     int64                    `json:"expansions_ok"`
	ExpansionsFailed int64                    `json:"expansions_failed"`
	FeedsOK          int64                    `json:"feeds_ok"`
	FeedsFailed      int64                    `json:"feeds_failed"`
	PostsMerged      int64                    `json:"posts_merged"`
	FrontierDepth    int64                    `json:"frontier_depth"`
	InFlight         map[string]int64         `json:"in_flight"`
	FailuresByType   map[string]int64         `json:"failures_by_type"`
	PhaseDurations   map[string]time.Duration `json:"phase_durations"`
}

// Tracker records crawl progress both as plain counters, for logs and the
// final summary, and as Prometheus collectors on a private registry.
type Tracker struct {
	mu   sync.Mutex
	data Snapshot

	registry        *prometheus.Registry
	usersDiscovered prometheus.Counter
	expansions      *prometheus.CounterVec
	feeds           *prometheus.CounterVec
	postsMerged     prometheus.Counter
	failures        *prometheus.CounterVec
	frontierDepth   prometheus.Gauge
	inFlight        *prometheus.GaugeVec
	phaseDuration   *prometheus.GaugeVec
}

// NewTracker creates a tracker with its own registry
func NewTracker() *Tracker {
	t := &Tracker{
		data: Snapshot{
			StartTime:      time.Now(),
			FailuresByType: make(map[string]int64),
			InFlight:       make(map[string]int64),
			PhaseDurations: make(map[string]time.Duration),
		},
		registry: prometheus.NewRegistry(),
		usersDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skycrawl_users_discovered_total",
			Help: "Identifiers added to the discovered set.",
		}),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skycrawl_expansions_total",
			Help: "Follower expansions by result.",
		}, []string{"result"}),
		feeds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skycrawl_feeds_total",
			Help: "Feed fetches by result.",
		}, []string{"result"}),
		postsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skycrawl_posts_merged_total",
			Help: "Unique post URIs merged into the post collection.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skycrawl_task_failures_total",
			Help: "Failed tasks by phase and error type.",
		}, []string{"phase", "error_type"}),
		frontierDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skycrawl_frontier_depth",
			Help: "Identifiers waiting to be expanded.",
		}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skycrawl_in_flight",
			Help: "Calls currently in flight by phase.",
		}, []string{"phase"}),
		phaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skycrawl_phase_duration_seconds",
			Help: "Wall clock duration of each completed phase.",
		}, []string{"phase"}),
	}

	t.registry.MustRegister(
		t.usersDiscovered,
		t.expansions,
		t.feeds,
		t.postsMerged,
		t.failures,
		t.frontierDepth,
		t.inFlight,
		t.phaseDuration,
	)
	return t
}

// Registry exposes the underlying registry for export
func (t *Tracker) Registry() *prometheus.Registry {
	return t.registry
}

// AddDiscovered records n newly discovered identifiers
func (t *Tracker) AddDiscovered(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.data.UsersDiscovered += int64(n)
	t.mu.Unlock()
	t.usersDiscovered.Add(float64(n))
}

// ExpansionDone records the outcome of one follower expansion
func (t *Tracker) ExpansionDone(err error) {
	t.mu.Lock()
	if err != nil {
		t.data.ExpansionsFailed++
	} else {
		t.data.ExpansionsOK++
	}
	t.mu.Unlock()

	t.expansions.WithLabelValues(resultLabel(err)).Inc()
	t.recordFailure(PhaseFollowers, err)
}

// FeedDone records the outcome of one feed fetch
func (t *Tracker) FeedDone(err error) {
	t.mu.Lock()
	if err != nil {
		t.data.FeedsFailed++
	} else {
		t.data.FeedsOK++
	}
	t.mu.Unlock()

	t.feeds.WithLabelValues(resultLabel(err)).Inc()
	t.recordFailure(PhaseFeeds, err)
}

// AddPostsMerged records n URIs that were new to the post collection
func (t *Tracker) AddPostsMerged(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.data.PostsMerged += int64(n)
	t.mu.Unlock()
	t.postsMerged.Add(float64(n))
}

// SetFrontierDepth records the current queue depth
func (t *Tracker) SetFrontierDepth(n int) {
	t.mu.Lock()
	t.data.FrontierDepth = int64(n)
	t.mu.Unlock()
	t.frontierDepth.Set(float64(n))
}

// SetInFlight records the number of calls in flight for phase
func (t *Tracker) SetInFlight(phase string, n int) {
	t.mu.Lock()
	t.data.InFlight[phase] = int64(n)
	t.mu.Unlock()
	t.inFlight.WithLabelValues(phase).Set(float64(n))
}

// ObservePhase records how long phase took
func (t *Tracker) ObservePhase(phase string, d time.Duration) {
	t.mu.Lock()
	t.data.PhaseDurations[phase] = d
	t.mu.Unlock()
	t.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

func (t *Tracker) recordFailure(phase string, err error) {
	if err == nil {
		return
	}
	errType := string(apperrors.TypeOf(err))

	t.mu.Lock()
	t.data.FailuresByType[errType]++
	t.mu.Unlock()
	t.failures.WithLabelValues(phase, errType).Inc()
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.data
	snap.FailuresByType = make(map[string]int64, len(t.data.FailuresByType))
	for k, v := range t.data.FailuresByType {
		snap.FailuresByType[k] = v
	}
	snap.InFlight = make(map[string]int64, len(t.data.InFlight))
	for k, v := range t.data.InFlight {
		snap.InFlight[k] = v
	}
	snap.PhaseDurations = make(map[string]time.Duration, len(t.data.PhaseDurations))
	for k, v := range t.data.PhaseDurations {
		snap.PhaseDurations[k] = v
	}
	return snap
}

// WriteTextfile writes every collector in the Prometheus text format to path,
// for pickup by a node exporter textfile collector.
func (t *Tracker) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, t.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// LogProgress formats the counters as a single status line
func (t *Tracker) LogProgress() string {
	s := t.GetSnapshot()
	return fmt.Sprintf("Users: %d discovered, %d queued | Expansions: %d ok, %d failed | Feeds: %d ok, %d failed | Posts: %d",
		s.UsersDiscovered,
		s.FrontierDepth,
		s.ExpansionsOK,
		s.ExpansionsFailed,
		s.FeedsOK,
		s.FeedsFailed,
		s.PostsMerged,
	)
}

func resultLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
