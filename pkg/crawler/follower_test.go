package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "skycrawl/pkg/errors"
	"skycrawl/pkg/logger"
	"skycrawl/pkg/metrics"
)

func newTestCrawler(client Client, opts ...Option) *FollowerCrawler {
	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	return NewFollowerCrawler(client, opts...)
}

func TestCrawlStopsAtBoundWithoutExpandingLastDiscovered(t *testing.T) {
	fc := newFakeClient()
	fc.followers["alice"] = []string{"bob", "carol"}
	fc.followers["bob"] = []string{"dave"}
	fc.followers["carol"] = []string{}

	c := newTestCrawler(fc, WithMaxUsers(3), WithWorkers(2))
	result, err := c.Crawl(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob", "carol", "dave"}, result.Users)
	assert.True(t, result.BoundReached)
	assert.Equal(t, 0, fc.ExpandCalls("dave"), "dave was discovered at the bound and must not be expanded")
	assert.Equal(t, 1, fc.ExpandCalls("alice"))
}

func TestCrawlFailedSeedTerminatesWithEmptySet(t *testing.T) {
	fc := newFakeClient()
	fc.failures["erin"] = apperrors.New(apperrors.ErrorTypeNetwork, "connection reset")

	log := logger.NewTestLogger()
	c := NewFollowerCrawler(fc, WithMaxUsers(10), WithLogger(log))

	done := make(chan struct{})
	var result *CrawlResult
	var err error
	go func() {
		result, err = c.Crawl(context.Background(), "erin")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawl did not terminate after a failed expansion")
	}

	require.NoError(t, err)
	assert.Empty(t, result.Users)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Expanded)
	assert.False(t, result.BoundReached)
	assert.Equal(t, 1, fc.ExpandCalls("erin"), "a failed expansion must not be resubmitted")
	assert.True(t, log.HasMessage("Task failed, skipping"))
}

func TestCrawlExhaustsClosedGraph(t *testing.T) {
	fc := newFakeClient()
	fc.followers["alice"] = []string{"bob", "carol"}
	fc.followers["bob"] = []string{"carol", "dave", "alice"}
	fc.followers["carol"] = []string{"bob"}
	fc.followers["dave"] = []string{}

	c := newTestCrawler(fc, WithMaxUsers(100), WithWorkers(3))
	result, err := c.Crawl(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, result.Users)
	assert.False(t, result.BoundReached)
	assert.Equal(t, 4, result.Expanded)
	for id, n := range fc.AllExpandCalls() {
		assert.Equal(t, 1, n, "%s expanded %d times", id, n)
	}
}

func TestCrawlInfiniteGraphHonoursBound(t *testing.T) {
	fc := newFakeClient()
	fc.graph = func(id string) []string {
		return []string{id + "a", id + "b", id + "c"}
	}

	c := newTestCrawler(fc, WithMaxUsers(250), WithWorkers(8))
	result, err := c.Crawl(context.Background(), "root")
	require.NoError(t, err)

	assert.Len(t, result.Users, 250)
	assert.True(t, result.BoundReached)
}

func TestCrawlNeverExpandsTwiceUnderOverlap(t *testing.T) {
	fc := newFakeClient()
	fc.delay = time.Millisecond
	// Every account is followed by the same small crowd
	fc.graph = func(id string) []string {
		out := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			out = append(out, fmt.Sprintf("user-%d", i))
		}
		return out
	}

	c := newTestCrawler(fc, WithMaxUsers(1000), WithWorkers(16))
	result, err := c.Crawl(context.Background(), "seed")
	require.NoError(t, err)

	assert.Len(t, result.Users, 20)
	for id, n := range fc.AllExpandCalls() {
		assert.Equal(t, 1, n, "%s expanded %d times", id, n)
	}
}

func TestCrawlRespectsConcurrencyLimit(t *testing.T) {
	fc := newFakeClient()
	fc.delay = 5 * time.Millisecond
	fc.graph = func(id string) []string {
		return []string{id + "0", id + "1", id + "2", id + "3"}
	}

	c := newTestCrawler(fc, WithMaxUsers(200), WithWorkers(4))
	_, err := c.Crawl(context.Background(), "root")
	require.NoError(t, err)

	peak := fc.maxInFlight.Load()
	assert.LessOrEqual(t, peak, int32(4))
	assert.Greater(t, peak, int32(1), "free slots should be refilled, not run one at a time")
}

func TestCrawlCallTimeoutFreesSlot(t *testing.T) {
	fc := newFakeClient()
	fc.followers["alice"] = []string{"bob", "carol"}
	fc.followers["carol"] = []string{"dave"}
	fc.stall["bob"] = true

	c := newTestCrawler(fc, WithMaxUsers(100), WithWorkers(1), WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	result, err := c.Crawl(context.Background(), "alice")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second, "a stalled call must not hold the only slot")
	assert.Equal(t, []string{"bob", "carol", "dave"}, result.Users)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, fc.ExpandCalls("dave"))
}

func TestCrawlTimeoutIsClassified(t *testing.T) {
	fc := newFakeClient()
	fc.hang["alice"] = true

	tracker := metrics.NewTracker()
	c := newTestCrawler(fc, WithCallTimeout(10*time.Millisecond), WithMetrics(tracker))
	result, err := c.Crawl(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int64(1), tracker.GetSnapshot().FailuresByType[string(apperrors.ErrorTypeTimeout)])
}

func TestCrawlParentCancellation(t *testing.T) {
	fc := newFakeClient()
	fc.hang["alice"] = true

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestCrawler(fc, WithCallTimeout(0))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := c.Crawl(ctx, "alice")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestCrawlRequiresSeed(t *testing.T) {
	c := newTestCrawler(newFakeClient())
	_, err := c.Crawl(context.Background(), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConfig))
}

func TestCrawlReportsProgress(t *testing.T) {
	fc := newFakeClient()
	fc.followers["alice"] = []string{"bob", "carol"}

	obs := &recordingObserver{}
	tracker := metrics.NewTracker()
	c := newTestCrawler(fc, WithObserver(obs), WithMetrics(tracker))
	_, err := c.Crawl(context.Background(), "alice")
	require.NoError(t, err)

	require.NotEmpty(t, obs.followers)
	assert.Equal(t, [2]int{2, 0}, obs.followers[len(obs.followers)-1])
	assert.Len(t, obs.followers, 3, "one update per completed expansion")

	snap := tracker.GetSnapshot()
	assert.Equal(t, int64(2), snap.UsersDiscovered)
	assert.Equal(t, int64(3), snap.ExpansionsOK)
}
