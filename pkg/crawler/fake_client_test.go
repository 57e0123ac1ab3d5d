package crawler

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// fakeClient returns scripted followers and feeds and records how it was used
type fakeClient struct {
	mu        sync.Mutex
	followers map[string][]string
	feeds     map[string][]Post
	failures  map[string]error
	// graph, when set, answers Expand for ids missing from followers
	graph func(id string) []string
	// hang blocks the call until its context ends
	hang map[string]bool
	// stall blocks the call for a long time and ignores the context
	stall map[string]bool
	delay time.Duration

	expandCalls map[string]int
	feedCalls   map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		followers:   make(map[string][]string),
		feeds:       make(map[string][]Post),
		failures:    make(map[string]error),
		hang:        make(map[string]bool),
		stall:       make(map[string]bool),
		expandCalls: make(map[string]int),
		feedCalls:   make(map[string]int),
	}
}

func (f *fakeClient) enter() func() {
	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeClient) wait(ctx context.Context, id string) error {
	f.mu.Lock()
	hang, stall, delay := f.hang[id], f.stall[id], f.delay
	f.mu.Unlock()

	switch {
	case stall:
		time.Sleep(2 * time.Second)
	case hang:
		<-ctx.Done()
		return ctx.Err()
	case delay > 0:
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeClient) Expand(ctx context.Context, id string) ([]string, error) {
	defer f.enter()()

	f.mu.Lock()
	f.expandCalls[id]++
	f.mu.Unlock()

	if err := f.wait(ctx, id); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[id]; ok {
		return nil, err
	}
	if ids, ok := f.followers[id]; ok {
		return append([]string(nil), ids...), nil
	}
	if f.graph != nil {
		return f.graph(id), nil
	}
	return nil, nil
}

func (f *fakeClient) FetchFeed(ctx context.Context, id string) ([]Post, error) {
	defer f.enter()()

	f.mu.Lock()
	f.feedCalls[id]++
	f.mu.Unlock()

	if err := f.wait(ctx, id); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[id]; ok {
		return nil, err
	}
	return append([]Post(nil), f.feeds[id]...), nil
}

func (f *fakeClient) ExpandCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expandCalls[id]
}

func (f *fakeClient) FeedCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedCalls[id]
}

func (f *fakeClient) AllExpandCalls() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.expandCalls))
	for k, v := range f.expandCalls {
		out[k] = v
	}
	return out
}

func post(uri, text string) Post {
	payload, _ := json.Marshal(text)
	return Post{URI: uri, Payload: payload}
}

// recordingObserver captures every progress callback
type recordingObserver struct {
	mu        sync.Mutex
	followers [][2]int
	posts     [][2]int
	summaries []Summary
}

func (r *recordingObserver) FollowersProgress(discovered, queued int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followers = append(r.followers, [2]int{discovered, queued})
}

func (r *recordingObserver) PostsProgress(posts, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, [2]int{posts, remaining})
}

func (r *recordingObserver) Done(summary Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}
