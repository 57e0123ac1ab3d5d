package frontier

import (
	"sort"
	"sync"
)

// Frontier is the shared crawl state of the follower phase: the bounded set
// of discovered identifiers and the FIFO queue of identifiers awaiting
// expansion.
//
// Invariants:
//   - the discovered set never holds more than bound identifiers
//   - an identifier is queued at most once over the Frontier's lifetime, so
//     whoever pops it is the only one that expands it
//   - the seed is queued but is not a member of the discovered set unless an
//     expansion returns it
type Frontier struct {
	mu         sync.Mutex
	bound      int
	discovered map[string]struct{}
	scheduled  map[string]struct{}
	queue      []string
}

// New creates a Frontier seeded with seed and bounded to bound discovered
// identifiers.
func New(seed string, bound int) *Frontier {
	f := &Frontier{
		bound:      bound,
		discovered: make(map[string]struct{}),
		scheduled:  make(map[string]struct{}),
	}
	if seed != "" {
		f.scheduled[seed] = struct{}{}
		f.queue = append(f.queue, seed)
	}
	return f
}

// Admit merges the result of one expansion. Check, insert and enqueue happen
// under a single lock so concurrent callers can neither double count nor
// double queue an identifier. Identifiers beyond the bound are dropped.
//
// It returns how many identifiers were newly discovered and whether the bound
// has been reached.
func (f *Frontier) Admit(ids []string) (added int, full bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		if len(f.discovered) >= f.bound {
			break
		}
		if id == "" {
			continue
		}
		if _, seen := f.discovered[id]; seen {
			continue
		}
		f.discovered[id] = struct{}{}
		added++

		if _, queued := f.scheduled[id]; !queued {
			f.scheduled[id] = struct{}{}
			f.queue = append(f.queue, id)
		}
	}

	return added, len(f.discovered) >= f.bound
}

// Next pops the oldest queued identifier. It never blocks; ok is false when
// the queue is empty.
func (f *Frontier) Next() (id string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}
	id = f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return id, true
}

// Full reports whether the discovered set has reached the bound
func (f *Frontier) Full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.discovered) >= f.bound
}

// Discovered returns the number of discovered identifiers
func (f *Frontier) Discovered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.discovered)
}

// Pending returns the number of identifiers still awaiting expansion
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Contains reports whether id has been discovered
func (f *Frontier) Contains(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.discovered[id]
	return ok
}

// Snapshot returns the discovered identifiers in sorted order
func (f *Frontier) Snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.discovered))
	for id := range f.discovered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
