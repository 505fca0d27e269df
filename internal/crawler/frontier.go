package crawler

import "sync"

// Frontier is a FIFO queue of URL keys with a visited set.
//
// A key is marked visited when it is enqueued, so each key enters the
// queue at most once per run.
type Frontier struct {
	mu      sync.Mutex
	queue   []string
	visited map[string]struct{}
}

// NewFrontier returns an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{visited: make(map[string]struct{})}
}

// EnqueueIfNew appends key unless it was seen before. It reports whether
// the key was added.
func (f *Frontier) EnqueueIfNew(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	f.queue = append(f.queue, key)
	return true
}

// Dequeue removes and returns the oldest key.
func (f *Frontier) Dequeue() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}
	key := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return key, true
}

// Len returns the number of queued keys.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen returns the number of keys ever enqueued.
func (f *Frontier) Seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// Visited reports whether key was ever enqueued.
func (f *Frontier) Visited(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[key]
	return ok
}
