package frontier

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Snapshot is the durable form of the crawl state.
type Snapshot struct {
	// Visited holds every claimed URL, sorted.
	Visited []string

	// Pending holds queued URLs in FIFO order.
	Pending []string

	// Failed maps visited URLs to their last error reason.
	Failed map[string]string
}

// SnapshotStore persists snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Stats is a point-in-time view of the frontier sizes.
type Stats struct {
	Visited int
	Pending int
	Failed  int
	Hosts   int
}

type entry struct {
	url  string
	host string
}

// Frontier is the crawl work list. It is safe for concurrent use.
type Frontier struct {
	mu           sync.Mutex
	visited      map[string]struct{}
	visitedHosts map[string]int
	pending      []entry
	pendingSet   map[string]struct{}
	failed       map[string]string

	// saveMu serializes snapshot writes. It is always taken before mu,
	// never while holding it.
	saveMu   sync.Mutex
	lastSave time.Time

	validator  *Validator
	store      SnapshotStore
	interval   time.Duration
	stripQuery bool
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithValidator sets the enqueue validator.
func WithValidator(v *Validator) Option {
	return func(f *Frontier) {
		f.validator = v
	}
}

// WithStore sets the snapshot store. Without one, Snapshot is a no-op.
func WithStore(s SnapshotStore) Option {
	return func(f *Frontier) {
		f.store = s
	}
}

// WithSaveInterval sets the minimum time between periodic snapshots.
func WithSaveInterval(d time.Duration) Option {
	return func(f *Frontier) {
		f.interval = d
	}
}

// WithStripQuery drops the whole query string during normalization.
func WithStripQuery(strip bool) Option {
	return func(f *Frontier) {
		f.stripQuery = strip
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Frontier) {
		f.logger = l
	}
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(f *Frontier) {
		f.now = now
	}
}

// New creates an empty frontier.
func New(opts ...Option) *Frontier {
	f := &Frontier{
		visited:      make(map[string]struct{}),
		visitedHosts: make(map[string]int),
		pendingSet:   make(map[string]struct{}),
		failed:       make(map[string]string),
		validator:    NewValidator(nil, nil),
		interval:     3 * time.Minute,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.lastSave = f.now()
	return f
}

// Enqueue normalizes and validates raw and appends it to the pending queue.
// It reports whether the URL was added. Rejected, visited and already
// pending URLs are dropped silently.
func (f *Frontier) Enqueue(raw string) bool {
	u, err := Normalize(raw, f.stripQuery)
	if err != nil {
		return false
	}
	if reason := f.validator.Check(u); reason != ReasonOK {
		f.logger.Debug("rejected url", "url", raw, "reason", reason)
		return false
	}
	norm := u.String()

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visited[norm]; ok {
		return false
	}
	if _, ok := f.pendingSet[norm]; ok {
		return false
	}
	f.pending = append(f.pending, entry{url: norm, host: u.Hostname()})
	f.pendingSet[norm] = struct{}{}
	return true
}

// EnqueueAll enqueues each URL in order and returns how many were added.
func (f *Frontier) EnqueueAll(raws []string) int {
	n := 0
	for _, r := range raws {
		if f.Enqueue(r) {
			n++
		}
	}
	return n
}

// NextPending claims the next URL. It prefers the oldest pending URL whose
// host has not been visited yet, falling back to the queue head. The URL is
// moved to visited before the lock is released.
func (f *Frontier) NextPending() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return "", false
	}
	idx := 0
	for i, e := range f.pending {
		if f.visitedHosts[e.host] == 0 {
			idx = i
			break
		}
	}
	e := f.pending[idx]
	f.pending = slices.Delete(f.pending, idx, idx+1)
	delete(f.pendingSet, e.url)
	f.visited[e.url] = struct{}{}
	f.visitedHosts[e.host]++
	return e.url, true
}

// RecordFailure stores the last error reason for a visited URL.
func (f *Frontier) RecordFailure(url, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[url] = reason
}

// Requeue hands a claimed URL back to the head of the pending queue. It is
// used when a claim ends without the URL being processed, so the next run
// picks it up instead of treating it as done. Unclaimed URLs are ignored.
func (f *Frontier) Requeue(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[url]; !ok {
		return
	}
	delete(f.visited, url)
	delete(f.failed, url)

	host := hostOf(url)
	if n := f.visitedHosts[host]; n > 1 {
		f.visitedHosts[host] = n - 1
	} else {
		delete(f.visitedHosts, host)
	}

	if _, ok := f.pendingSet[url]; ok {
		return
	}
	f.pending = slices.Insert(f.pending, 0, entry{url: url, host: host})
	f.pendingSet[url] = struct{}{}
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Stats returns the current sizes.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Visited: len(f.visited),
		Pending: len(f.pending),
		Failed:  len(f.failed),
		Hosts:   len(f.visitedHosts),
	}
}

// Export copies the current state.
func (f *Frontier) Export() *Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &Snapshot{
		Visited: slices.Sorted(maps.Keys(f.visited)),
		Pending: make([]string, len(f.pending)),
		Failed:  maps.Clone(f.failed),
	}
	for i, e := range f.pending {
		s.Pending[i] = e.url
	}
	return s
}

// Snapshot writes the current state to the store.
func (f *Frontier) Snapshot(ctx context.Context) error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()
	return f.snapshotLocked(ctx)
}

// SnapshotIfDue writes a snapshot when the save interval has elapsed since
// the last one. It returns false without waiting if another snapshot is
// already being written.
func (f *Frontier) SnapshotIfDue(ctx context.Context) (bool, error) {
	if !f.saveMu.TryLock() {
		return false, nil
	}
	defer f.saveMu.Unlock()

	if f.now().Sub(f.lastSave) < f.interval {
		return false, nil
	}
	if err := f.snapshotLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (f *Frontier) snapshotLocked(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	snap := f.Export()
	if err := f.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	f.lastSave = f.now()
	f.logger.Debug("snapshot saved",
		"visited", len(snap.Visited),
		"pending", len(snap.Pending),
		"failed", len(snap.Failed),
	)
	return nil
}

// Restore replaces the in-memory state with the stored snapshot.
// A missing, unreadable or incompatible snapshot leaves the frontier empty;
// the problem is logged and false is returned.
func (f *Frontier) Restore(ctx context.Context) bool {
	if f.store == nil {
		return false
	}
	snap, err := f.store.LoadSnapshot(ctx)
	if err != nil {
		f.logger.Warn("could not restore crawl state, starting fresh", "error", err)
		return false
	}
	if snap == nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.visited = make(map[string]struct{}, len(snap.Visited))
	f.visitedHosts = make(map[string]int)
	for _, u := range snap.Visited {
		f.visited[u] = struct{}{}
		f.visitedHosts[hostOf(u)]++
	}

	f.pending = f.pending[:0]
	f.pendingSet = make(map[string]struct{}, len(snap.Pending))
	for _, u := range snap.Pending {
		if _, done := f.visited[u]; done {
			continue
		}
		if _, dup := f.pendingSet[u]; dup {
			continue
		}
		f.pending = append(f.pending, entry{url: u, host: hostOf(u)})
		f.pendingSet[u] = struct{}{}
	}

	f.failed = make(map[string]string, len(snap.Failed))
	for u, r := range snap.Failed {
		f.failed[u] = r
	}

	f.logger.Info("restored crawl state",
		"visited", len(f.visited),
		"pending", len(f.pending),
		"failed", len(f.failed),
	)
	return true
}
