package source

import (
	"context"
	"log"
	"sync"
	"time"

	"deliverystats/internal/stats"
)

// Cached serves a snapshot of another Source for up to ttl. Callers get
// their own copy of the events, so concurrent requests never share slices.
type Cached struct {
	src Source
	ttl time.Duration

	// OnRefresh, if set, is called after every reload attempt.
	OnRefresh func(events int, err error)

	now func() time.Time

	mu       sync.Mutex
	events   []stats.RawEvent
	loadedAt time.Time
	valid    bool
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, ttl: ttl, now: time.Now}
}

// Load returns the cached snapshot, reloading it once it is older than ttl
// or has been invalidated. A failed reload is returned to the caller; a
// stale snapshot is never served in its place.
func (c *Cached) Load(ctx context.Context) ([]stats.RawEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.now().Sub(c.loadedAt) >= c.ttl {
		if err := c.reloadLocked(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]stats.RawEvent, len(c.events))
	copy(out, c.events)
	return out, nil
}

// Refresh reloads the snapshot now. On failure the previous snapshot is
// kept until it expires.
func (c *Cached) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

// Invalidate forces the next Load to read the source again.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// LoadedAt is when the current snapshot was read; zero before the first load.
func (c *Cached) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}

func (c *Cached) reloadLocked(ctx context.Context) error {
	events, err := c.src.Load(ctx)
	if c.OnRefresh != nil {
		c.OnRefresh(len(events), err)
	}
	if err != nil {
		return err
	}
	if events == nil {
		events = []stats.RawEvent{}
	}
	c.events = events
	c.loadedAt = c.now()
	c.valid = true
	return nil
}

// StartRefresher reloads the snapshot at startup and then every ttl until
// ctx is cancelled.
func (c *Cached) StartRefresher(ctx context.Context) {
	go func() {
		if err := c.Refresh(ctx); err != nil {
			log.Printf("event source refresh error (startup): %v", err)
		}

		ticker := time.NewTicker(c.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					log.Printf("event source refresh error: %v", err)
				}
			}
		}
	}()
}
