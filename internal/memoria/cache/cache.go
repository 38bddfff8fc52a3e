// Package cache holds the set of archived messages whose historical date
// matches today, refreshed at most once per reference-timezone day.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/knifekeroppi/memoria/common/retry"
	"github.com/knifekeroppi/memoria/internal/memoria/model"
)

// DefaultStartYear is the first year of the archive; historical scans begin
// here.
const DefaultStartYear = 2020

// Store is the read side of the message store the cache scans.
type Store interface {
	MessagesOn(ctx context.Context, start, end time.Time) ([]model.RawMessage, error)
}

// TodayCache caches today's messages across all archived years. Many
// callers may Read concurrently; RefreshIfStale serializes writers and is
// the only place the snapshot changes.
type TodayCache struct {
	store     Store
	startYear int
	retry     retry.Config

	mu       sync.RWMutex
	snapshot map[string]model.Message // keyed by message ID
	asOf     model.Date
}

// Option configures a TodayCache.
type Option func(*TodayCache)

// WithStartYear overrides the first year of the historical scan.
func WithStartYear(year int) Option {
	return func(c *TodayCache) { c.startYear = year }
}

// WithRetry sets the retry policy for per-year store queries. The zero
// config means a single attempt.
func WithRetry(cfg retry.Config) Option {
	return func(c *TodayCache) { c.retry = cfg }
}

// New creates an empty, stale cache over the given store.
func New(store Store, opts ...Option) *TodayCache {
	c := &TodayCache{
		store:     store,
		startYear: DefaultStartYear,
		snapshot:  map[string]model.Message{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the current snapshot and the date it was computed for.
// Callers must treat the snapshot map as read-only; it is shared with
// every other reader and is replaced, never mutated, on refresh.
func (c *TodayCache) Read() (map[string]model.Message, model.Date) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.asOf
}

// RefreshIfStale rebuilds the snapshot when its as-of date is not today.
// The staleness check runs under the write lock, so concurrent callers that
// both decide to refresh end up performing a single scan. On any per-year
// query failure the previous snapshot is kept untouched and the error is
// surfaced; a partial cross-year union is never published. Malformed
// individual records are logged and skipped.
func (c *TodayCache) RefreshIfStale(ctx context.Context, today model.Date) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.asOf == today {
		return nil
	}

	snapshot := make(map[string]model.Message)
	for year := c.startYear; year < today.Year; year++ {
		start, end := model.DayBounds(year, today.Month, today.Day)

		var raws []model.RawMessage
		err := retry.Do(ctx, c.retry, func() error {
			var qerr error
			raws, qerr = c.store.MessagesOn(ctx, start, end)
			return qerr
		})
		if err != nil {
			return fmt.Errorf("cache refresh: scan %s: %w",
				model.Date{Year: year, Month: today.Month, Day: today.Day}, err)
		}

		for _, raw := range raws {
			msg, err := model.ParseMessage(raw)
			if err != nil {
				// One bad historical record must not block the
				// whole day's selection.
				slog.Warn("cache refresh: skipping malformed record", "err", err)
				continue
			}
			snapshot[msg.ID] = msg
		}
	}

	c.snapshot = snapshot
	c.asOf = today
	slog.Info("cache refreshed", "date", today.String(), "messages", len(snapshot))
	return nil
}
