// Package selector is the public entry point for picking today's memory:
// it keeps the Today Cache fresh, scores the candidates and samples one.
package selector

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/knifekeroppi/memoria/internal/memoria/cache"
	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/sampler"
	"github.com/knifekeroppi/memoria/internal/memoria/scoring"
)

// Store is the read side of the message store used for point lookups.
type Store interface {
	MessageByID(ctx context.Context, id string) (model.RawMessage, error)
}

// Service selects memories. Construct with New; all methods are safe for
// concurrent use.
type Service struct {
	cache  *cache.TodayCache
	store  Store
	scorer *scoring.Scorer
	now    func() time.Time

	// rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, letting tests pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand injects a seeded random source for reproducible sampling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// New creates a selection service over the given cache, store and scorer.
func New(c *cache.TodayCache, store Store, scorer *scoring.Scorer, opts ...Option) *Service {
	s := &Service{
		cache:  c,
		store:  store,
		scorer: scorer,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns one weighted-random message from this day in history.
// It returns sampler.ErrNoCandidates when no archived message shares
// today's month and day, and sampler.ErrZeroTotalWeight when every
// candidate was filtered down to zero.
func (s *Service) Today(ctx context.Context) (model.Message, error) {
	today := model.DateOf(s.now())

	if err := s.cache.RefreshIfStale(ctx, today); err != nil {
		return model.Message{}, err
	}

	snapshot, _ := s.cache.Read()

	// Sort by ID so a seeded random source reproduces the same pick.
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	candidates := make([]model.Message, len(ids))
	for i, id := range ids {
		candidates[i] = snapshot[id]
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return sampler.Pick(s.rng, candidates, s.scorer.Score)
}

// ByID looks a message up directly in the store, bypassing the cache.
// Returns store.ErrNotFound (wrapped) for unknown ids; malformed stored
// records are surfaced as-is.
func (s *Service) ByID(ctx context.Context, id string) (model.Message, error) {
	raw, err := s.store.MessageByID(ctx, id)
	if err != nil {
		return model.Message{}, err
	}
	return model.ParseMessage(raw)
}
