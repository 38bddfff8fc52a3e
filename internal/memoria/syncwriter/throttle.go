package syncwriter

import (
	"math/rand"
	"sync"
)

// RandomThrottle returns a Throttle that fires with the given probability.
// The returned function is safe for concurrent use.
func RandomThrottle(rate float64, seed int64) Throttle {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64() < rate
	}
}

// AlwaysThrottle fires every time. Useful in tests and for backfills where
// drift correction should not be left to chance.
func AlwaysThrottle() bool { return true }

// NeverThrottle never fires.
func NeverThrottle() bool { return false }
