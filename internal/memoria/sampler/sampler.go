// Package sampler picks one message out of a weighted candidate set with
// probability proportional to its weight.
package sampler

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
)

// ErrNoCandidates is returned when the candidate sequence is empty.
var ErrNoCandidates = errors.New("sampler: no candidates")

// ErrZeroTotalWeight is returned when every candidate weighs zero, leaving
// nothing pickable. Surfacing this beats the silent division by zero it
// replaces.
var ErrZeroTotalWeight = errors.New("sampler: total candidate weight is zero")

// WeightFunc computes the non-negative weight of a candidate.
type WeightFunc func(model.Message) float64

// Pick selects one candidate with probability weight/totalWeight. The
// random source is injected so tests can seed it; candidates must be in a
// stable order for a given seed to reproduce a given pick.
func Pick(rng *rand.Rand, candidates []model.Message, weigh WeightFunc) (model.Message, error) {
	if len(candidates) == 0 {
		return model.Message{}, ErrNoCandidates
	}

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, msg := range candidates {
		w := weigh(msg)
		if w < 0 {
			return model.Message{}, fmt.Errorf("sampler: negative weight %v for message %s", w, msg.ID)
		}
		weights[i] = w
		total += w
	}
	if total == 0 {
		return model.Message{}, ErrZeroTotalWeight
	}

	target := rng.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return candidates[i], nil
		}
	}

	// Floating-point residue can leave target at a hair above zero after
	// the last subtraction. Fall back to the last candidate with weight.
	for i := len(candidates) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return candidates[i], nil
		}
	}
	return model.Message{}, ErrZeroTotalWeight
}
