// Package economy holds the pure revenue, cost and quality formulas. Nothing
// here touches storage; randomness comes only from the RNG handed to
// NewCalculator so a turn replays identically from the same seed.
package economy

import (
	"math"
	"math/rand/v2"

	"labelsim/internal/balance"
	"labelsim/internal/game"
)

// RNG is the subset of *rand.Rand the formulas draw from.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// NewTurnRNG derives the random source for one turn of one game. The same
// (seed, turn) pair always yields the same sequence.
func NewTurnRNG(seed int64, turn int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(turn)))
}

// Calculator binds the balance tables to a seeded source and collects every
// clamp applied while it is in use.
type Calculator struct {
	cfg         *balance.Config
	rng         RNG
	adjustments []game.Adjustment
}

func NewCalculator(cfg *balance.Config, rng RNG) *Calculator {
	return &Calculator{cfg: cfg, rng: rng}
}

func (c *Calculator) Config() *balance.Config {
	return c.cfg
}

// Adjustments returns the clamps recorded so far, in the order they happened.
func (c *Calculator) Adjustments() []game.Adjustment {
	out := make([]game.Adjustment, len(c.adjustments))
	copy(out, c.adjustments)
	return out
}

func (c *Calculator) record(adj *game.Adjustment) {
	if adj != nil {
		c.adjustments = append(c.adjustments, *adj)
	}
}

// between draws uniformly from [lo, hi].
func (c *Calculator) between(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.Float64()*(hi-lo)
}

// intBetween draws uniformly from the closed range [lo, hi].
func (c *Calculator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.IntN(hi-lo+1)
}

// Int64Between draws uniformly from the closed range [lo, hi].
func (c *Calculator) Int64Between(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(c.rng.IntN(int(hi-lo+1)))
}

// clamp bounds v to [lo, hi] and describes the clamp when one happened.
func clamp(metric string, v, lo, hi float64) (float64, *game.Adjustment) {
	switch {
	case math.IsNaN(v):
		return lo, &game.Adjustment{Metric: metric, Original: 0, Clamped: lo}
	case v < lo:
		return lo, &game.Adjustment{Metric: metric, Original: v, Clamped: lo}
	case v > hi:
		return hi, &game.Adjustment{Metric: metric, Original: v, Clamped: hi}
	default:
		return v, nil
	}
}
