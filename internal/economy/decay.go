package economy

import (
	"math"

	"labelsim/internal/balance"
	"labelsim/internal/game"
)

type DecayResult struct {
	Streams int64
	Revenue float64
}

// Decay computes the ongoing streams and revenue of a released song
// monthsSinceRelease periods after its debut. Results under the configured
// threshold are dropped to zero so long tails don't book cents forever.
func Decay(p balance.DecayParams, revenuePerStream float64, initialStreams int64, monthsSinceRelease, reputation int, tierMultiplier float64) DecayResult {
	if monthsSinceRelease <= 0 || initialStreams <= 0 || monthsSinceRelease > p.MaxMonths {
		return DecayResult{}
	}
	baseDecay := math.Pow(p.MonthlyDecayRate, float64(monthsSinceRelease))
	reputationBonus := 1 + float64(reputation-50)*p.ReputationBonusFactor
	accessBonus := 1 + (tierMultiplier-1)*p.AccessBonusFactor
	monthly := float64(initialStreams) * baseDecay * reputationBonus * accessBonus * p.OngoingFactor
	if monthly <= 0 {
		return DecayResult{}
	}
	revenue := monthly * revenuePerStream
	if revenue < p.MinRevenueThreshold {
		return DecayResult{}
	}
	return DecayResult{Streams: int64(math.Round(monthly)), Revenue: revenue}
}

// DecayRevenue is Decay reduced to revenue.
func DecayRevenue(p balance.DecayParams, revenuePerStream float64, initialStreams int64, monthsSinceRelease, reputation int, tierMultiplier float64) float64 {
	return Decay(p, revenuePerStream, initialStreams, monthsSinceRelease, reputation, tierMultiplier).Revenue
}

// DecayRevenue resolves the playlist tier and applies the decay model.
func (c *Calculator) DecayRevenue(initialStreams int64, monthsSinceRelease, reputation int, playlistTier string) (float64, error) {
	res, err := c.Decay(initialStreams, monthsSinceRelease, reputation, playlistTier)
	return res.Revenue, err
}

func (c *Calculator) Decay(initialStreams int64, monthsSinceRelease, reputation int, playlistTier string) (DecayResult, error) {
	tier, err := c.cfg.AccessTier(game.AccessPlaylist, playlistTier)
	if err != nil {
		return DecayResult{}, err
	}
	return Decay(c.cfg.Decay, c.cfg.Streaming.RevenuePerStream, initialStreams, monthsSinceRelease, reputation, tier.ReachMultiplier), nil
}
