package economy

import (
	"math"

	"labelsim/internal/game"
)

// streamingBase is the deterministic part of the streaming formula, before
// variance and the first-week multiplier.
func (c *Calculator) streamingBase(quality int, reach float64, reputation int, adSpend int64) float64 {
	p := c.cfg.Streaming
	marketing := 0.0
	if adSpend > 0 {
		marketing = math.Sqrt(float64(adSpend))
	}
	return float64(quality)*p.QualityWeight +
		reach*p.ReachScale*p.PlaylistWeight +
		float64(reputation)*p.ReputationWeight +
		marketing*p.MarketingWeight*p.MarketingScale
}

// StreamingOutcome estimates first-period streams for a release.
func (c *Calculator) StreamingOutcome(quality int, playlistTier string, reputation int, adSpend int64) (int64, error) {
	tier, err := c.cfg.AccessTier(game.AccessPlaylist, playlistTier)
	if err != nil {
		return 0, err
	}
	p := c.cfg.Streaming
	base := c.streamingBase(quality, tier.ReachMultiplier, reputation, adSpend)
	variance := c.between(p.VarianceMin, p.VarianceMax)
	streams := base * variance * p.FirstWeekMultiplier * p.StreamsPerPoint
	return int64(math.Round(streams)), nil
}

// StreamingBounds is the closed range StreamingOutcome can return for the
// given inputs.
func (c *Calculator) StreamingBounds(quality int, playlistTier string, reputation int, adSpend int64) (lo, hi int64, err error) {
	tier, err := c.cfg.AccessTier(game.AccessPlaylist, playlistTier)
	if err != nil {
		return 0, 0, err
	}
	p := c.cfg.Streaming
	scale := c.streamingBase(quality, tier.ReachMultiplier, reputation, adSpend) * p.FirstWeekMultiplier * p.StreamsPerPoint
	return int64(math.Round(scale * p.VarianceMin)), int64(math.Round(scale * p.VarianceMax)), nil
}

// StreamRevenue converts streams into whole dollars at the configured rate.
func (c *Calculator) StreamRevenue(streams int64) int64 {
	return game.RoundMoney(float64(streams) * c.cfg.Streaming.RevenuePerStream)
}

// LeadSingleBoost scales the main release by how well its lead single did,
// linearly up to the configured cap.
func (c *Calculator) LeadSingleBoost(leadStreams int64) float64 {
	p := c.cfg.LeadSingle
	if leadStreams <= 0 {
		return 1
	}
	share := float64(leadStreams) / float64(p.StreamsForMaxBoost)
	if share > 1 {
		share = 1
	}
	return 1 + share*p.MaxBoost
}
