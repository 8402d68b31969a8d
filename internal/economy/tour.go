package economy

import (
	"labelsim/internal/game"
)

type TourResult struct {
	Capacity    int     `json:"capacity"`
	SellThrough float64 `json:"sell_through"`
	TicketPrice float64 `json:"ticket_price"`
	PerCity     float64 `json:"per_city"`
	Cities      int     `json:"cities"`
	Revenue     int64   `json:"revenue"`
}

// TourRevenue books a tour across cities at the given venue tier.
// localReputation and artistPopularity are 0-100 scores.
func (c *Calculator) TourRevenue(venueTier string, artistPopularity, localReputation, cities int) (TourResult, error) {
	tier, err := c.cfg.AccessTier(game.AccessVenue, venueTier)
	if err != nil {
		return TourResult{}, err
	}
	out := TourResult{Cities: cities}
	if cities <= 0 || tier.CapacityMax <= 0 {
		return out, nil
	}
	p := c.cfg.Tour
	out.Capacity = c.intBetween(tier.CapacityMin, tier.CapacityMax)

	sell := p.BaseSellThrough +
		float64(localReputation)/100*p.ReputationModifier +
		float64(artistPopularity)/100*p.PopularityWeight
	var adj *game.Adjustment
	out.SellThrough, adj = clamp("tour_sell_through", sell, 0, 1)
	c.record(adj)

	out.TicketPrice = p.TicketPriceBase + float64(out.Capacity)*p.TicketPricePerCapacity
	tickets := float64(out.Capacity) * out.SellThrough * out.TicketPrice
	out.PerCity = tickets * (1 + p.MerchPercentage)
	out.Revenue = game.RoundMoney(out.PerCity * float64(cities))
	return out, nil
}
