package economy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/balance"
	"labelsim/internal/game"
)

// fixedRNG always returns the same draw so formula tests can pin variance.
type fixedRNG struct {
	f float64
}

func (r fixedRNG) Float64() float64 { return r.f }

func (r fixedRNG) IntN(n int) int {
	return int(r.f * float64(n))
}

func defaultConfig(t *testing.T) *balance.Config {
	t.Helper()
	cfg, err := balance.Default()
	require.NoError(t, err)
	return cfg
}

func TestStreamingOutcomeMidTierScenario(t *testing.T) {
	cfg := defaultConfig(t)

	first := NewCalculator(cfg, NewTurnRNG(42, 7))
	got, err := first.StreamingOutcome(70, "mid", 50, 2000)
	require.NoError(t, err)

	again := NewCalculator(cfg, NewTurnRNG(42, 7))
	replay, err := again.StreamingOutcome(70, "mid", 50, 2000)
	require.NoError(t, err)
	assert.Equal(t, got, replay, "same seed and turn must replay")

	lo, hi, err := first.StreamingBounds(70, "mid", 50, 2000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, lo)
	assert.LessOrEqual(t, got, hi)

	// (70*.35 + .8*100*.25 + 50*.2 + sqrt(2000)*.2) * 2.5 * 1500
	base := (24.5 + 20 + 10 + math.Sqrt(2000)*0.2) * 2.5 * 1500
	assert.InDelta(t, base*0.9, float64(lo), 1)
	assert.InDelta(t, base*1.1, float64(hi), 1)
}

func TestStreamingOutcomeUnknownTier(t *testing.T) {
	c := NewCalculator(defaultConfig(t), fixedRNG{f: 0.5})
	_, err := c.StreamingOutcome(70, "platinum", 50, 0)
	require.Error(t, err)
	assert.True(t, balance.IsConfigError(err))
}

func TestStreamRevenueAndLeadBoost(t *testing.T) {
	c := NewCalculator(defaultConfig(t), fixedRNG{f: 0.5})
	assert.Equal(t, int64(500), c.StreamRevenue(100000))
	assert.Equal(t, 1.0, c.LeadSingleBoost(0))
	assert.InDelta(t, 1.125, c.LeadSingleBoost(125000), 1e-9)
	assert.InDelta(t, 1.25, c.LeadSingleBoost(10_000_000), 1e-9)
}

func TestTourSellThroughNeverExceedsOne(t *testing.T) {
	cfg := defaultConfig(t)
	for _, tc := range []struct {
		name       string
		popularity int
		reputation int
	}{
		{"floor", 0, 0},
		{"middling", 50, 50},
		{"maxed", 100, 100},
		{"out of range", 500, 900},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCalculator(cfg, fixedRNG{f: 0.99})
			res, err := c.TourRevenue("arenas", tc.popularity, tc.reputation, 3)
			require.NoError(t, err)
			assert.LessOrEqual(t, res.SellThrough, 1.0)
			assert.GreaterOrEqual(t, res.SellThrough, 0.0)
			assert.Positive(t, res.Revenue)
		})
	}
}

func TestTourRevenueRecordsClamp(t *testing.T) {
	c := NewCalculator(defaultConfig(t), fixedRNG{f: 0})
	res, err := c.TourRevenue("clubs", 100, 100, 2)
	require.NoError(t, err)

	assert.Equal(t, 50, res.Capacity)
	assert.Equal(t, 1.0, res.SellThrough)
	require.Len(t, c.Adjustments(), 1)
	adj := c.Adjustments()[0]
	assert.Equal(t, "tour_sell_through", adj.Metric)
	assert.InDelta(t, 1.05, adj.Original, 1e-9)

	// 50 seats * (15 + 50*.03) * 1.15 merch * 2 cities
	assert.Equal(t, int64(math.Round(50*16.5*1.15*2)), res.Revenue)
}

func TestTourRevenueWithoutVenueAccess(t *testing.T) {
	c := NewCalculator(defaultConfig(t), fixedRNG{f: 0.5})
	res, err := c.TourRevenue("none", 80, 80, 4)
	require.NoError(t, err)
	assert.Zero(t, res.Revenue)
}

func TestPressPickups(t *testing.T) {
	cfg := defaultConfig(t)

	always := NewCalculator(cfg, fixedRNG{f: 0})
	n, err := always.PressPickups("blogs", 1000, 50, false)
	require.NoError(t, err)
	assert.Equal(t, cfg.Press.MaxPickupsPerRelease, n)

	never := NewCalculator(cfg, fixedRNG{f: 0.999})
	n, err = never.PressPickups("blogs", 1000, 50, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPressChanceIsCapped(t *testing.T) {
	cfg := defaultConfig(t)
	c := NewCalculator(cfg, fixedRNG{f: 0.5})
	chance, err := c.PressChance("national", 1_000_000, 100, true)
	require.NoError(t, err)
	assert.Equal(t, cfg.Press.MaxChance, chance)
	require.NotEmpty(t, c.Adjustments())
	assert.Equal(t, "press_chance", c.Adjustments()[0].Metric)
}

func TestPressReputationGain(t *testing.T) {
	assert.Equal(t, 4, PressReputationGain(3, 80, 2.0))
	assert.Equal(t, 0, PressReputationGain(0, 100, 2.0))
	assert.Equal(t, 10, PressReputationGain(5, 100, 2.0))
}

func TestDecayZeroCases(t *testing.T) {
	cfg := defaultConfig(t)
	p := cfg.Decay
	rate := cfg.Streaming.RevenuePerStream

	for _, months := range []int{-1, 0, 1, 6, 24, 100} {
		for _, rep := range []int{0, 50, 100} {
			assert.Zero(t, DecayRevenue(p, rate, 0, months, rep, 1.5), "zero initial streams")
		}
	}
	assert.Zero(t, DecayRevenue(p, rate, 1_000_000, 0, 50, 0.8))
	assert.Zero(t, DecayRevenue(p, rate, 1_000_000, p.MaxMonths+1, 50, 0.8))
	assert.Positive(t, DecayRevenue(p, rate, 1_000_000, p.MaxMonths, 50, 0.8))
}

func TestDecayNonIncreasing(t *testing.T) {
	cfg := defaultConfig(t)
	prev := math.Inf(1)
	for m := 1; m <= cfg.Decay.MaxMonths+2; m++ {
		v := DecayRevenue(cfg.Decay, cfg.Streaming.RevenuePerStream, 250_000, m, 40, 0.4)
		assert.LessOrEqual(t, v, prev, "month %d", m)
		prev = v
	}
}

func TestDecayBelowThreshold(t *testing.T) {
	cfg := defaultConfig(t)
	// 100 streams never clears a one dollar floor at half a cent per stream.
	assert.Zero(t, DecayRevenue(cfg.Decay, cfg.Streaming.RevenuePerStream, 100, 1, 50, 1))
}

func TestCalculatorDecayResolvesTier(t *testing.T) {
	cfg := defaultConfig(t)
	c := NewCalculator(cfg, fixedRNG{f: 0.5})
	got, err := c.DecayRevenue(500_000, 2, 60, "mid")
	require.NoError(t, err)
	assert.Equal(t, DecayRevenue(cfg.Decay, cfg.Streaming.RevenuePerStream, 500_000, 2, 60, 0.8), got)

	_, err = c.DecayRevenue(500_000, 2, 60, "nope")
	assert.True(t, balance.IsConfigError(err))
}

func TestBudgetQualityAtMinimumViable(t *testing.T) {
	cfg := defaultConfig(t)
	in := BudgetInput{ProjectType: game.ProjectSingle, ProducerTier: "local", TimeTier: "standard", Units: 1}
	minCost, err := MinimumViableCost(cfg, in)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, minCost)

	in.BudgetPerUnit = int64(minCost)
	got, err := BudgetQualityMultiplier(cfg, in)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Value, 1.0)
	assert.LessOrEqual(t, got.Value, 1.05)
	assert.Nil(t, got.Adjustment)
}

func TestBudgetQualityScaleAndTiers(t *testing.T) {
	cfg := defaultConfig(t)
	minCost, err := MinimumViableCost(cfg, BudgetInput{
		ProjectType: game.ProjectEP, ProducerTier: "national", TimeTier: "extended", Units: 5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 3500*3.2*1.4*0.90, minCost, 1e-6)

	_, err = MinimumViableCost(cfg, BudgetInput{ProjectType: game.ProjectEP, ProducerTier: "garage", TimeTier: "standard", Units: 1})
	assert.True(t, balance.IsConfigError(err))
}

func TestBudgetCurveMonotonicAndBounded(t *testing.T) {
	cfg := defaultConfig(t)
	p := cfg.BudgetQuality

	prev := math.Inf(-1)
	for r := 0.0; r <= p.Diminishing.Ratio; r += 0.01 {
		v := budgetCurve(p, r)
		assert.GreaterOrEqual(t, v, prev-1e-12, "ratio %.2f", r)
		prev = v
	}

	for _, budget := range []int64{0, 500, 2000, 4000, 8000, 20000, 1_000_000} {
		got, err := BudgetQualityMultiplier(cfg, BudgetInput{
			BudgetPerUnit: budget, ProjectType: game.ProjectSingle, ProducerTier: "local", TimeTier: "standard", Units: 1,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Value, p.Min)
		assert.LessOrEqual(t, got.Value, p.Max)
	}
}

func TestBudgetCurveSegments(t *testing.T) {
	p := defaultConfig(t).BudgetQuality
	assert.Equal(t, p.Penalty.Multiplier, budgetCurve(p, p.Penalty.Ratio/2))
	assert.InDelta(t, p.MinimumViable.Multiplier, budgetCurve(p, p.MinimumViable.Ratio), 1e-9)
	assert.InDelta(t, p.Optimal.Multiplier, budgetCurve(p, p.Optimal.Ratio), 1e-9)
	assert.InDelta(t, p.Luxury.Multiplier, budgetCurve(p, p.Luxury.Ratio), 1e-9)
	assert.Greater(t, budgetCurve(p, p.Diminishing.Ratio*2), p.Diminishing.Multiplier)
}

func TestSongCountQualityImpact(t *testing.T) {
	p := defaultConfig(t).SongCount
	assert.Equal(t, 1.0, SongCountQualityImpact(p, 1))
	assert.InDelta(t, 0.97, SongCountQualityImpact(p, 2), 1e-9)
	assert.InDelta(t, 0.97*0.97*0.97, SongCountQualityImpact(p, 4), 1e-9)
	assert.Equal(t, p.MinMultiplier, SongCountQualityImpact(p, 40))
}

func TestSongQualityBounded(t *testing.T) {
	cfg := defaultConfig(t)
	projects := []game.Project{
		{Type: game.ProjectSingle, ProducerTier: "local", TimeInvestment: "rushed", SongCount: 1, BudgetPerSong: 0},
		{Type: game.ProjectEP, ProducerTier: "legendary", TimeInvestment: "perfectionist", SongCount: 5, BudgetPerSong: 500_000},
		{Type: game.ProjectSingle, ProducerTier: "regional", TimeInvestment: "standard", SongCount: 1, BudgetPerSong: 7200},
	}
	artists := []game.Artist{{Mood: 0, Popularity: 0}, {Mood: 100, Popularity: 100}}

	for _, p := range projects {
		for _, a := range artists {
			for _, f := range []float64{0, 0.5, 0.999} {
				c := NewCalculator(cfg, fixedRNG{f: f})
				q, err := c.SongQuality(a, p)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, q, game.MinSongQuality)
				assert.LessOrEqual(t, q, game.MaxSongQuality)
			}
		}
	}
}

func TestSongQualityBetterProducerHelps(t *testing.T) {
	cfg := defaultConfig(t)
	artist := game.Artist{Mood: 60, Popularity: 40}
	local := game.Project{Type: game.ProjectSingle, ProducerTier: "local", TimeInvestment: "standard", SongCount: 1, BudgetPerSong: 4000}
	national := local
	national.ProducerTier = "national"
	national.BudgetPerSong = 4000 * 3.2

	lq, err := NewCalculator(cfg, fixedRNG{f: 0.5}).SongQuality(artist, local)
	require.NoError(t, err)
	nq, err := NewCalculator(cfg, fixedRNG{f: 0.5}).SongQuality(artist, national)
	require.NoError(t, err)
	assert.Greater(t, nq, lq)
}

func TestAdjustmentsReturnsCopy(t *testing.T) {
	c := NewCalculator(defaultConfig(t), fixedRNG{f: 0})
	_, err := c.TourRevenue("clubs", 100, 100, 1)
	require.NoError(t, err)
	adj := c.Adjustments()
	adj[0].Metric = "mutated"
	assert.Equal(t, "tour_sell_through", c.Adjustments()[0].Metric)
}

func TestProjectCost(t *testing.T) {
	cfg := defaultConfig(t)
	tests := []struct {
		name string
		p    game.Project
		want int64
	}{
		{"ep uses chosen budget", game.Project{Type: game.ProjectEP, SongCount: 3, BudgetPerSong: 3000}, 9000},
		{"single", game.Project{Type: game.ProjectSingle, SongCount: 1, BudgetPerSong: 4000}, 4000},
		{"tour scales per city", game.Project{Type: game.ProjectTour, Cities: 3}, 17100},
		{"long tour gets a bigger discount", game.Project{Type: game.ProjectTour, Cities: 8}, 40800},
	}
	for _, tc := range tests {
		got, err := ProjectCost(cfg, tc.p)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}
