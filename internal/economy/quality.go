package economy

import (
	"math"

	"labelsim/internal/balance"
	"labelsim/internal/game"
)

type BudgetInput struct {
	BudgetPerUnit int64
	ProjectType   game.ProjectType
	ProducerTier  string
	TimeTier      string
	Units         int
}

type BudgetMultiplier struct {
	Value           float64
	EfficiencyRatio float64
	MinViableCost   float64
	Adjustment      *game.Adjustment
}

// MinimumViableCost is the per-unit spend at which a project neither gains
// nor loses quality from its budget.
func MinimumViableCost(cfg *balance.Config, in BudgetInput) (float64, error) {
	pc, err := cfg.ProjectCost(in.ProjectType)
	if err != nil {
		return 0, err
	}
	producer, err := cfg.Producer(in.ProducerTier)
	if err != nil {
		return 0, err
	}
	timeTier, err := cfg.Time(in.TimeTier)
	if err != nil {
		return 0, err
	}
	units := in.Units
	if units < 1 {
		units = 1
	}
	return float64(pc.BaseCostPerUnit) * producer.CostMultiplier * timeTier.CostMultiplier * cfg.ScaleFactor(units), nil
}

// BudgetQualityMultiplier maps spend relative to the minimum viable cost onto
// a quality multiplier.
func BudgetQualityMultiplier(cfg *balance.Config, in BudgetInput) (BudgetMultiplier, error) {
	minCost, err := MinimumViableCost(cfg, in)
	if err != nil {
		return BudgetMultiplier{}, err
	}
	p := cfg.BudgetQuality
	ratio := 0.0
	if minCost > 0 {
		ratio = float64(in.BudgetPerUnit) / minCost
	}
	if p.Dampening > 0 && p.Dampening < 1 {
		ratio = 1 + (ratio-1)*p.Dampening
	}
	v, adj := clamp("budget_quality_multiplier", budgetCurve(p, ratio), p.Min, p.Max)
	return BudgetMultiplier{Value: v, EfficiencyRatio: ratio, MinViableCost: minCost, Adjustment: adj}, nil
}

// budgetCurve is the unclamped six-segment curve: a flat penalty, four linear
// ramps through the configured breakpoints, then a logarithmic tail.
func budgetCurve(p balance.BudgetQualityParams, ratio float64) float64 {
	points := []balance.Breakpoint{p.Penalty, p.MinimumViable, p.Optimal, p.Luxury, p.Diminishing}
	if ratio < points[0].Ratio {
		return points[0].Multiplier
	}
	for i := 1; i < len(points); i++ {
		if ratio < points[i].Ratio {
			return lerp(points[i-1], points[i], ratio)
		}
	}
	last := points[len(points)-1]
	return last.Multiplier + p.LogFactor*math.Log(ratio/last.Ratio)
}

func lerp(a, b balance.Breakpoint, x float64) float64 {
	t := (x - a.Ratio) / (b.Ratio - a.Ratio)
	return a.Multiplier + t*(b.Multiplier-a.Multiplier)
}

// SongCountQualityImpact spreads attention across larger projects: each
// additional song shaves quality, down to a floor.
func SongCountQualityImpact(p balance.SongCountParams, units int) float64 {
	if units <= 1 {
		return 1
	}
	v := math.Pow(p.BasePerUnit, float64(units-1))
	if v < p.MinMultiplier {
		return p.MinMultiplier
	}
	return v
}

// SongQuality rolls the quality of one freshly recorded song.
func (c *Calculator) SongQuality(artist game.Artist, project game.Project) (int, error) {
	producer, err := c.cfg.Producer(project.ProducerTier)
	if err != nil {
		return 0, err
	}
	timeTier, err := c.cfg.Time(project.TimeInvestment)
	if err != nil {
		return 0, err
	}
	budget, err := BudgetQualityMultiplier(c.cfg, BudgetInput{
		BudgetPerUnit: project.BudgetPerSong,
		ProjectType:   project.Type,
		ProducerTier:  project.ProducerTier,
		TimeTier:      project.TimeInvestment,
		Units:         project.SongCount,
	})
	if err != nil {
		return 0, err
	}
	c.record(budget.Adjustment)

	q := c.cfg.Quality
	base := q.Base +
		float64(artist.Popularity)*q.PopularityWeight +
		float64(artist.Mood-50)*q.MoodWeight +
		float64(producer.QualityBonus) +
		float64(timeTier.QualityBonus)
	raw := base*budget.Value*SongCountQualityImpact(c.cfg.SongCount, project.SongCount) +
		c.between(-q.VarianceSpread, q.VarianceSpread)

	v, adj := clamp("song_quality", math.Round(raw), game.MinSongQuality, game.MaxSongQuality)
	c.record(adj)
	return int(v), nil
}
