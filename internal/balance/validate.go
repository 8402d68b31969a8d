package balance

import (
	"errors"
	"fmt"
)

// Validate checks every table the engine reads. All problems are reported
// together so a broken tuning file can be fixed in one pass.
func (c *Config) Validate() error {
	var errs []error
	add := func(e *ConfigError) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	if c.Version == "" {
		add(configErr("version", "required"))
	}

	add(positiveInt("campaign.length_turns", c.Campaign.LengthTurns))
	add(nonNegativeInt("campaign.starting_reputation", c.Campaign.StartingReputation))
	add(nonNegativeInt("campaign.focus_slots", c.Campaign.FocusSlots))

	add(nonNegativeInt("projects.planning_turns", c.Projects.PlanningTurns))
	add(nonNegativeInt("projects.marketing_turns", c.Projects.MarketingTurns))
	add(positiveInt("projects.songs_per_turn", c.Projects.SongsPerTurn))
	add(positiveInt("projects.tour_turns", c.Projects.TourTurns))

	s := c.Streaming
	for path, v := range map[string]float64{
		"streaming.quality_weight":    s.QualityWeight,
		"streaming.playlist_weight":   s.PlaylistWeight,
		"streaming.reputation_weight": s.ReputationWeight,
		"streaming.marketing_weight":  s.MarketingWeight,
		"streaming.reach_scale":       s.ReachScale,
		"streaming.marketing_scale":   s.MarketingScale,
	} {
		add(nonNegative(path, v))
	}
	add(positive("streaming.variance_min", s.VarianceMin))
	if s.VarianceMax < s.VarianceMin {
		add(configErr("streaming.variance_max", "must be >= variance_min (%g < %g)", s.VarianceMax, s.VarianceMin))
	}
	add(positive("streaming.first_week_multiplier", s.FirstWeekMultiplier))
	add(positive("streaming.streams_per_point", s.StreamsPerPoint))
	add(positive("streaming.revenue_per_stream", s.RevenuePerStream))

	add(nonNegative("lead_single.max_boost", c.LeadSingle.MaxBoost))
	if c.LeadSingle.StreamsForMaxBoost <= 0 {
		add(configErr("lead_single.streams_for_max_boost", "must be > 0"))
	}

	t := c.Tour
	add(unitInterval("tour.base_sell_through", t.BaseSellThrough))
	add(nonNegative("tour.reputation_modifier", t.ReputationModifier))
	add(nonNegative("tour.popularity_weight", t.PopularityWeight))
	add(nonNegative("tour.ticket_price_base", t.TicketPriceBase))
	add(nonNegative("tour.ticket_price_per_capacity", t.TicketPricePerCapacity))
	add(unitInterval("tour.merch_percentage", t.MerchPercentage))

	p := c.Press
	add(unitInterval("press.base_chance", p.BaseChance))
	add(nonNegative("press.spend_modifier_per_1000", p.SpendModifierPer1000))
	add(nonNegative("press.reputation_modifier", p.ReputationModifier))
	add(nonNegative("press.story_bonus", p.StoryBonus))
	add(unitInterval("press.max_chance", p.MaxChance))
	add(nonNegativeInt("press.max_pickups_per_release", p.MaxPickupsPerRelease))
	add(nonNegative("press.reputation_gain_multiplier", p.ReputationGainMultiplier))

	d := c.Decay
	if d.MonthlyDecayRate <= 0 || d.MonthlyDecayRate > 1 {
		add(configErr("decay.monthly_decay_rate", "must be in (0,1], got %g", d.MonthlyDecayRate))
	}
	add(positiveInt("decay.max_months", d.MaxMonths))
	add(nonNegative("decay.reputation_bonus_factor", d.ReputationBonusFactor))
	add(nonNegative("decay.access_bonus_factor", d.AccessBonusFactor))
	add(positive("decay.ongoing_factor", d.OngoingFactor))
	add(nonNegative("decay.min_revenue_threshold", d.MinRevenueThreshold))

	errs = append(errs, validateLadder("access_tiers.playlist", c.AccessTiers.Playlist, func(path string, t AccessTier) *ConfigError {
		return positive(path+".reach_multiplier", t.ReachMultiplier)
	})...)
	errs = append(errs, validateLadder("access_tiers.press", c.AccessTiers.Press, func(path string, t AccessTier) *ConfigError {
		return unitInterval(path+".pickup_chance", t.PickupChance)
	})...)
	errs = append(errs, validateLadder("access_tiers.venue", c.AccessTiers.Venue, func(path string, t AccessTier) *ConfigError {
		if t.CapacityMin < 0 || t.CapacityMax < t.CapacityMin {
			return configErr(path, "capacity range [%d,%d] is invalid", t.CapacityMin, t.CapacityMax)
		}
		return nil
	})...)

	if len(c.ProducerTiers) == 0 {
		add(configErr("producer_tiers", "at least one tier required"))
	}
	for name, pt := range c.ProducerTiers {
		add(positive("producer_tiers."+name+".cost_multiplier", pt.CostMultiplier))
	}
	if len(c.TimeInvestment) == 0 {
		add(configErr("time_investment", "at least one tier required"))
	}
	for name, ti := range c.TimeInvestment {
		add(positive("time_investment."+name+".cost_multiplier", ti.CostMultiplier))
		add(positiveInt("time_investment."+name+".production_turns", ti.ProductionTurns))
	}
	for _, kind := range []string{"single", "ep", "mini_tour"} {
		pc, ok := c.ProjectCosts[kind]
		if !ok {
			add(configErr("project_costs."+kind, "missing"))
			continue
		}
		if pc.BaseCostPerUnit <= 0 {
			add(configErr("project_costs."+kind+".base_cost_per_unit", "must be > 0"))
		}
	}

	if len(c.EconomiesOfScale) == 0 || c.EconomiesOfScale[0].MinUnits != 1 {
		add(configErr("economies_of_scale", "first breakpoint must start at 1 unit"))
	}
	for i, bp := range c.EconomiesOfScale {
		path := fmt.Sprintf("economies_of_scale[%d]", i)
		add(positive(path+".factor", bp.Factor))
		if i > 0 && bp.MinUnits <= c.EconomiesOfScale[i-1].MinUnits {
			add(configErr(path+".min_units", "must increase"))
		}
	}

	errs = append(errs, c.BudgetQuality.validate()...)

	sc := c.SongCount
	if sc.BasePerUnit <= 0 || sc.BasePerUnit > 1 {
		add(configErr("song_count.base_per_unit", "must be in (0,1], got %g", sc.BasePerUnit))
	}
	if sc.MinMultiplier <= 0 || sc.MinMultiplier > 1 {
		add(configErr("song_count.min_multiplier", "must be in (0,1], got %g", sc.MinMultiplier))
	}

	add(nonNegative("quality.variance_spread", c.Quality.VarianceSpread))

	if c.Operations.BaseMin < 0 || c.Operations.BaseMax < c.Operations.BaseMin {
		add(configErr("operations", "base range [%d,%d] is invalid", c.Operations.BaseMin, c.Operations.BaseMax))
	}
	for role, ex := range c.Executives {
		if ex.Salary < 0 {
			add(configErr("executives."+role+".salary", "must be >= 0"))
		}
	}

	return errors.Join(errs...)
}

func (b BudgetQualityParams) validate() []error {
	var errs []error
	if b.Dampening < 0 || b.Dampening > 1 {
		errs = append(errs, configErr("budget_quality.dampening", "must be in [0,1], got %g", b.Dampening))
	}
	points := []struct {
		name string
		bp   Breakpoint
	}{
		{"penalty", b.Penalty},
		{"minimum_viable", b.MinimumViable},
		{"optimal", b.Optimal},
		{"luxury", b.Luxury},
		{"diminishing", b.Diminishing},
	}
	for i, p := range points {
		if p.bp.Ratio <= 0 {
			errs = append(errs, configErr("budget_quality."+p.name+".ratio", "must be > 0"))
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if p.bp.Ratio <= prev.bp.Ratio {
			errs = append(errs, configErr("budget_quality."+p.name+".ratio", "must exceed %s ratio", prev.name))
		}
		if p.bp.Multiplier < prev.bp.Multiplier {
			errs = append(errs, configErr("budget_quality."+p.name+".multiplier", "must be >= %s multiplier", prev.name))
		}
	}
	if b.LogFactor < 0 {
		errs = append(errs, configErr("budget_quality.log_factor", "must be >= 0"))
	}
	if b.Min <= 0 || b.Max < b.Min {
		errs = append(errs, configErr("budget_quality", "bounds [%g,%g] are invalid", b.Min, b.Max))
	}
	return errs
}

func validateLadder(path string, tiers []AccessTier, check func(string, AccessTier) *ConfigError) []error {
	if len(tiers) == 0 {
		return []error{configErr(path, "at least one tier required")}
	}
	var errs []error
	if tiers[0].Threshold != 0 {
		errs = append(errs, configErr(path+"[0].threshold", "lowest tier must start at 0"))
	}
	seen := make(map[string]struct{}, len(tiers))
	for i, t := range tiers {
		tp := fmt.Sprintf("%s[%d]", path, i)
		if t.Name == "" {
			errs = append(errs, configErr(tp+".name", "required"))
		}
		if _, dup := seen[t.Name]; dup {
			errs = append(errs, configErr(tp+".name", "duplicate tier %q", t.Name))
		}
		seen[t.Name] = struct{}{}
		if i > 0 && t.Threshold <= tiers[i-1].Threshold {
			errs = append(errs, configErr(tp+".threshold", "thresholds must increase"))
		}
		if e := check(tp, t); e != nil {
			errs = append(errs, e)
		}
	}
	return errs
}

func positive(path string, v float64) *ConfigError {
	if v <= 0 {
		return configErr(path, "must be > 0, got %g", v)
	}
	return nil
}

func nonNegative(path string, v float64) *ConfigError {
	if v < 0 {
		return configErr(path, "must be >= 0, got %g", v)
	}
	return nil
}

func unitInterval(path string, v float64) *ConfigError {
	if v < 0 || v > 1 {
		return configErr(path, "must be in [0,1], got %g", v)
	}
	return nil
}

func positiveInt(path string, v int) *ConfigError {
	if v <= 0 {
		return configErr(path, "must be > 0, got %d", v)
	}
	return nil
}

func nonNegativeInt(path string, v int) *ConfigError {
	if v < 0 {
		return configErr(path, "must be >= 0, got %d", v)
	}
	return nil
}
