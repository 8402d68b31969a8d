package balance

import "labelsim/internal/game"

func (c *Config) Producer(name string) (ProducerTier, error) {
	pt, ok := c.ProducerTiers[name]
	if !ok {
		return ProducerTier{}, configErr("producer_tiers."+name, "unknown producer tier")
	}
	return pt, nil
}

func (c *Config) Time(name string) (TimeInvestment, error) {
	ti, ok := c.TimeInvestment[name]
	if !ok {
		return TimeInvestment{}, configErr("time_investment."+name, "unknown time investment tier")
	}
	return ti, nil
}

func (c *Config) ProjectCost(kind game.ProjectType) (ProjectCost, error) {
	pc, ok := c.ProjectCosts[string(kind)]
	if !ok {
		return ProjectCost{}, configErr("project_costs."+string(kind), "unknown project type")
	}
	return pc, nil
}

// ScaleFactor returns the economies-of-scale factor for the largest
// breakpoint not exceeding units.
func (c *Config) ScaleFactor(units int) float64 {
	factor := 1.0
	for _, bp := range c.EconomiesOfScale {
		if units < bp.MinUnits {
			break
		}
		factor = bp.Factor
	}
	return factor
}

func (c *Config) ladder(kind game.AccessKind) []AccessTier {
	switch kind {
	case game.AccessPlaylist:
		return c.AccessTiers.Playlist
	case game.AccessPress:
		return c.AccessTiers.Press
	default:
		return c.AccessTiers.Venue
	}
}

// AccessTier looks up a named rung on the given ladder.
func (c *Config) AccessTier(kind game.AccessKind, name string) (AccessTier, error) {
	for _, t := range c.ladder(kind) {
		if t.Name == name {
			return t, nil
		}
	}
	return AccessTier{}, configErr("access_tiers."+string(kind), "unknown tier %q", name)
}

// TierForReputation returns the highest rung whose threshold reputation meets.
func (c *Config) TierForReputation(kind game.AccessKind, reputation int) AccessTier {
	tiers := c.ladder(kind)
	best := tiers[0]
	for _, t := range tiers {
		if reputation >= t.Threshold {
			best = t
		}
	}
	return best
}

// TierRank is the index of the named tier on its ladder, or -1.
func (c *Config) TierRank(kind game.AccessKind, name string) int {
	for i, t := range c.ladder(kind) {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// LowestTiers is the starting rung of every ladder.
func (c *Config) LowestTiers() game.AccessTiers {
	return game.AccessTiers{
		Playlist: c.AccessTiers.Playlist[0].Name,
		Press:    c.AccessTiers.Press[0].Name,
		Venue:    c.AccessTiers.Venue[0].Name,
	}
}

// ExecutiveSalary resolves a role's weekly salary. ok is false for roles the
// tables do not know about.
func (c *Config) ExecutiveSalary(role string) (salary int64, ok bool) {
	ex, ok := c.Executives[role]
	if !ok {
		return 0, false
	}
	return ex.Salary, true
}
