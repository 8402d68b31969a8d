package economy

import (
	"math"

	"labelsim/internal/game"
)

type PressResult struct {
	Pickups        int `json:"pickups"`
	ReputationGain int `json:"reputation_gain"`
}

// PressChance is the per-trial probability of a pickup.
func (c *Calculator) PressChance(pressTier string, spend int64, reputation int, storyBonus bool) (float64, error) {
	tier, err := c.cfg.AccessTier(game.AccessPress, pressTier)
	if err != nil {
		return 0, err
	}
	p := c.cfg.Press
	chance := p.BaseChance +
		tier.PickupChance +
		float64(spend)/1000*p.SpendModifierPer1000 +
		float64(reputation)/100*p.ReputationModifier
	if storyBonus {
		chance += p.StoryBonus
	}
	v, adj := clamp("press_chance", chance, 0, p.MaxChance)
	c.record(adj)
	return v, nil
}

// PressPickups runs the configured number of independent trials and counts
// the hits.
func (c *Calculator) PressPickups(pressTier string, spend int64, reputation int, storyBonus bool) (int, error) {
	chance, err := c.PressChance(pressTier, spend, reputation, storyBonus)
	if err != nil {
		return 0, err
	}
	pickups := 0
	for i := 0; i < c.cfg.Press.MaxPickupsPerRelease; i++ {
		if c.rng.Float64() < chance {
			pickups++
		}
	}
	return pickups, nil
}

// PressOutcome adds the reputation earned from the pickups, weighted by the
// quality of the work covered.
func (c *Calculator) PressOutcome(pressTier string, spend int64, reputation, quality int, storyBonus bool) (PressResult, error) {
	pickups, err := c.PressPickups(pressTier, spend, reputation, storyBonus)
	if err != nil {
		return PressResult{}, err
	}
	return PressResult{
		Pickups:        pickups,
		ReputationGain: PressReputationGain(pickups, quality, c.cfg.Press.ReputationGainMultiplier),
	}, nil
}

func PressReputationGain(pickups, quality int, multiplier float64) int {
	return int(math.Floor(float64(pickups) * float64(quality) / 100 * multiplier))
}
