package economy

import (
	"labelsim/internal/balance"
	"labelsim/internal/game"
)

// ProjectCost is what a project charges on entering production: the chosen
// per-song budget for recordings, the scaled per-city base cost for tours.
func ProjectCost(cfg *balance.Config, p game.Project) (int64, error) {
	if p.GeneratesSongs() {
		return p.BudgetPerSong * int64(p.SongCount), nil
	}
	pc, err := cfg.ProjectCost(p.Type)
	if err != nil {
		return 0, err
	}
	return game.RoundMoney(float64(pc.BaseCostPerUnit) * float64(p.Cities) * cfg.ScaleFactor(p.Cities)), nil
}
