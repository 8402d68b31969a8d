// Package scenario bootstraps games and books the player's plans: new
// projects and releases. The turn engine owns everything that happens after.
package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"

	"labelsim/internal/balance"
	"labelsim/internal/game"
	"labelsim/internal/store"
)

type Options struct {
	// ID defaults to a random UUID.
	ID string
	// Seed drives the starting roster and every turn's rolls.
	Seed        int64
	AutoAdvance bool
}

var rosterNames = []struct{ name, genre string }{
	{"Nova Vale", "synth-pop"},
	{"The Lanterns", "indie rock"},
	{"Mara Quinn", "r&b"},
	{"Kit Hollow", "folk"},
	{"Static Bloom", "electronic"},
	{"Juno Reyes", "hip-hop"},
}

var startingStaff = []string{"head_of_ar", "cmo"}

// Seed creates a playable game in one transaction: two signed artists, a
// head of A&R and a CMO, a debut single and an EP in planning with their
// releases booked. Identical options produce identical games.
func Seed(ctx context.Context, s store.Store, cfg *balance.Config, opts Options) (game.GameState, error) {
	id := opts.ID
	if id == "" {
		id = game.NewID()
	}
	c := cfg.Campaign
	g := game.GameState{
		ID:              id,
		Turn:            1,
		Money:           c.StartingMoney,
		Reputation:      c.StartingReputation,
		CreativeCapital: 0,
		FocusSlots:      c.FocusSlots,
		AccessTiers:     startingTiers(cfg, c.StartingReputation),
		CampaignLength:  c.LengthTurns,
		AutoAdvance:     opts.AutoAdvance,
		Seed:            opts.Seed,
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	artists := roster(rng, id)

	err := s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		if err := q.InsertGame(ctx, g); err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		for _, a := range artists {
			if err := q.InsertArtist(ctx, a); err != nil {
				return fmt.Errorf("insert artist: %w", err)
			}
		}
		for i, role := range startingStaff {
			if err := q.InsertExecutive(ctx, game.Executive{
				ID: game.ChildID(id, "executive", i+1), GameID: id, Role: role, Mood: 50, Loyalty: 50,
			}); err != nil {
				return fmt.Errorf("insert executive: %w", err)
			}
		}
		return seedPlans(ctx, q, cfg, &g, artists)
	})
	if err != nil {
		return game.GameState{}, err
	}
	return g, nil
}

func startingTiers(cfg *balance.Config, reputation int) game.AccessTiers {
	var out game.AccessTiers
	for _, kind := range []game.AccessKind{game.AccessPlaylist, game.AccessPress, game.AccessVenue} {
		out.Set(kind, cfg.TierForReputation(kind, reputation).Name)
	}
	return out
}

func roster(rng *rand.Rand, gameID string) []game.Artist {
	picks := rng.Perm(len(rosterNames))[:2]
	out := make([]game.Artist, 0, len(picks))
	for i, idx := range picks {
		n := rosterNames[idx]
		out = append(out, game.Artist{
			ID:         game.ChildID(gameID, "artist", i+1),
			GameID:     gameID,
			Name:       n.name,
			Genre:      n.genre,
			Mood:       50 + rng.IntN(21),
			Loyalty:    40 + rng.IntN(21),
			Popularity: 10 + rng.IntN(21),
			WeeklyFee:  int64(400 + 50*rng.IntN(5)),
		})
	}
	return out
}

func seedPlans(ctx context.Context, q store.Queries, cfg *balance.Config, g *game.GameState, artists []game.Artist) error {
	lead, second := artists[0], artists[1]
	if _, err := planRelease(ctx, q, cfg, g, ReleasePlan{
		Title:           lead.Name + " - First Light",
		ArtistID:        lead.ID,
		Type:            game.ReleaseSingle,
		ReleaseTurn:     5,
		MarketingBudget: 3000,
		Project: &ProjectPlan{
			Type: game.ProjectSingle, ProducerTier: "local", TimeInvestment: "standard",
			SongCount: 1, BudgetPerSong: 4000,
		},
	}); err != nil {
		return err
	}
	_, err := planRelease(ctx, q, cfg, g, ReleasePlan{
		Title:           second.Name + " - Tides",
		ArtistID:        second.ID,
		Type:            game.ReleaseEP,
		ReleaseTurn:     8,
		MarketingBudget: 8000,
		LeadSingle:      &game.LeadSingle{OffsetTurns: 2, Budget: 1500},
		Project: &ProjectPlan{
			Type: game.ProjectEP, ProducerTier: "local", TimeInvestment: "standard",
			SongCount: 3, BudgetPerSong: 3500,
		},
	})
	return err
}
