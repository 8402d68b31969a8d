package scenario

import (
	"context"

	"labelsim/internal/game"
	"labelsim/internal/store"
)

// View is everything a player sees about one game, read in one transaction.
type View struct {
	Game       game.GameState   `json:"game"`
	Artists    []game.Artist    `json:"artists"`
	Projects   []game.Project   `json:"projects"`
	Releases   []game.Release   `json:"releases"`
	Executives []game.Executive `json:"executives"`
}

func LoadView(ctx context.Context, s store.Store, gameID string) (View, error) {
	var out View
	err := s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		var err error
		if out.Game, err = q.GetGame(ctx, gameID); err != nil {
			return err
		}
		if out.Artists, err = q.ListArtists(ctx, gameID); err != nil {
			return err
		}
		if out.Projects, err = q.ListProjects(ctx, gameID); err != nil {
			return err
		}
		if out.Releases, err = q.ListReleases(ctx, gameID); err != nil {
			return err
		}
		out.Executives, err = q.ListExecutives(ctx, gameID)
		return err
	})
	return out, err
}
