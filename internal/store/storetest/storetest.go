// Package storetest is a behavioural suite every store.Store implementation
// runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/game"
	"labelsim/internal/store"
)

const GameID = "game-1"

// Fixture inserts one game with an artist, a project, a release with three
// songs and two executives.
func Fixture(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		if err := q.InsertGame(ctx, game.GameState{
			ID: GameID, Turn: 1, Money: 50000, Reputation: 10, FocusSlots: 3,
			AccessTiers:    game.AccessTiers{Playlist: "none", Press: "none", Venue: "none"},
			CampaignLength: 52, Seed: 7,
		}); err != nil {
			return err
		}
		if err := q.InsertArtist(ctx, game.Artist{ID: "artist-1", GameID: GameID, Name: "Nova", Mood: 60, Popularity: 30, WeeklyFee: 500}); err != nil {
			return err
		}
		if err := q.InsertProject(ctx, game.Project{
			ID: "project-1", GameID: GameID, ArtistID: "artist-1", Title: "Debut EP", Type: game.ProjectEP,
			Stage: game.StagePlanning, StartTurn: 1, ProducerTier: "local", TimeInvestment: "standard",
			SongCount: 3, BudgetPerSong: 3000,
		}); err != nil {
			return err
		}
		if err := q.InsertRelease(ctx, game.Release{
			ID: "release-1", GameID: GameID, ArtistID: "artist-1", Title: "Debut EP", Type: game.ReleaseEP,
			Status: game.ReleasePlanned, ReleaseTurn: 4, MarketingBudget: 10000,
			LeadSingle: &game.LeadSingle{OffsetTurns: 1, Budget: 2000},
		}); err != nil {
			return err
		}
		// Inserted out of track order on purpose.
		for _, track := range []int{3, 1, 2} {
			if err := q.InsertSong(ctx, game.Song{
				ID: "song-" + string(rune('0'+track)), GameID: GameID, ArtistID: "artist-1", ProjectID: "project-1",
				ReleaseID: "release-1", Title: "Track", TrackNumber: track, Quality: 60, IsRecorded: true, CreatedTurn: 2,
			}); err != nil {
				return err
			}
		}
		for _, e := range []game.Executive{
			{ID: "exec-2", GameID: GameID, Role: "cmo", Mood: 50, Loyalty: 50},
			{ID: "exec-1", GameID: GameID, Role: "head_of_ar", Mood: 50, Loyalty: 50},
		} {
			if err := q.InsertExecutive(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Run exercises newStore against the store contract.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("game round trip", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		ctx := context.Background()

		g, err := s.GetGame(ctx, GameID)
		require.NoError(t, err)
		assert.Equal(t, int64(50000), g.Money)
		assert.Equal(t, "none", g.AccessTiers.Venue)

		g.Turn = 2
		g.Money = 42000
		g.AutoAdvance = true
		require.NoError(t, s.UpdateGame(ctx, g))
		got, err := s.GetGame(ctx, GameID)
		require.NoError(t, err)
		assert.Equal(t, g, got)

		ids, err := s.ListAutoAdvanceGames(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{GameID}, ids)

		_, err = s.GetGame(ctx, "missing")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("duplicate insert conflicts", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		err := s.InsertArtist(context.Background(), game.Artist{ID: "artist-1", GameID: GameID, Name: "Again"})
		require.Error(t, err)
	})

	t.Run("release songs ordered by track", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		songs, err := s.ListReleaseSongs(context.Background(), GameID, "release-1")
		require.NoError(t, err)
		require.Len(t, songs, 3)
		for i, song := range songs {
			assert.Equal(t, i+1, song.TrackNumber)
		}
	})

	t.Run("scoped by game", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		ctx := context.Background()
		_, err := s.GetSong(ctx, "other-game", "song-1")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		songs, err := s.ListSongs(ctx, "other-game")
		require.NoError(t, err)
		assert.Empty(t, songs)
	})

	t.Run("update song keeps investment", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		ctx := context.Background()

		require.NoError(t, s.RecordSongProduction(ctx, GameID, "song-1", "project-1", 3000))
		require.NoError(t, s.AddSongMarketing(ctx, GameID, "song-1", 500))
		require.NoError(t, s.AddSongMarketing(ctx, GameID, "song-1", 250))

		song, err := s.GetSong(ctx, GameID, "song-1")
		require.NoError(t, err)
		song.ProductionBudget = 0
		song.MarketingAllocation = 0
		song.TotalRevenue = 900
		song.IsReleased = true
		song.ReleasedTurn = 3
		require.NoError(t, s.UpdateSong(ctx, song))

		got, err := s.GetSong(ctx, GameID, "song-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3000), got.ProductionBudget)
		assert.Equal(t, int64(750), got.MarketingAllocation)
		assert.Equal(t, int64(900), got.TotalRevenue)
		assert.True(t, got.IsReleased)
		assert.Equal(t, int64(3750), got.TotalInvestment())
	})

	t.Run("claim allocation once per phase", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		ctx := context.Background()

		claimed, err := s.ClaimAllocation(ctx, GameID, "release-1", game.PhaseBase)
		require.NoError(t, err)
		assert.True(t, claimed)
		claimed, err = s.ClaimAllocation(ctx, GameID, "release-1", game.PhaseBase)
		require.NoError(t, err)
		assert.False(t, claimed)

		claimed, err = s.ClaimAllocation(ctx, GameID, "release-1", game.PhaseLead)
		require.NoError(t, err)
		assert.True(t, claimed)

		r, err := s.GetRelease(ctx, GameID, "release-1")
		require.NoError(t, err)
		assert.Equal(t, game.Allocated, r.BaseAllocation)
		assert.Equal(t, game.Allocated, r.LeadAllocation)

		// Writing a stale copy must not reset the flags.
		r.BaseAllocation = game.Unallocated
		r.LeadAllocation = game.Unallocated
		r.Status = game.ReleaseReleased
		require.NoError(t, s.UpdateRelease(ctx, r))
		r, err = s.GetRelease(ctx, GameID, "release-1")
		require.NoError(t, err)
		assert.Equal(t, game.Allocated, r.BaseAllocation)
		assert.Equal(t, game.Allocated, r.LeadAllocation)
		assert.Equal(t, game.ReleaseReleased, r.Status)
		require.NotNil(t, r.LeadSingle)
		assert.Equal(t, int64(2000), r.LeadSingle.Budget)
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		ctx := context.Background()
		boom := errors.New("boom")

		err := s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
			g, err := q.GetGame(ctx, GameID)
			if err != nil {
				return err
			}
			g.Money = 1
			if err := q.UpdateGame(ctx, g); err != nil {
				return err
			}
			if err := q.AddSongMarketing(ctx, GameID, "song-2", 999); err != nil {
				return err
			}
			if _, err := q.ClaimAllocation(ctx, GameID, "release-1", game.PhaseBase); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		g, err := s.GetGame(ctx, GameID)
		require.NoError(t, err)
		assert.Equal(t, int64(50000), g.Money)
		song, err := s.GetSong(ctx, GameID, "song-2")
		require.NoError(t, err)
		assert.Zero(t, song.MarketingAllocation)
		r, err := s.GetRelease(ctx, GameID, "release-1")
		require.NoError(t, err)
		assert.Equal(t, game.Unallocated, r.BaseAllocation)
	})

	t.Run("lists are ordered", func(t *testing.T) {
		s := newStore(t)
		Fixture(t, s)
		ctx := context.Background()

		execs, err := s.ListExecutives(ctx, GameID)
		require.NoError(t, err)
		require.Len(t, execs, 2)
		assert.Equal(t, "cmo", execs[0].Role)

		projects, err := s.ListProjects(ctx, GameID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		p := projects[0]
		p.Stage = game.StageProduction
		p.CostPaid = true
		p.ReleaseID = "release-1"
		require.NoError(t, s.UpdateProject(ctx, p))
		got, err := s.GetProject(ctx, GameID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)

		songs, err := s.ListProjectSongs(ctx, GameID, "project-1")
		require.NoError(t, err)
		assert.Len(t, songs, 3)
		songs, err = s.ListArtistSongs(ctx, GameID, "artist-1")
		require.NoError(t, err)
		assert.Len(t, songs, 3)

		releases, err := s.ListReleases(ctx, GameID)
		require.NoError(t, err)
		require.Len(t, releases, 1)
		artists, err := s.ListArtists(ctx, GameID)
		require.NoError(t, err)
		require.Len(t, artists, 1)
		assert.Equal(t, int64(500), artists[0].WeeklyFee)
	})
}
