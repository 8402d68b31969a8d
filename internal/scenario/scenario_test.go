package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/balance"
	"labelsim/internal/game"
	"labelsim/internal/store/memstore"
	"labelsim/internal/turn"
)

func testConfig(t *testing.T) *balance.Config {
	t.Helper()
	cfg, err := balance.Default()
	require.NoError(t, err)
	return cfg
}

func seeded(t *testing.T) (*memstore.Store, game.GameState) {
	t.Helper()
	s := memstore.New()
	g, err := Seed(context.Background(), s, testConfig(t), Options{ID: "g1", Seed: 99})
	require.NoError(t, err)
	return s, g
}

func TestSeedBuildsAPlayableLabel(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	cfg := testConfig(t)

	assert.Equal(t, 1, g.Turn)
	assert.Equal(t, cfg.Campaign.StartingMoney, g.Money)
	assert.Equal(t, "none", g.AccessTiers.Playlist)
	assert.Equal(t, "clubs", g.AccessTiers.Venue, "starting reputation unlocks clubs")
	assert.Zero(t, g.UsedFocusSlots)

	artists, err := s.ListArtists(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, artists, 2)

	execs, err := s.ListExecutives(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, execs, 2)

	projects, err := s.ListProjects(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	releases, err := s.ListReleases(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, releases, 2)
	for _, p := range projects {
		assert.NotEmpty(t, p.ReleaseID)
		assert.Equal(t, game.StagePlanning, p.Stage)
		assert.Positive(t, p.TotalCost)
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a, _ := seeded(t)
	b, _ := seeded(t)
	ctx := context.Background()

	left, err := a.ListArtists(ctx, "g1")
	require.NoError(t, err)
	right, err := b.ListArtists(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, left, right)
}

func TestSeedRejectsDuplicateID(t *testing.T) {
	s, _ := seeded(t)
	_, err := Seed(context.Background(), s, testConfig(t), Options{ID: "g1"})
	require.Error(t, err)
}

func TestSeededGamePlaysThrough(t *testing.T) {
	s, _ := seeded(t)
	c := turn.New(s, testConfig(t), nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.AdvanceTurn(ctx, "g1")
		require.NoError(t, err)
	}
	releases, err := s.ListReleases(ctx, "g1")
	require.NoError(t, err)
	for _, r := range releases {
		assert.Equal(t, game.ReleaseReleased, r.Status, r.Title)
		assert.Positive(t, r.Revenue, r.Title)
	}
}

func TestPlanProjectUsesFocusSlots(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	cfg := testConfig(t)
	artists, err := s.ListArtists(ctx, g.ID)
	require.NoError(t, err)

	plan := ProjectPlan{
		Title: "Demo", ArtistID: artists[0].ID, Type: game.ProjectSingle,
		ProducerTier: "local", TimeInvestment: "rushed", SongCount: 1, BudgetPerSong: 2500,
	}
	for i := 0; i < g.FocusSlots; i++ {
		p, err := PlanProject(ctx, s, cfg, g.ID, plan)
		require.NoError(t, err)
		assert.Equal(t, int64(2500), p.TotalCost)
	}
	_, err = PlanProject(ctx, s, cfg, g.ID, plan)
	assert.ErrorIs(t, err, game.ErrFocusSlotsFull)

	after, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.FocusSlots, after.UsedFocusSlots)

	_, err = turn.New(s, cfg, nil).AdvanceTurn(ctx, g.ID)
	require.NoError(t, err)
	_, err = PlanProject(ctx, s, cfg, g.ID, plan)
	assert.NoError(t, err, "slots reset each turn")
}

func TestPlanProjectValidation(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	cfg := testConfig(t)
	artists, err := s.ListArtists(ctx, g.ID)
	require.NoError(t, err)
	artist := artists[0].ID

	tests := []struct {
		name string
		plan ProjectPlan
		want error
	}{
		{"unknown artist", ProjectPlan{Title: "x", ArtistID: "ghost", Type: game.ProjectSingle, ProducerTier: "local", TimeInvestment: "standard", SongCount: 1}, game.ErrInvalidProject},
		{"locked producer", ProjectPlan{Title: "x", ArtistID: artist, Type: game.ProjectSingle, ProducerTier: "legendary", TimeInvestment: "standard", SongCount: 1}, game.ErrProducerLocked},
		{"unknown time tier", ProjectPlan{Title: "x", ArtistID: artist, Type: game.ProjectSingle, ProducerTier: "local", TimeInvestment: "forever", SongCount: 1}, game.ErrInvalidProject},
		{"no songs", ProjectPlan{Title: "x", ArtistID: artist, Type: game.ProjectEP, ProducerTier: "local", TimeInvestment: "standard"}, game.ErrInvalidProject},
		{"tour without cities", ProjectPlan{Title: "x", ArtistID: artist, Type: game.ProjectTour}, game.ErrInvalidProject},
		{"blank title", ProjectPlan{Title: "  ", ArtistID: artist, Type: game.ProjectTour, Cities: 2}, game.ErrInvalidProject},
	}
	for _, tc := range tests {
		_, err := PlanProject(ctx, s, cfg, g.ID, tc.plan)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}

	after, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, after.UsedFocusSlots, "failed plans roll back")
}

func TestPlanTour(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	artists, err := s.ListArtists(ctx, g.ID)
	require.NoError(t, err)

	p, err := PlanProject(ctx, s, testConfig(t), g.ID, ProjectPlan{
		Title: "Summer Run", ArtistID: artists[1].ID, Type: game.ProjectTour, Cities: 3, ProducerTier: "legendary",
	})
	require.NoError(t, err)
	assert.Empty(t, p.ProducerTier)
	assert.Equal(t, int64(17100), p.TotalCost)
}

func TestPlanReleaseAttachesExistingProject(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	cfg := testConfig(t)
	artists, err := s.ListArtists(ctx, g.ID)
	require.NoError(t, err)

	p, err := PlanProject(ctx, s, cfg, g.ID, ProjectPlan{
		Title: "B-Sides", ArtistID: artists[0].ID, Type: game.ProjectEP,
		ProducerTier: "local", TimeInvestment: "standard", SongCount: 2, BudgetPerSong: 3000,
	})
	require.NoError(t, err)

	r, err := PlanRelease(ctx, s, cfg, g.ID, ReleasePlan{
		Title: "B-Sides", ArtistID: artists[0].ID, Type: game.ReleaseEP, ReleaseTurn: 7,
		MarketingBudget: 2000, ProjectID: p.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, game.Unallocated, r.Allocation(game.PhaseBase))

	got, err := s.GetProject(ctx, g.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ReleaseID)

	_, err = PlanRelease(ctx, s, cfg, g.ID, ReleasePlan{
		Title: "Again", ArtistID: artists[0].ID, Type: game.ReleaseEP, ReleaseTurn: 7, ProjectID: p.ID,
	})
	assert.ErrorIs(t, err, game.ErrInvalidRelease)

	after, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.UsedFocusSlots, "attaching takes no slot")
}

func TestPlanReleaseValidation(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	cfg := testConfig(t)
	artists, err := s.ListArtists(ctx, g.ID)
	require.NoError(t, err)
	artist := artists[0].ID

	tests := []struct {
		name string
		plan ReleasePlan
	}{
		{"release in the past", ReleasePlan{Title: "x", ArtistID: artist, Type: game.ReleaseSingle, ReleaseTurn: 1}},
		{"lead single already gone", ReleasePlan{Title: "x", ArtistID: artist, Type: game.ReleaseEP, ReleaseTurn: 3, LeadSingle: &game.LeadSingle{OffsetTurns: 3}}},
		{"lead single after release", ReleasePlan{Title: "x", ArtistID: artist, Type: game.ReleaseEP, ReleaseTurn: 3, LeadSingle: &game.LeadSingle{OffsetTurns: 0}}},
		{"negative budget", ReleasePlan{Title: "x", ArtistID: artist, Type: game.ReleaseEP, ReleaseTurn: 3, MarketingBudget: -1}},
		{"unknown type", ReleasePlan{Title: "x", ArtistID: artist, Type: "mixtape", ReleaseTurn: 3}},
		{"tour project", ReleasePlan{Title: "x", ArtistID: artist, Type: game.ReleaseEP, ReleaseTurn: 3, Project: &ProjectPlan{Type: game.ProjectTour, Cities: 2}}},
		{"both project forms", ReleasePlan{Title: "x", ArtistID: artist, Type: game.ReleaseEP, ReleaseTurn: 3, ProjectID: "p", Project: &ProjectPlan{}}},
	}
	for _, tc := range tests {
		_, err := PlanRelease(ctx, s, cfg, g.ID, tc.plan)
		assert.ErrorIs(t, err, game.ErrInvalidRelease, tc.name)
	}

	releases, err := s.ListReleases(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, releases, 2, "nothing was booked")
}

func TestPlanOnUnknownGame(t *testing.T) {
	_, err := PlanProject(context.Background(), memstore.New(), testConfig(t), "nope", ProjectPlan{})
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestBookMarketingChargesOnce(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	cfg := testConfig(t)
	c := turn.New(s, cfg, nil)
	releaseID := game.ChildID(g.ID, "release", 1)

	_, err := BookMarketing(ctx, s, c.Ledger(), g.ID, releaseID)
	assert.ErrorIs(t, err, game.ErrInvalidRelease, "nothing recorded yet")

	for i := 0; i < 2; i++ {
		_, err := c.AdvanceTurn(ctx, g.ID)
		require.NoError(t, err)
	}
	before, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)

	alloc, err := BookMarketing(ctx, s, c.Ledger(), g.ID, releaseID)
	require.NoError(t, err)
	assert.False(t, alloc.Skipped)
	assert.Equal(t, int64(3000), alloc.Total)

	again, err := BookMarketing(ctx, s, c.Ledger(), g.ID, releaseID)
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	after, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Money-3000, after.Money)

	var shipped game.TurnSummary
	for i := 0; i < 3; i++ {
		shipped, err = c.AdvanceTurn(ctx, g.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, shipped.Turn)
	assert.Zero(t, shipped.ExpenseBreakdown.Marketing, "booked earlier")

	r, err := s.GetRelease(ctx, g.ID, releaseID)
	require.NoError(t, err)
	assert.Equal(t, game.ReleaseReleased, r.Status)

	_, err = BookMarketing(ctx, s, c.Ledger(), g.ID, releaseID)
	assert.ErrorIs(t, err, game.ErrInvalidRelease)
}

func TestLoadView(t *testing.T) {
	s, g := seeded(t)
	v, err := LoadView(context.Background(), s, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, v.Game.ID)
	assert.Len(t, v.Artists, 2)
	assert.Len(t, v.Projects, 2)
	assert.Len(t, v.Releases, 2)
	assert.Len(t, v.Executives, 2)

	_, err = LoadView(context.Background(), s, "nope")
	assert.Error(t, err)
}

func TestBookMarketingWaitsForEveryTrack(t *testing.T) {
	s, g := seeded(t)
	ctx := context.Background()
	c := turn.New(s, testConfig(t), nil)
	epRelease := game.ChildID(g.ID, "release", 2)
	epProject := game.ChildID(g.ID, "project", 2)

	for i := 0; i < 2; i++ {
		_, err := c.AdvanceTurn(ctx, g.ID)
		require.NoError(t, err)
	}
	p, err := s.GetProject(ctx, g.ID, epProject)
	require.NoError(t, err)
	require.Equal(t, 2, p.SongsCreated, "one track still to record")

	before, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	_, err = BookMarketing(ctx, s, c.Ledger(), g.ID, epRelease)
	assert.ErrorIs(t, err, game.ErrInvalidRelease)

	r, err := s.GetRelease(ctx, g.ID, epRelease)
	require.NoError(t, err)
	assert.Equal(t, game.Unallocated, r.Allocation(game.PhaseBase))
	after, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Money, after.Money)

	_, err = c.AdvanceTurn(ctx, g.ID)
	require.NoError(t, err)
	alloc, err := BookMarketing(ctx, s, c.Ledger(), g.ID, epRelease)
	require.NoError(t, err)
	assert.Len(t, alloc.Songs, 3)
}
