package turn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/balance"
	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/store"
	"labelsim/internal/store/memstore"
)

const gameID = "label-1"

func testConfig(t *testing.T) *balance.Config {
	t.Helper()
	cfg, err := balance.Default()
	require.NoError(t, err)
	return cfg
}

// seedLabel builds a label with an EP due on turn 5 (lead single on turn 4),
// a three-city tour and two executives.
func seedLabel(t *testing.T, s store.Store, mutate func(*game.GameState, *game.Project)) {
	t.Helper()
	g := game.GameState{
		ID: gameID, Turn: 1, Money: 75000, Reputation: 10, FocusSlots: 3,
		AccessTiers:    game.AccessTiers{Playlist: "niche", Press: "blogs", Venue: "clubs"},
		CampaignLength: 52, Seed: 42,
	}
	ep := game.Project{
		ID: "project-ep", GameID: gameID, ArtistID: "artist-1", ReleaseID: "release-ep", Title: "Night Drive",
		Type: game.ProjectEP, Stage: game.StagePlanning, StartTurn: 1, StageStartedTurn: 1,
		ProducerTier: "local", TimeInvestment: "standard", SongCount: 3, BudgetPerSong: 3000,
	}
	if mutate != nil {
		mutate(&g, &ep)
	}
	ctx := context.Background()
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		if err := q.InsertGame(ctx, g); err != nil {
			return err
		}
		if err := q.InsertArtist(ctx, game.Artist{ID: "artist-1", GameID: gameID, Name: "Nova", Mood: 60, Popularity: 40, WeeklyFee: 500}); err != nil {
			return err
		}
		if err := q.InsertProject(ctx, ep); err != nil {
			return err
		}
		if err := q.InsertProject(ctx, game.Project{
			ID: "project-tour", GameID: gameID, ArtistID: "artist-1", Title: "Club Run", Type: game.ProjectTour,
			Stage: game.StagePlanning, StartTurn: 1, StageStartedTurn: 1, Cities: 3,
		}); err != nil {
			return err
		}
		if err := q.InsertRelease(ctx, game.Release{
			ID: "release-ep", GameID: gameID, ArtistID: "artist-1", Title: "Night Drive", Type: game.ReleaseEP,
			Status: game.ReleasePlanned, ReleaseTurn: 5, MarketingBudget: 10000, HasStoryBonus: true,
			LeadSingle: &game.LeadSingle{OffsetTurns: 1, Budget: 2000},
		}); err != nil {
			return err
		}
		for _, e := range []game.Executive{
			{ID: "exec-1", GameID: gameID, Role: "head_of_ar"},
			{ID: "exec-2", GameID: gameID, Role: "cmo"},
		} {
			if err := q.InsertExecutive(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))
}

func newController(t *testing.T, mutate func(*game.GameState, *game.Project)) (*Controller, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	seedLabel(t, s, mutate)
	return New(s, testConfig(t), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))), s
}

func advance(t *testing.T, c *Controller, turns int) []game.TurnSummary {
	t.Helper()
	out := make([]game.TurnSummary, 0, turns)
	for i := 0; i < turns; i++ {
		s, err := c.AdvanceTurn(context.Background(), gameID)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestAdvanceTurnIsDeterministic(t *testing.T) {
	a, _ := newController(t, nil)
	b, _ := newController(t, nil)

	first := advance(t, a, 7)
	second := advance(t, b, 7)

	left, err := json.Marshal(first)
	require.NoError(t, err)
	right, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(left), string(right))
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, _ := newController(t, nil)
	b, _ := newController(t, func(g *game.GameState, _ *game.Project) { g.Seed = 43 })

	assert.NotEqual(t, advance(t, a, 5)[4].Revenue, advance(t, b, 5)[4].Revenue)
}

func TestMoneyMovesByNet(t *testing.T) {
	c, s := newController(t, nil)
	ctx := context.Background()

	money := int64(75000)
	for _, sum := range advance(t, c, 6) {
		assert.Equal(t, sum.RevenueBreakdown.Total(), sum.Revenue)
		assert.Equal(t, sum.ExpenseBreakdown.Total(), sum.Expenses)
		assert.Equal(t, money+sum.Net(), sum.MoneyAfter, "turn %d", sum.Turn)
		money = sum.MoneyAfter
	}
	g, err := s.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, money, g.Money)
	assert.Equal(t, 7, g.Turn)
}

func TestProjectsPayOnceOnEnteringProduction(t *testing.T) {
	c, s := newController(t, nil)
	cfg := testConfig(t)
	sums := advance(t, c, 4)

	tourCost := game.RoundMoney(6000 * 3 * cfg.ScaleFactor(3))
	assert.Zero(t, sums[0].ExpenseBreakdown.Projects)
	assert.Equal(t, 3*int64(3000)+tourCost, sums[1].ExpenseBreakdown.Projects)
	assert.Zero(t, sums[2].ExpenseBreakdown.Projects)
	assert.Zero(t, sums[3].ExpenseBreakdown.Projects)

	p, err := s.GetProject(context.Background(), gameID, "project-ep")
	require.NoError(t, err)
	assert.True(t, p.CostPaid)
	assert.Equal(t, int64(9000), p.TotalCost)
}

func TestRecordingFillsTheProject(t *testing.T) {
	c, s := newController(t, nil)
	ctx := context.Background()
	advance(t, c, 3)

	p, err := s.GetProject(ctx, gameID, "project-ep")
	require.NoError(t, err)
	assert.Equal(t, 3, p.SongsCreated)
	assert.Equal(t, game.StageProduction, p.Stage)

	songs, err := s.ListReleaseSongs(ctx, gameID, "release-ep")
	require.NoError(t, err)
	require.Len(t, songs, 3)
	for i, song := range songs {
		assert.Equal(t, i+1, song.TrackNumber)
		assert.Equal(t, game.SongID(gameID, "project-ep", i+1), song.ID)
		assert.Equal(t, int64(3000), song.ProductionBudget)
		assert.GreaterOrEqual(t, song.Quality, game.MinSongQuality)
		assert.LessOrEqual(t, song.Quality, game.MaxSongQuality)
	}

	advance(t, c, 2)
	p, err = s.GetProject(ctx, gameID, "project-ep")
	require.NoError(t, err)
	assert.Equal(t, game.StageRecorded, p.Stage)
}

func TestLeadSingleDropsBeforeMainRelease(t *testing.T) {
	c, s := newController(t, nil)
	ctx := context.Background()
	advance(t, c, 4)

	r, err := s.GetRelease(ctx, gameID, "release-ep")
	require.NoError(t, err)
	assert.Equal(t, game.ReleasePlanned, r.Status)
	assert.Equal(t, game.Allocated, r.Allocation(game.PhaseLead))
	assert.Equal(t, game.Unallocated, r.Allocation(game.PhaseBase))
	assert.Positive(t, r.LeadSingleStreams)
	require.NotNil(t, r.LeadSingle)

	lead, err := s.GetSong(ctx, gameID, r.LeadSingle.SongID)
	require.NoError(t, err)
	assert.Equal(t, 1, lead.TrackNumber)
	assert.True(t, lead.IsReleased)
	assert.Equal(t, 4, lead.ReleasedTurn)
	assert.Equal(t, int64(2000), lead.MarketingAllocation)

	sum := advance(t, c, 1)[0]
	r, err = s.GetRelease(ctx, gameID, "release-ep")
	require.NoError(t, err)
	assert.Equal(t, game.ReleaseReleased, r.Status)
	assert.Equal(t, game.Allocated, r.Allocation(game.PhaseBase))
	assert.Equal(t, int64(10000), sum.ExpenseBreakdown.Marketing)

	songs, err := s.ListReleaseSongs(ctx, gameID, "release-ep")
	require.NoError(t, err)
	var marketing int64
	for _, song := range songs {
		assert.True(t, song.IsReleased)
		marketing += song.MarketingAllocation
	}
	assert.Equal(t, int64(12000), marketing)
	assert.Equal(t, int64(2000+3334), songs[0].MarketingAllocation)
	assert.Equal(t, 4, songs[0].ReleasedTurn, "lead single is not released twice")
	assert.Equal(t, 5, songs[1].ReleasedTurn)
}

func TestCatalogKeepsEarning(t *testing.T) {
	c, s := newController(t, nil)
	sums := advance(t, c, 6)

	last := sums[5]
	assert.Positive(t, last.RevenueBreakdown.Streaming)

	songs, err := s.ListReleaseSongs(context.Background(), gameID, "release-ep")
	require.NoError(t, err)
	for _, song := range songs {
		assert.Greater(t, song.TotalStreams, song.InitialStreams)
	}
}

func TestTourBooksBoxOffice(t *testing.T) {
	c, s := newController(t, nil)
	sums := advance(t, c, 4)

	p, err := s.GetProject(context.Background(), gameID, "project-tour")
	require.NoError(t, err)
	assert.Equal(t, game.StageMarketing, p.Stage)
	assert.Positive(t, p.Revenue)
	assert.Equal(t, p.Revenue, sums[3].RevenueBreakdown.Tours)
	for _, sum := range sums[:3] {
		assert.Zero(t, sum.RevenueBreakdown.Tours)
	}
}

func TestOperationsIncludePayroll(t *testing.T) {
	c, _ := newController(t, nil)
	sum := advance(t, c, 1)[0]

	assert.Equal(t, int64(2200), sum.ExpenseBreakdown.ExecutiveSalaries)
	assert.Equal(t, int64(500), sum.ExpenseBreakdown.ArtistSalaries)
	assert.GreaterOrEqual(t, sum.ExpenseBreakdown.Operations, int64(1500))
	assert.LessOrEqual(t, sum.ExpenseBreakdown.Operations, int64(3000))
}

func TestFailedTurnLeavesNoTrace(t *testing.T) {
	c, s := newController(t, func(_ *game.GameState, p *game.Project) { p.ProducerTier = "ghost" })
	ctx := context.Background()
	advance(t, c, 1)

	before, err := s.GetGame(ctx, gameID)
	require.NoError(t, err)

	_, err = c.AdvanceTurn(ctx, gameID)
	require.Error(t, err)
	assert.True(t, balance.IsConfigError(err))
	assert.Contains(t, err.Error(), "recording")

	after, err := s.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	p, err := s.GetProject(ctx, gameID, "project-ep")
	require.NoError(t, err)
	assert.Equal(t, game.StagePlanning, p.Stage)
	assert.False(t, p.CostPaid)

	songs, err := s.ListSongs(ctx, gameID)
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestCampaignCompletes(t *testing.T) {
	c, s := newController(t, func(g *game.GameState, _ *game.Project) { g.CampaignLength = 2 })
	ctx := context.Background()

	sums := advance(t, c, 2)
	last := sums[1].Changes[len(sums[1].Changes)-1]
	assert.Equal(t, game.ChangeCampaign, last.Kind)

	g, err := s.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.True(t, g.CampaignCompleted)

	_, err = c.AdvanceTurn(ctx, gameID)
	assert.ErrorIs(t, err, game.ErrCampaignComplete)
}

func TestExpectedTurnGuard(t *testing.T) {
	c, _ := newController(t, nil)
	ctx := context.Background()

	_, err := c.AdvanceFrom(ctx, gameID, 2)
	assert.ErrorIs(t, err, game.ErrTurnConflict)

	sum, err := c.AdvanceFrom(ctx, gameID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Turn)

	_, err = c.AdvanceFrom(ctx, gameID, 1)
	assert.ErrorIs(t, err, game.ErrTurnConflict)
}

func TestUnknownGame(t *testing.T) {
	c, _ := newController(t, nil)
	_, err := c.AdvanceTurn(context.Background(), "nope")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestAccessTiersOnlyMoveUp(t *testing.T) {
	c, s := newController(t, func(g *game.GameState, _ *game.Project) {
		g.Reputation = 30
		g.AccessTiers = game.AccessTiers{Playlist: "flagship", Press: "none", Venue: "none"}
	})
	sum := advance(t, c, 1)[0]

	g, err := s.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, "flagship", g.AccessTiers.Playlist)
	assert.Equal(t, "mid_tier", g.AccessTiers.Press)
	assert.Equal(t, "theaters", g.AccessTiers.Venue)

	var upgrades int
	for _, ch := range sum.Changes {
		if ch.Kind == game.ChangeAccessTier {
			upgrades++
		}
	}
	assert.Equal(t, 2, upgrades)
}

func TestSummaryCarriesBalanceVersion(t *testing.T) {
	c, _ := newController(t, nil)
	sum := advance(t, c, 1)[0]
	assert.Equal(t, testConfig(t).Version, sum.BalanceVersion)
	assert.Equal(t, gameID, sum.GameID)
	assert.NotNil(t, sum.Changes)
}

// flakyStore fails the first n transactions with a serialization error.
type flakyStore struct {
	*memstore.Store
	failures atomic.Int32
	err      error
}

func (f *flakyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	if f.failures.Add(-1) >= 0 {
		return f.err
	}
	return f.Store.WithinTx(ctx, fn)
}

func TestAdvanceWithRetryRetriesSerializationFailures(t *testing.T) {
	mem := memstore.New()
	seedLabel(t, mem, nil)
	fs := &flakyStore{Store: mem, err: &pgconn.PgError{Code: "40001"}}
	fs.failures.Store(2)
	c := New(fs, testConfig(t), nil)

	sum, err := c.AdvanceWithRetry(context.Background(), gameID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Turn)
}

func TestAdvanceWithRetryStopsOnPermanentErrors(t *testing.T) {
	mem := memstore.New()
	seedLabel(t, mem, nil)
	fs := &flakyStore{Store: mem, err: errors.New("disk full")}
	fs.failures.Store(5)
	c := New(fs, testConfig(t), nil)

	_, err := c.AdvanceWithRetry(context.Background(), gameID, 1)
	require.Error(t, err)
	assert.Equal(t, int32(4), fs.failures.Load(), "only one attempt")
}

func TestAdvanceWithRetryHonoursCancellation(t *testing.T) {
	mem := memstore.New()
	seedLabel(t, mem, nil)
	fs := &flakyStore{Store: mem, err: &pgconn.PgError{Code: "40P01"}}
	fs.failures.Store(100)
	c := New(fs, testConfig(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.AdvanceWithRetry(ctx, gameID, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEarlyMarketingBookingDrivesReleaseShares(t *testing.T) {
	r := game.Release{
		ID: "release-ep", MarketingBudget: 10000,
		LeadSingle:     &game.LeadSingle{SongID: "s1", OffsetTurns: 1, Budget: 2000},
		BaseAllocation: game.Allocated, LeadAllocation: game.Allocated,
	}
	songs := []game.Song{
		{ID: "s1", TrackNumber: 1, MarketingAllocation: 7000},
		{ID: "s2", TrackNumber: 2, MarketingAllocation: 5000},
		{ID: "s3", TrackNumber: 3},
	}

	shares := split(ledger.Allocation{Skipped: true}, r, songs)
	assert.Equal(t, map[string]int64{"s1": 5000, "s2": 5000, "s3": 0}, shares)

	fresh := ledger.Allocation{Songs: ledger.Split(10000, songs)}
	assert.Equal(t, map[string]int64{"s1": 3334, "s2": 3333, "s3": 3333}, split(fresh, r, songs))

	r.LeadAllocation = game.Unallocated
	assert.Equal(t, int64(7000), split(ledger.Allocation{Skipped: true}, r, songs)["s1"])
}

func TestEarlyBookedReleaseMatchesLedger(t *testing.T) {
	c, s := newController(t, nil)
	ctx := context.Background()

	advance(t, c, 2)
	alloc, err := c.Ledger().AllocateMarketingInvestment(ctx, gameID, "release-ep", 10000)
	require.NoError(t, err)
	require.Len(t, alloc.Songs, 2)

	sums := advance(t, c, 3)
	assert.Zero(t, sums[2].ExpenseBreakdown.Marketing, "base phase booked earlier")

	songs, err := s.ListReleaseSongs(ctx, gameID, "release-ep")
	require.NoError(t, err)
	require.Len(t, songs, 3)
	var booked int64
	for _, song := range songs {
		assert.True(t, song.IsReleased)
		booked += song.MarketingAllocation
	}
	assert.Equal(t, int64(12000), booked)
	assert.Zero(t, songs[2].MarketingAllocation)

	m, err := c.Ledger().ReleaseMetrics(ctx, gameID, "release-ep")
	require.NoError(t, err)
	assert.Equal(t, int64(12000), m.MarketingInvestment)
}

func TestMainReleaseEventReportsThisTurnsRevenue(t *testing.T) {
	c, s := newController(t, nil)
	ctx := context.Background()

	sums := advance(t, c, 5)
	rel, err := s.GetRelease(ctx, gameID, "release-ep")
	require.NoError(t, err)
	require.NotZero(t, rel.LeadSingleStreams)

	var leadRevenue int64
	for _, ch := range sums[3].Changes {
		if ch.Kind == game.ChangeRelease {
			leadRevenue += ch.Amount
		}
	}
	require.NotZero(t, leadRevenue)

	var mainEvent *game.ChangeEvent
	for i, ch := range sums[4].Changes {
		if ch.Kind == game.ChangeRelease && strings.Contains(ch.Description, "released with") {
			mainEvent = &sums[4].Changes[i]
		}
	}
	require.NotNil(t, mainEvent)
	assert.Less(t, mainEvent.Amount, rel.Revenue, "cumulative release revenue includes the lead single")
	assert.LessOrEqual(t, mainEvent.Amount, sums[4].RevenueBreakdown.Streaming)
}

func TestDecayAccruesStreamsBelowARoundedDollar(t *testing.T) {
	cfg := testConfig(t)
	cfg.Decay.MinRevenueThreshold = 0
	s := memstore.New()
	seedLabel(t, s, nil)
	ctx := context.Background()
	require.NoError(t, s.InsertSong(ctx, game.Song{
		ID: "old-song", GameID: gameID, ArtistID: "artist-1", Title: "B-Side", TrackNumber: 1,
		InitialStreams: 200, TotalStreams: 200, IsRecorded: true, IsReleased: true, ReleasedTurn: 0,
	}))
	c := New(s, cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	advance(t, c, 1)
	song, err := s.GetSong(ctx, gameID, "old-song")
	require.NoError(t, err)
	assert.Greater(t, song.TotalStreams, int64(200))
	assert.Zero(t, song.TotalRevenue)
}
