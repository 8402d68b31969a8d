// Package pgstore is the Postgres Store used by the API and worker.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"labelsim/internal/game"
	"labelsim/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	queries
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: queries{db: pool}, pool: pool, log: logger}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WithinTx runs fn in a serializable transaction. Serialization failures
// surface unchanged so the caller can retry the whole turn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListAutoAdvanceGames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM label.games
		WHERE auto_advance AND NOT campaign_completed
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type queries struct {
	db querier
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return err
}

func insertErr(err error, kind, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrConflict)
	}
	return err
}

func mustAffect(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

const gameColumns = `id, turn, money, reputation, creative_capital, focus_slots, used_focus_slots,
	playlist_tier, press_tier, venue_tier, campaign_length, campaign_completed, auto_advance, seed`

func scanGame(row pgx.Row) (game.GameState, error) {
	var g game.GameState
	err := row.Scan(&g.ID, &g.Turn, &g.Money, &g.Reputation, &g.CreativeCapital, &g.FocusSlots, &g.UsedFocusSlots,
		&g.AccessTiers.Playlist, &g.AccessTiers.Press, &g.AccessTiers.Venue,
		&g.CampaignLength, &g.CampaignCompleted, &g.AutoAdvance, &g.Seed)
	return g, err
}

func (q queries) GetGame(ctx context.Context, gameID string) (game.GameState, error) {
	g, err := scanGame(q.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM label.games WHERE id = $1`, gameID))
	if err != nil {
		return game.GameState{}, notFound(err, "game", gameID)
	}
	return g, nil
}

func (q queries) InsertGame(ctx context.Context, g game.GameState) error {
	_, err := q.db.Exec(ctx, `INSERT INTO label.games (`+gameColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		g.ID, g.Turn, g.Money, g.Reputation, g.CreativeCapital, g.FocusSlots, g.UsedFocusSlots,
		g.AccessTiers.Playlist, g.AccessTiers.Press, g.AccessTiers.Venue,
		g.CampaignLength, g.CampaignCompleted, g.AutoAdvance, g.Seed)
	return insertErr(err, "game", g.ID)
}

func (q queries) UpdateGame(ctx context.Context, g game.GameState) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE label.games
		SET turn = $2, money = $3, reputation = $4, creative_capital = $5, focus_slots = $6,
			used_focus_slots = $7, playlist_tier = $8, press_tier = $9, venue_tier = $10,
			campaign_length = $11, campaign_completed = $12, auto_advance = $13
		WHERE id = $1
	`, g.ID, g.Turn, g.Money, g.Reputation, g.CreativeCapital, g.FocusSlots, g.UsedFocusSlots,
		g.AccessTiers.Playlist, g.AccessTiers.Press, g.AccessTiers.Venue,
		g.CampaignLength, g.CampaignCompleted, g.AutoAdvance)
	if err != nil {
		return err
	}
	return mustAffect(tag, "game", g.ID)
}

const artistColumns = `id, game_id, name, genre, mood, loyalty, popularity, weekly_fee`

func scanArtist(row pgx.Row) (game.Artist, error) {
	var a game.Artist
	err := row.Scan(&a.ID, &a.GameID, &a.Name, &a.Genre, &a.Mood, &a.Loyalty, &a.Popularity, &a.WeeklyFee)
	return a, err
}

func (q queries) ListArtists(ctx context.Context, gameID string) ([]game.Artist, error) {
	rows, err := q.db.Query(ctx, `SELECT `+artistColumns+` FROM label.artists WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Artist, error) { return scanArtist(row) })
}

func (q queries) GetArtist(ctx context.Context, gameID, artistID string) (game.Artist, error) {
	a, err := scanArtist(q.db.QueryRow(ctx, `SELECT `+artistColumns+` FROM label.artists WHERE game_id = $1 AND id = $2`, gameID, artistID))
	if err != nil {
		return game.Artist{}, notFound(err, "artist", artistID)
	}
	return a, nil
}

func (q queries) InsertArtist(ctx context.Context, a game.Artist) error {
	_, err := q.db.Exec(ctx, `INSERT INTO label.artists (`+artistColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.GameID, a.Name, a.Genre, a.Mood, a.Loyalty, a.Popularity, a.WeeklyFee)
	return insertErr(err, "artist", a.ID)
}

const projectColumns = `id, game_id, artist_id, release_id, title, type, stage, start_turn, stage_started_turn,
	producer_tier, time_investment, song_count, songs_created, budget_per_song, total_cost, cost_paid,
	cities, revenue, streams`

func scanProject(row pgx.Row) (game.Project, error) {
	var p game.Project
	err := row.Scan(&p.ID, &p.GameID, &p.ArtistID, &p.ReleaseID, &p.Title, &p.Type, &p.Stage, &p.StartTurn,
		&p.StageStartedTurn, &p.ProducerTier, &p.TimeInvestment, &p.SongCount, &p.SongsCreated,
		&p.BudgetPerSong, &p.TotalCost, &p.CostPaid, &p.Cities, &p.Revenue, &p.Streams)
	return p, err
}

func (q queries) ListProjects(ctx context.Context, gameID string) ([]game.Project, error) {
	rows, err := q.db.Query(ctx, `SELECT `+projectColumns+` FROM label.projects WHERE game_id = $1 ORDER BY start_turn, id`, gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Project, error) { return scanProject(row) })
}

func (q queries) GetProject(ctx context.Context, gameID, projectID string) (game.Project, error) {
	p, err := scanProject(q.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM label.projects WHERE game_id = $1 AND id = $2`, gameID, projectID))
	if err != nil {
		return game.Project{}, notFound(err, "project", projectID)
	}
	return p, nil
}

func (q queries) InsertProject(ctx context.Context, p game.Project) error {
	_, err := q.db.Exec(ctx, `INSERT INTO label.projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		p.ID, p.GameID, p.ArtistID, p.ReleaseID, p.Title, p.Type, p.Stage, p.StartTurn, p.StageStartedTurn,
		p.ProducerTier, p.TimeInvestment, p.SongCount, p.SongsCreated, p.BudgetPerSong, p.TotalCost, p.CostPaid,
		p.Cities, p.Revenue, p.Streams)
	return insertErr(err, "project", p.ID)
}

func (q queries) UpdateProject(ctx context.Context, p game.Project) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE label.projects
		SET release_id = $3, title = $4, stage = $5, stage_started_turn = $6, songs_created = $7,
			total_cost = $8, cost_paid = $9, revenue = $10, streams = $11
		WHERE game_id = $1 AND id = $2
	`, p.GameID, p.ID, p.ReleaseID, p.Title, p.Stage, p.StageStartedTurn, p.SongsCreated,
		p.TotalCost, p.CostPaid, p.Revenue, p.Streams)
	if err != nil {
		return err
	}
	return mustAffect(tag, "project", p.ID)
}

const songColumns = `id, game_id, artist_id, project_id, release_id, title, track_number, quality,
	production_budget, marketing_allocation, initial_streams, total_streams, total_revenue,
	last_turn_revenue, is_recorded, is_released, created_turn, released_turn`

const songOrder = ` ORDER BY created_turn, project_id, track_number, id`

func scanSong(row pgx.Row) (game.Song, error) {
	var s game.Song
	err := row.Scan(&s.ID, &s.GameID, &s.ArtistID, &s.ProjectID, &s.ReleaseID, &s.Title, &s.TrackNumber, &s.Quality,
		&s.ProductionBudget, &s.MarketingAllocation, &s.InitialStreams, &s.TotalStreams, &s.TotalRevenue,
		&s.LastTurnRevenue, &s.IsRecorded, &s.IsReleased, &s.CreatedTurn, &s.ReleasedTurn)
	return s, err
}

func (q queries) listSongs(ctx context.Context, where string, args ...any) ([]game.Song, error) {
	rows, err := q.db.Query(ctx, `SELECT `+songColumns+` FROM label.songs WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Song, error) { return scanSong(row) })
}

func (q queries) ListSongs(ctx context.Context, gameID string) ([]game.Song, error) {
	return q.listSongs(ctx, `game_id = $1`+songOrder, gameID)
}

func (q queries) ListArtistSongs(ctx context.Context, gameID, artistID string) ([]game.Song, error) {
	return q.listSongs(ctx, `game_id = $1 AND artist_id = $2`+songOrder, gameID, artistID)
}

func (q queries) ListProjectSongs(ctx context.Context, gameID, projectID string) ([]game.Song, error) {
	return q.listSongs(ctx, `game_id = $1 AND project_id = $2`+songOrder, gameID, projectID)
}

func (q queries) ListReleaseSongs(ctx context.Context, gameID, releaseID string) ([]game.Song, error) {
	return q.listSongs(ctx, `game_id = $1 AND release_id = $2 ORDER BY track_number, id`, gameID, releaseID)
}

func (q queries) GetSong(ctx context.Context, gameID, songID string) (game.Song, error) {
	s, err := scanSong(q.db.QueryRow(ctx, `SELECT `+songColumns+` FROM label.songs WHERE game_id = $1 AND id = $2`, gameID, songID))
	if err != nil {
		return game.Song{}, notFound(err, "song", songID)
	}
	return s, nil
}

func (q queries) InsertSong(ctx context.Context, s game.Song) error {
	_, err := q.db.Exec(ctx, `INSERT INTO label.songs (`+songColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		s.ID, s.GameID, s.ArtistID, s.ProjectID, s.ReleaseID, s.Title, s.TrackNumber, s.Quality,
		s.ProductionBudget, s.MarketingAllocation, s.InitialStreams, s.TotalStreams, s.TotalRevenue,
		s.LastTurnRevenue, s.IsRecorded, s.IsReleased, s.CreatedTurn, s.ReleasedTurn)
	return insertErr(err, "song", s.ID)
}

func (q queries) UpdateSong(ctx context.Context, s game.Song) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE label.songs
		SET project_id = $3, release_id = $4, title = $5, track_number = $6, quality = $7,
			initial_streams = $8, total_streams = $9, total_revenue = $10, last_turn_revenue = $11,
			is_recorded = $12, is_released = $13, released_turn = $14
		WHERE game_id = $1 AND id = $2
	`, s.GameID, s.ID, s.ProjectID, s.ReleaseID, s.Title, s.TrackNumber, s.Quality,
		s.InitialStreams, s.TotalStreams, s.TotalRevenue, s.LastTurnRevenue,
		s.IsRecorded, s.IsReleased, s.ReleasedTurn)
	if err != nil {
		return err
	}
	return mustAffect(tag, "song", s.ID)
}

func (q queries) RecordSongProduction(ctx context.Context, gameID, songID, projectID string, budget int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE label.songs SET project_id = $3, production_budget = $4
		WHERE game_id = $1 AND id = $2
	`, gameID, songID, projectID, budget)
	if err != nil {
		return err
	}
	return mustAffect(tag, "song", songID)
}

func (q queries) AddSongMarketing(ctx context.Context, gameID, songID string, amount int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE label.songs SET marketing_allocation = marketing_allocation + $3
		WHERE game_id = $1 AND id = $2
	`, gameID, songID, amount)
	if err != nil {
		return err
	}
	return mustAffect(tag, "song", songID)
}

const releaseColumns = `id, game_id, artist_id, title, type, status, release_turn, marketing_budget,
	has_lead_single, lead_song_id, lead_offset_turns, lead_budget, has_story_bonus,
	base_allocated, lead_allocated, lead_single_streams, streams, revenue, press_pickups`

func allocationState(flag bool) game.AllocationState {
	if flag {
		return game.Allocated
	}
	return game.Unallocated
}

func scanRelease(row pgx.Row) (game.Release, error) {
	var (
		r                  game.Release
		hasLead            bool
		lead               game.LeadSingle
		baseFlag, leadFlag bool
	)
	err := row.Scan(&r.ID, &r.GameID, &r.ArtistID, &r.Title, &r.Type, &r.Status, &r.ReleaseTurn, &r.MarketingBudget,
		&hasLead, &lead.SongID, &lead.OffsetTurns, &lead.Budget, &r.HasStoryBonus,
		&baseFlag, &leadFlag, &r.LeadSingleStreams, &r.Streams, &r.Revenue, &r.PressPickups)
	if err != nil {
		return game.Release{}, err
	}
	if hasLead {
		r.LeadSingle = &lead
	}
	r.BaseAllocation = allocationState(baseFlag)
	r.LeadAllocation = allocationState(leadFlag)
	return r, nil
}

// leadArgs flattens the optional lead single into its columns.
func leadArgs(r game.Release) (bool, string, int, int64) {
	if r.LeadSingle == nil {
		return false, "", 0, 0
	}
	return true, r.LeadSingle.SongID, r.LeadSingle.OffsetTurns, r.LeadSingle.Budget
}

func (q queries) ListReleases(ctx context.Context, gameID string) ([]game.Release, error) {
	rows, err := q.db.Query(ctx, `SELECT `+releaseColumns+` FROM label.releases WHERE game_id = $1 ORDER BY release_turn, id`, gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Release, error) { return scanRelease(row) })
}

func (q queries) GetRelease(ctx context.Context, gameID, releaseID string) (game.Release, error) {
	r, err := scanRelease(q.db.QueryRow(ctx, `SELECT `+releaseColumns+` FROM label.releases WHERE game_id = $1 AND id = $2`, gameID, releaseID))
	if err != nil {
		return game.Release{}, notFound(err, "release", releaseID)
	}
	return r, nil
}

func (q queries) InsertRelease(ctx context.Context, r game.Release) error {
	hasLead, leadSong, leadOffset, leadBudget := leadArgs(r)
	_, err := q.db.Exec(ctx, `INSERT INTO label.releases (`+releaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		r.ID, r.GameID, r.ArtistID, r.Title, r.Type, r.Status, r.ReleaseTurn, r.MarketingBudget,
		hasLead, leadSong, leadOffset, leadBudget, r.HasStoryBonus,
		r.Allocation(game.PhaseBase) == game.Allocated, r.Allocation(game.PhaseLead) == game.Allocated,
		r.LeadSingleStreams, r.Streams, r.Revenue, r.PressPickups)
	return insertErr(err, "release", r.ID)
}

func (q queries) UpdateRelease(ctx context.Context, r game.Release) error {
	hasLead, leadSong, leadOffset, leadBudget := leadArgs(r)
	tag, err := q.db.Exec(ctx, `
		UPDATE label.releases
		SET title = $3, status = $4, release_turn = $5, marketing_budget = $6, has_lead_single = $7,
			lead_song_id = $8, lead_offset_turns = $9, lead_budget = $10, has_story_bonus = $11,
			lead_single_streams = $12, streams = $13, revenue = $14, press_pickups = $15
		WHERE game_id = $1 AND id = $2
	`, r.GameID, r.ID, r.Title, r.Status, r.ReleaseTurn, r.MarketingBudget, hasLead,
		leadSong, leadOffset, leadBudget, r.HasStoryBonus,
		r.LeadSingleStreams, r.Streams, r.Revenue, r.PressPickups)
	if err != nil {
		return err
	}
	return mustAffect(tag, "release", r.ID)
}

func (q queries) ClaimAllocation(ctx context.Context, gameID, releaseID string, phase game.AllocationPhase) (bool, error) {
	column := "base_allocated"
	if phase == game.PhaseLead {
		column = "lead_allocated"
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE label.releases SET `+column+` = true
		WHERE game_id = $1 AND id = $2 AND NOT `+column, gameID, releaseID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Zero rows is either an existing claim or a missing release.
	if _, err := q.GetRelease(ctx, gameID, releaseID); err != nil {
		return false, err
	}
	return false, nil
}

const executiveColumns = `id, game_id, role, mood, loyalty, last_active_turn`

// ListExecutives reads inside a savepoint when called in a transaction, so a
// failed read leaves the transaction usable and payroll can fall back to zero.
func (q queries) ListExecutives(ctx context.Context, gameID string) ([]game.Executive, error) {
	tx, ok := q.db.(pgx.Tx)
	if !ok {
		return listExecutives(ctx, q.db, gameID)
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}
	out, err := listExecutives(ctx, sp, gameID)
	if err != nil {
		_ = sp.Rollback(ctx)
		return nil, err
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	return out, nil
}

func listExecutives(ctx context.Context, db querier, gameID string) ([]game.Executive, error) {
	rows, err := db.Query(ctx, `SELECT `+executiveColumns+` FROM label.executives WHERE game_id = $1 ORDER BY role, id`, gameID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (game.Executive, error) {
		var e game.Executive
		err := row.Scan(&e.ID, &e.GameID, &e.Role, &e.Mood, &e.Loyalty, &e.LastActiveTurn)
		return e, err
	})
}

func (q queries) InsertExecutive(ctx context.Context, e game.Executive) error {
	_, err := q.db.Exec(ctx, `INSERT INTO label.executives (`+executiveColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.GameID, e.Role, e.Mood, e.Loyalty, e.LastActiveTurn)
	return insertErr(err, "executive", e.ID)
}
