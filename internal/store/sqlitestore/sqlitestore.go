// Package sqlitestore is a single-file Store for offline play from the CLI.
// Rows map onto the game types through their json tags.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "modernc.org/sqlite"

	"labelsim/internal/game"
	"labelsim/internal/store"
)

type Store struct {
	queries
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := New(conn)
	if err := s.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// New wraps an existing connection without touching the schema.
func New(conn *sqlx.DB) *Store {
	conn.Mapper = reflectx.NewMapperFunc("json", strings.ToLower)
	cfg := defaultRetryConfig
	return &Store{queries: queries{db: conn, retry: &cfg}, db: conn}
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	var tx *sqlx.Tx
	err := retryOp(ctx, *s.retry, func() error {
		var err error
		tx, err = s.db.BeginTxx(ctx, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListAutoAdvanceGames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM games WHERE auto_advance = 1 AND campaign_completed = 0 ORDER BY id LIMIT ?`, limit)
	return ids, err
}

// queries runs against the pool or a transaction. retry is set only for
// the pool, where each statement stands alone.
type queries struct {
	db    sqlx.ExtContext
	retry *retryConfig
}

func (q queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	run := func() error {
		var err error
		res, err = q.db.ExecContext(ctx, query, args...)
		return err
	}
	if q.retry == nil {
		return res, run()
	}
	return res, retryOp(ctx, *q.retry, run)
}

func (q queries) namedExec(ctx context.Context, query string, arg any) error {
	run := func() error {
		_, err := sqlx.NamedExecContext(ctx, q.db, query, arg)
		return err
	}
	if q.retry == nil {
		return run()
	}
	return retryOp(ctx, *q.retry, run)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return err
}

func insertErr(err error, kind, id string) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrConflict)
	}
	return err
}

func mustAffect(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

const gameSelect = `SELECT id, turn, money, reputation, creative_capital, focus_slots, used_focus_slots,
	playlist_tier AS "access_tiers.playlist", press_tier AS "access_tiers.press", venue_tier AS "access_tiers.venue",
	campaign_length, campaign_completed, auto_advance, seed FROM games`

func (q queries) GetGame(ctx context.Context, gameID string) (game.GameState, error) {
	var g game.GameState
	if err := sqlx.GetContext(ctx, q.db, &g, gameSelect+` WHERE id = ?`, gameID); err != nil {
		return game.GameState{}, notFound(err, "game", gameID)
	}
	return g, nil
}

func (q queries) InsertGame(ctx context.Context, g game.GameState) error {
	err := q.namedExec(ctx, `INSERT INTO games (id, turn, money, reputation, creative_capital, focus_slots,
		used_focus_slots, playlist_tier, press_tier, venue_tier, campaign_length, campaign_completed, auto_advance, seed)
		VALUES (:id, :turn, :money, :reputation, :creative_capital, :focus_slots, :used_focus_slots,
		:access_tiers.playlist, :access_tiers.press, :access_tiers.venue, :campaign_length,
		:campaign_completed, :auto_advance, :seed)`, g)
	return insertErr(err, "game", g.ID)
}

func (q queries) UpdateGame(ctx context.Context, g game.GameState) error {
	res, err := q.exec(ctx, `UPDATE games SET turn = ?, money = ?, reputation = ?, creative_capital = ?,
		focus_slots = ?, used_focus_slots = ?, playlist_tier = ?, press_tier = ?, venue_tier = ?,
		campaign_length = ?, campaign_completed = ?, auto_advance = ? WHERE id = ?`,
		g.Turn, g.Money, g.Reputation, g.CreativeCapital, g.FocusSlots, g.UsedFocusSlots,
		g.AccessTiers.Playlist, g.AccessTiers.Press, g.AccessTiers.Venue,
		g.CampaignLength, g.CampaignCompleted, g.AutoAdvance, g.ID)
	return mustAffect(res, err, "game", g.ID)
}

const artistSelect = `SELECT id, game_id, name, genre, mood, loyalty, popularity, weekly_fee FROM artists`

func (q queries) ListArtists(ctx context.Context, gameID string) ([]game.Artist, error) {
	var out []game.Artist
	err := sqlx.SelectContext(ctx, q.db, &out, artistSelect+` WHERE game_id = ? ORDER BY id`, gameID)
	return out, err
}

func (q queries) GetArtist(ctx context.Context, gameID, artistID string) (game.Artist, error) {
	var a game.Artist
	if err := sqlx.GetContext(ctx, q.db, &a, artistSelect+` WHERE game_id = ? AND id = ?`, gameID, artistID); err != nil {
		return game.Artist{}, notFound(err, "artist", artistID)
	}
	return a, nil
}

func (q queries) InsertArtist(ctx context.Context, a game.Artist) error {
	err := q.namedExec(ctx, `INSERT INTO artists (id, game_id, name, genre, mood, loyalty, popularity, weekly_fee)
		VALUES (:id, :game_id, :name, :genre, :mood, :loyalty, :popularity, :weekly_fee)`, a)
	return insertErr(err, "artist", a.ID)
}

const projectSelect = `SELECT id, game_id, artist_id, release_id, title, type, stage, start_turn, stage_started_turn,
	producer_tier, time_investment, song_count, songs_created, budget_per_song, total_cost, cost_paid,
	cities, revenue, streams FROM projects`

func (q queries) ListProjects(ctx context.Context, gameID string) ([]game.Project, error) {
	var out []game.Project
	err := sqlx.SelectContext(ctx, q.db, &out, projectSelect+` WHERE game_id = ? ORDER BY start_turn, id`, gameID)
	return out, err
}

func (q queries) GetProject(ctx context.Context, gameID, projectID string) (game.Project, error) {
	var p game.Project
	if err := sqlx.GetContext(ctx, q.db, &p, projectSelect+` WHERE game_id = ? AND id = ?`, gameID, projectID); err != nil {
		return game.Project{}, notFound(err, "project", projectID)
	}
	return p, nil
}

func (q queries) InsertProject(ctx context.Context, p game.Project) error {
	err := q.namedExec(ctx, `INSERT INTO projects (id, game_id, artist_id, release_id, title, type, stage,
		start_turn, stage_started_turn, producer_tier, time_investment, song_count, songs_created,
		budget_per_song, total_cost, cost_paid, cities, revenue, streams)
		VALUES (:id, :game_id, :artist_id, :release_id, :title, :type, :stage, :start_turn,
		:stage_started_turn, :producer_tier, :time_investment, :song_count, :songs_created,
		:budget_per_song, :total_cost, :cost_paid, :cities, :revenue, :streams)`, p)
	return insertErr(err, "project", p.ID)
}

func (q queries) UpdateProject(ctx context.Context, p game.Project) error {
	res, err := q.exec(ctx, `UPDATE projects SET release_id = ?, title = ?, stage = ?, stage_started_turn = ?,
		songs_created = ?, total_cost = ?, cost_paid = ?, revenue = ?, streams = ?
		WHERE game_id = ? AND id = ?`,
		p.ReleaseID, p.Title, p.Stage, p.StageStartedTurn, p.SongsCreated, p.TotalCost, p.CostPaid,
		p.Revenue, p.Streams, p.GameID, p.ID)
	return mustAffect(res, err, "project", p.ID)
}

const (
	songSelect = `SELECT id, game_id, artist_id, project_id, release_id, title, track_number, quality,
	production_budget, marketing_allocation, initial_streams, total_streams, total_revenue,
	last_turn_revenue, is_recorded, is_released, created_turn, released_turn FROM songs`
	songOrder = ` ORDER BY created_turn, project_id, track_number, id`
)

func (q queries) selectSongs(ctx context.Context, where string, args ...any) ([]game.Song, error) {
	var out []game.Song
	err := sqlx.SelectContext(ctx, q.db, &out, songSelect+` WHERE `+where, args...)
	return out, err
}

func (q queries) ListSongs(ctx context.Context, gameID string) ([]game.Song, error) {
	return q.selectSongs(ctx, `game_id = ?`+songOrder, gameID)
}

func (q queries) ListArtistSongs(ctx context.Context, gameID, artistID string) ([]game.Song, error) {
	return q.selectSongs(ctx, `game_id = ? AND artist_id = ?`+songOrder, gameID, artistID)
}

func (q queries) ListProjectSongs(ctx context.Context, gameID, projectID string) ([]game.Song, error) {
	return q.selectSongs(ctx, `game_id = ? AND project_id = ?`+songOrder, gameID, projectID)
}

func (q queries) ListReleaseSongs(ctx context.Context, gameID, releaseID string) ([]game.Song, error) {
	return q.selectSongs(ctx, `game_id = ? AND release_id = ? ORDER BY track_number, id`, gameID, releaseID)
}

func (q queries) GetSong(ctx context.Context, gameID, songID string) (game.Song, error) {
	var s game.Song
	if err := sqlx.GetContext(ctx, q.db, &s, songSelect+` WHERE game_id = ? AND id = ?`, gameID, songID); err != nil {
		return game.Song{}, notFound(err, "song", songID)
	}
	return s, nil
}

func (q queries) InsertSong(ctx context.Context, s game.Song) error {
	err := q.namedExec(ctx, `INSERT INTO songs (id, game_id, artist_id, project_id, release_id, title,
		track_number, quality, production_budget, marketing_allocation, initial_streams, total_streams,
		total_revenue, last_turn_revenue, is_recorded, is_released, created_turn, released_turn)
		VALUES (:id, :game_id, :artist_id, :project_id, :release_id, :title, :track_number, :quality,
		:production_budget, :marketing_allocation, :initial_streams, :total_streams, :total_revenue,
		:last_turn_revenue, :is_recorded, :is_released, :created_turn, :released_turn)`, s)
	return insertErr(err, "song", s.ID)
}

func (q queries) UpdateSong(ctx context.Context, s game.Song) error {
	res, err := q.exec(ctx, `UPDATE songs SET project_id = ?, release_id = ?, title = ?, track_number = ?,
		quality = ?, initial_streams = ?, total_streams = ?, total_revenue = ?, last_turn_revenue = ?,
		is_recorded = ?, is_released = ?, released_turn = ? WHERE game_id = ? AND id = ?`,
		s.ProjectID, s.ReleaseID, s.Title, s.TrackNumber, s.Quality, s.InitialStreams, s.TotalStreams,
		s.TotalRevenue, s.LastTurnRevenue, s.IsRecorded, s.IsReleased, s.ReleasedTurn, s.GameID, s.ID)
	return mustAffect(res, err, "song", s.ID)
}

func (q queries) RecordSongProduction(ctx context.Context, gameID, songID, projectID string, budget int64) error {
	res, err := q.exec(ctx, `UPDATE songs SET project_id = ?, production_budget = ? WHERE game_id = ? AND id = ?`,
		projectID, budget, gameID, songID)
	return mustAffect(res, err, "song", songID)
}

func (q queries) AddSongMarketing(ctx context.Context, gameID, songID string, amount int64) error {
	res, err := q.exec(ctx, `UPDATE songs SET marketing_allocation = marketing_allocation + ? WHERE game_id = ? AND id = ?`,
		amount, gameID, songID)
	return mustAffect(res, err, "song", songID)
}

// releaseRow flattens the optional lead single and the allocation tags. Its
// json tags name columns, like everything else passing through the mapper.
type releaseRow struct {
	ID                string             `json:"id"`
	GameID            string             `json:"game_id"`
	ArtistID          string             `json:"artist_id"`
	Title             string             `json:"title"`
	Type              game.ReleaseType   `json:"type"`
	Status            game.ReleaseStatus `json:"status"`
	ReleaseTurn       int                `json:"release_turn"`
	MarketingBudget   int64              `json:"marketing_budget"`
	HasLeadSingle     bool               `json:"has_lead_single"`
	LeadSongID        string             `json:"lead_song_id"`
	LeadOffsetTurns   int                `json:"lead_offset_turns"`
	LeadBudget        int64              `json:"lead_budget"`
	HasStoryBonus     bool               `json:"has_story_bonus"`
	BaseAllocated     bool               `json:"base_allocated"`
	LeadAllocated     bool               `json:"lead_allocated"`
	LeadSingleStreams int64              `json:"lead_single_streams"`
	Streams           int64              `json:"streams"`
	Revenue           int64              `json:"revenue"`
	PressPickups      int                `json:"press_pickups"`
}

func toReleaseRow(r game.Release) releaseRow {
	row := releaseRow{
		ID: r.ID, GameID: r.GameID, ArtistID: r.ArtistID, Title: r.Title, Type: r.Type, Status: r.Status,
		ReleaseTurn: r.ReleaseTurn, MarketingBudget: r.MarketingBudget, HasStoryBonus: r.HasStoryBonus,
		BaseAllocated:     r.Allocation(game.PhaseBase) == game.Allocated,
		LeadAllocated:     r.Allocation(game.PhaseLead) == game.Allocated,
		LeadSingleStreams: r.LeadSingleStreams, Streams: r.Streams, Revenue: r.Revenue, PressPickups: r.PressPickups,
	}
	if r.LeadSingle != nil {
		row.HasLeadSingle = true
		row.LeadSongID = r.LeadSingle.SongID
		row.LeadOffsetTurns = r.LeadSingle.OffsetTurns
		row.LeadBudget = r.LeadSingle.Budget
	}
	return row
}

func (row releaseRow) release() game.Release {
	r := game.Release{
		ID: row.ID, GameID: row.GameID, ArtistID: row.ArtistID, Title: row.Title, Type: row.Type, Status: row.Status,
		ReleaseTurn: row.ReleaseTurn, MarketingBudget: row.MarketingBudget, HasStoryBonus: row.HasStoryBonus,
		BaseAllocation: game.Unallocated, LeadAllocation: game.Unallocated,
		LeadSingleStreams: row.LeadSingleStreams, Streams: row.Streams, Revenue: row.Revenue, PressPickups: row.PressPickups,
	}
	if row.HasLeadSingle {
		r.LeadSingle = &game.LeadSingle{SongID: row.LeadSongID, OffsetTurns: row.LeadOffsetTurns, Budget: row.LeadBudget}
	}
	if row.BaseAllocated {
		r.BaseAllocation = game.Allocated
	}
	if row.LeadAllocated {
		r.LeadAllocation = game.Allocated
	}
	return r
}

const releaseSelect = `SELECT id, game_id, artist_id, title, type, status, release_turn, marketing_budget,
	has_lead_single, lead_song_id, lead_offset_turns, lead_budget, has_story_bonus, base_allocated,
	lead_allocated, lead_single_streams, streams, revenue, press_pickups FROM releases`

func (q queries) ListReleases(ctx context.Context, gameID string) ([]game.Release, error) {
	var rows []releaseRow
	if err := sqlx.SelectContext(ctx, q.db, &rows, releaseSelect+` WHERE game_id = ? ORDER BY release_turn, id`, gameID); err != nil {
		return nil, err
	}
	out := make([]game.Release, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.release())
	}
	return out, nil
}

func (q queries) GetRelease(ctx context.Context, gameID, releaseID string) (game.Release, error) {
	var row releaseRow
	if err := sqlx.GetContext(ctx, q.db, &row, releaseSelect+` WHERE game_id = ? AND id = ?`, gameID, releaseID); err != nil {
		return game.Release{}, notFound(err, "release", releaseID)
	}
	return row.release(), nil
}

func (q queries) InsertRelease(ctx context.Context, r game.Release) error {
	err := q.namedExec(ctx, `INSERT INTO releases (id, game_id, artist_id, title, type, status, release_turn,
		marketing_budget, has_lead_single, lead_song_id, lead_offset_turns, lead_budget, has_story_bonus,
		base_allocated, lead_allocated, lead_single_streams, streams, revenue, press_pickups)
		VALUES (:id, :game_id, :artist_id, :title, :type, :status, :release_turn, :marketing_budget,
		:has_lead_single, :lead_song_id, :lead_offset_turns, :lead_budget, :has_story_bonus,
		:base_allocated, :lead_allocated, :lead_single_streams, :streams, :revenue, :press_pickups)`, toReleaseRow(r))
	return insertErr(err, "release", r.ID)
}

func (q queries) UpdateRelease(ctx context.Context, r game.Release) error {
	row := toReleaseRow(r)
	res, err := q.exec(ctx, `UPDATE releases SET title = ?, status = ?, release_turn = ?, marketing_budget = ?,
		has_lead_single = ?, lead_song_id = ?, lead_offset_turns = ?, lead_budget = ?, has_story_bonus = ?,
		lead_single_streams = ?, streams = ?, revenue = ?, press_pickups = ? WHERE game_id = ? AND id = ?`,
		row.Title, row.Status, row.ReleaseTurn, row.MarketingBudget, row.HasLeadSingle, row.LeadSongID,
		row.LeadOffsetTurns, row.LeadBudget, row.HasStoryBonus, row.LeadSingleStreams, row.Streams,
		row.Revenue, row.PressPickups, row.GameID, row.ID)
	return mustAffect(res, err, "release", r.ID)
}

func (q queries) ClaimAllocation(ctx context.Context, gameID, releaseID string, phase game.AllocationPhase) (bool, error) {
	column := "base_allocated"
	if phase == game.PhaseLead {
		column = "lead_allocated"
	}
	res, err := q.exec(ctx, `UPDATE releases SET `+column+` = 1 WHERE game_id = ? AND id = ? AND `+column+` = 0`,
		gameID, releaseID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := q.GetRelease(ctx, gameID, releaseID); err != nil {
		return false, err
	}
	return false, nil
}

func (q queries) ListExecutives(ctx context.Context, gameID string) ([]game.Executive, error) {
	var out []game.Executive
	err := sqlx.SelectContext(ctx, q.db, &out, `SELECT id, game_id, role, mood, loyalty, last_active_turn
		FROM executives WHERE game_id = ? ORDER BY role, id`, gameID)
	return out, err
}

func (q queries) InsertExecutive(ctx context.Context, e game.Executive) error {
	err := q.namedExec(ctx, `INSERT INTO executives (id, game_id, role, mood, loyalty, last_active_turn)
		VALUES (:id, :game_id, :role, :mood, :loyalty, :last_active_turn)`, e)
	return insertErr(err, "executive", e.ID)
}
