// Package store defines the persistence boundary of the engine. Every read
// and write is scoped to a game; the turn controller does all of its work
// through the Queries handed to WithinTx so a turn commits or rolls back as
// a unit.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"labelsim/internal/game"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Queries is the set of operations available both inside and outside a
// transaction. List methods return rows in a stable order.
type Queries interface {
	GetGame(ctx context.Context, gameID string) (game.GameState, error)
	InsertGame(ctx context.Context, g game.GameState) error
	UpdateGame(ctx context.Context, g game.GameState) error

	ListArtists(ctx context.Context, gameID string) ([]game.Artist, error)
	GetArtist(ctx context.Context, gameID, artistID string) (game.Artist, error)
	InsertArtist(ctx context.Context, a game.Artist) error

	// ListProjects orders by start turn, then id.
	ListProjects(ctx context.Context, gameID string) ([]game.Project, error)
	GetProject(ctx context.Context, gameID, projectID string) (game.Project, error)
	InsertProject(ctx context.Context, p game.Project) error
	UpdateProject(ctx context.Context, p game.Project) error

	// ListSongs orders by created turn, project, then track number.
	ListSongs(ctx context.Context, gameID string) ([]game.Song, error)
	ListArtistSongs(ctx context.Context, gameID, artistID string) ([]game.Song, error)
	ListProjectSongs(ctx context.Context, gameID, projectID string) ([]game.Song, error)
	// ListReleaseSongs orders by track number, then id.
	ListReleaseSongs(ctx context.Context, gameID, releaseID string) ([]game.Song, error)
	GetSong(ctx context.Context, gameID, songID string) (game.Song, error)
	InsertSong(ctx context.Context, s game.Song) error
	// UpdateSong writes performance, lifecycle and linkage fields. It never
	// touches ProductionBudget or MarketingAllocation.
	UpdateSong(ctx context.Context, s game.Song) error
	// RecordSongProduction sets the production budget and project linkage.
	RecordSongProduction(ctx context.Context, gameID, songID, projectID string, budget int64) error
	// AddSongMarketing increments the marketing allocation by amount.
	AddSongMarketing(ctx context.Context, gameID, songID string, amount int64) error

	// ListReleases orders by release turn, then id.
	ListReleases(ctx context.Context, gameID string) ([]game.Release, error)
	GetRelease(ctx context.Context, gameID, releaseID string) (game.Release, error)
	InsertRelease(ctx context.Context, r game.Release) error
	// UpdateRelease never writes the allocation flags; only ClaimAllocation
	// moves them.
	UpdateRelease(ctx context.Context, r game.Release) error
	// ClaimAllocation flips the phase's flag from Unallocated to Allocated.
	// claimed is false when the flag was already set.
	ClaimAllocation(ctx context.Context, gameID, releaseID string, phase game.AllocationPhase) (claimed bool, err error)

	ListExecutives(ctx context.Context, gameID string) ([]game.Executive, error)
	InsertExecutive(ctx context.Context, e game.Executive) error
}

type Store interface {
	Queries
	// WithinTx runs fn in one transaction. A non-nil error from fn rolls
	// everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
	// ListAutoAdvanceGames returns ids of running games flagged for
	// unattended advancement.
	ListAutoAdvanceGames(ctx context.Context, limit int) ([]string, error)
}

// IsTransient reports whether err is a storage failure that a whole-turn
// retry can resolve: Postgres serialization failures and deadlocks, and
// SQLite lock contention.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
