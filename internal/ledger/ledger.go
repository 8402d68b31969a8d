// Package ledger books production and marketing investment against songs and
// aggregates it back up for ROI reporting. Marketing allocation is
// exactly-once per release and phase: the allocation flag is claimed in the
// same transaction as the per-song writes, so a retried turn is a no-op.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"labelsim/internal/game"
	"labelsim/internal/store"
)

var (
	ErrEmptyRelease     = errors.New("release has no songs")
	ErrSongNotInRelease = errors.New("song is not part of release")
	ErrNegativeAmount   = errors.New("investment must be >= 0")
)

type SongAllocation struct {
	SongID      string `json:"song_id"`
	TrackNumber int    `json:"track_number"`
	Amount      int64  `json:"amount"`
}

// Allocation is the result of a marketing booking. Skipped means the phase
// had already been booked and nothing changed.
type Allocation struct {
	ReleaseID string               `json:"release_id"`
	Phase     game.AllocationPhase `json:"phase"`
	Total     int64                `json:"total"`
	Songs     []SongAllocation     `json:"songs,omitempty"`
	Skipped   bool                 `json:"skipped"`
}

type Ledger struct {
	store store.Store
	log   *slog.Logger
}

func New(s store.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: s, log: logger}
}

func (l *Ledger) RecordProductionInvestment(ctx context.Context, gameID, songID, projectID string, budget int64) error {
	return l.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		return l.RecordProductionInvestmentTx(ctx, q, gameID, songID, projectID, budget)
	})
}

// RecordProductionInvestmentTx attaches the production budget and project to
// a song. Each song is recorded once, when it is generated.
func (l *Ledger) RecordProductionInvestmentTx(ctx context.Context, q store.Queries, gameID, songID, projectID string, budget int64) error {
	if budget < 0 {
		return fmt.Errorf("song %s: %w", songID, ErrNegativeAmount)
	}
	if err := q.RecordSongProduction(ctx, gameID, songID, projectID, budget); err != nil {
		return fmt.Errorf("record production for song %s: %w", songID, err)
	}
	return nil
}

func (l *Ledger) AllocateMarketingInvestment(ctx context.Context, gameID, releaseID string, total int64) (Allocation, error) {
	var out Allocation
	err := l.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		var err error
		out, err = l.AllocateMarketingInvestmentTx(ctx, q, gameID, releaseID, total)
		return err
	})
	if err != nil {
		return Allocation{}, err
	}
	return out, nil
}

// AllocateMarketingInvestmentTx splits total evenly across the release's
// songs in track order. The remainder goes one dollar at a time to the first
// songs, so 10000 over three tracks books 3334/3333/3333.
func (l *Ledger) AllocateMarketingInvestmentTx(ctx context.Context, q store.Queries, gameID, releaseID string, total int64) (Allocation, error) {
	out := Allocation{ReleaseID: releaseID, Phase: game.PhaseBase, Total: total}
	if total < 0 {
		return out, fmt.Errorf("release %s: %w", releaseID, ErrNegativeAmount)
	}
	release, err := q.GetRelease(ctx, gameID, releaseID)
	if err != nil {
		return out, err
	}
	if release.Allocation(game.PhaseBase) == game.Allocated {
		out.Skipped = true
		return out, nil
	}
	songs, err := q.ListReleaseSongs(ctx, gameID, releaseID)
	if err != nil {
		return out, err
	}
	if len(songs) == 0 {
		return out, fmt.Errorf("release %s: %w", releaseID, ErrEmptyRelease)
	}

	claimed, err := q.ClaimAllocation(ctx, gameID, releaseID, game.PhaseBase)
	if err != nil {
		return out, err
	}
	if !claimed {
		out.Skipped = true
		return out, nil
	}

	out.Songs = Split(total, songs)
	for _, a := range out.Songs {
		if a.Amount == 0 {
			continue
		}
		if err := q.AddSongMarketing(ctx, gameID, a.SongID, a.Amount); err != nil {
			return out, fmt.Errorf("allocate marketing to song %s: %w", a.SongID, err)
		}
	}
	l.log.Debug("marketing allocated", "game_id", gameID, "release_id", releaseID, "total", total, "songs", len(songs))
	return out, nil
}

// Split divides total across songs, which must already be in track order.
func Split(total int64, songs []game.Song) []SongAllocation {
	if len(songs) == 0 {
		return nil
	}
	n := int64(len(songs))
	share, remainder := total/n, total%n
	out := make([]SongAllocation, len(songs))
	for i, s := range songs {
		amount := share
		if int64(i) < remainder {
			amount++
		}
		out[i] = SongAllocation{SongID: s.ID, TrackNumber: s.TrackNumber, Amount: amount}
	}
	return out
}

func (l *Ledger) AllocateMarketingToSong(ctx context.Context, gameID, releaseID, songID string, amount int64) (Allocation, error) {
	var out Allocation
	err := l.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		var err error
		out, err = l.AllocateMarketingToSongTx(ctx, q, gameID, releaseID, songID, amount)
		return err
	})
	if err != nil {
		return Allocation{}, err
	}
	return out, nil
}

// AllocateMarketingToSongTx books the lead-single budget against one song of
// the release, guarded by the release's lead flag.
func (l *Ledger) AllocateMarketingToSongTx(ctx context.Context, q store.Queries, gameID, releaseID, songID string, amount int64) (Allocation, error) {
	out := Allocation{ReleaseID: releaseID, Phase: game.PhaseLead, Total: amount}
	if amount < 0 {
		return out, fmt.Errorf("release %s: %w", releaseID, ErrNegativeAmount)
	}
	release, err := q.GetRelease(ctx, gameID, releaseID)
	if err != nil {
		return out, err
	}
	if release.Allocation(game.PhaseLead) == game.Allocated {
		out.Skipped = true
		return out, nil
	}
	song, err := q.GetSong(ctx, gameID, songID)
	if err != nil {
		return out, err
	}
	if song.ReleaseID != releaseID {
		return out, fmt.Errorf("song %s, release %s: %w", songID, releaseID, ErrSongNotInRelease)
	}

	claimed, err := q.ClaimAllocation(ctx, gameID, releaseID, game.PhaseLead)
	if err != nil {
		return out, err
	}
	if !claimed {
		out.Skipped = true
		return out, nil
	}
	if amount > 0 {
		if err := q.AddSongMarketing(ctx, gameID, songID, amount); err != nil {
			return out, fmt.Errorf("allocate lead marketing to song %s: %w", songID, err)
		}
	}
	out.Songs = []SongAllocation{{SongID: songID, TrackNumber: song.TrackNumber, Amount: amount}}
	return out, nil
}
