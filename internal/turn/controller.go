// Package turn advances a game by one turn. Every step runs inside a single
// storage transaction against an explicit per-turn state; nothing is
// committed unless all of them succeed.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"labelsim/internal/balance"
	"labelsim/internal/economy"
	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/payroll"
	"labelsim/internal/store"
)

const tracerName = "labelsim/internal/turn"

type Controller struct {
	store   store.Store
	cfg     *balance.Config
	ledger  *ledger.Ledger
	payroll *payroll.Calculator
	log     *slog.Logger
	tracer  trace.Tracer
}

func New(s store.Store, cfg *balance.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:   s,
		cfg:     cfg,
		ledger:  ledger.New(s, logger),
		payroll: payroll.New(cfg, logger),
		log:     logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Ledger exposes the controller's ledger for callers booking investment
// outside of a turn.
func (c *Controller) Ledger() *ledger.Ledger {
	return c.ledger
}

// AdvanceTurn plays the game's current turn.
func (c *Controller) AdvanceTurn(ctx context.Context, gameID string) (game.TurnSummary, error) {
	return c.AdvanceFrom(ctx, gameID, 0)
}

// AdvanceFrom plays the current turn only if it equals expectedTurn, which
// makes a resubmitted request harmless. Zero skips the check.
func (c *Controller) AdvanceFrom(ctx context.Context, gameID string, expectedTurn int) (game.TurnSummary, error) {
	ctx, span := c.tracer.Start(ctx, "turn.advance", trace.WithAttributes(attribute.String("game.id", gameID)))
	defer span.End()

	var summary game.TurnSummary
	err := c.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		g, err := q.GetGame(ctx, gameID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return game.ErrGameNotFound
			}
			return err
		}
		if g.CampaignCompleted {
			return game.ErrCampaignComplete
		}
		if expectedTurn > 0 && g.Turn != expectedTurn {
			return fmt.Errorf("%w: at turn %d, expected %d", game.ErrTurnConflict, g.Turn, expectedTurn)
		}
		span.SetAttributes(attribute.Int("game.turn", g.Turn))

		st := c.newState(q, g)
		for _, step := range c.steps() {
			if err := c.runStep(ctx, step, st); err != nil {
				return fmt.Errorf("turn %d %s: %w", g.Turn, step.name, err)
			}
		}
		summary = st.summary
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return game.TurnSummary{}, err
	}

	c.log.Info("turn advanced",
		"game_id", gameID,
		"turn", summary.Turn,
		"revenue", summary.Revenue,
		"expenses", summary.Expenses,
		"money_after", summary.MoneyAfter,
		"reputation_gain", summary.ReputationGain,
	)
	return summary, nil
}

type step struct {
	name string
	run  func(ctx context.Context, st *state) error
}

// steps is the fixed turn order. Later steps read what earlier ones wrote:
// main releases use the lead single's streams, press reads what shipped.
func (c *Controller) steps() []step {
	return []step{
		{"projects", c.advanceProjects},
		{"recording", c.recordSongs},
		{"lead_singles", c.releaseLeadSingles},
		{"releases", c.releaseMain},
		{"decay", c.applyDecay},
		{"operations", c.chargeOperations},
		{"press", c.rollPress},
		{"access", c.updateAccess},
		{"commit", c.commit},
	}
}

func (c *Controller) runStep(ctx context.Context, s step, st *state) error {
	ctx, span := c.tracer.Start(ctx, "turn."+s.name)
	defer span.End()
	if err := s.run(ctx, st); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// AdvanceWithRetry retries the whole turn on transient storage failures with
// exponential backoff.
func (c *Controller) AdvanceWithRetry(ctx context.Context, gameID string, expectedTurn int) (game.TurnSummary, error) {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		summary, err := c.AdvanceFrom(ctx, gameID, expectedTurn)
		if err == nil {
			return summary, nil
		}
		if !store.IsTransient(err) {
			return game.TurnSummary{}, err
		}
		c.log.Warn("turn conflicted, retrying", "game_id", gameID, "attempt", attempt+1, "err", err)
		if attempt == maxAttempts-1 {
			break
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return game.TurnSummary{}, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return game.TurnSummary{}, game.ErrTxConflict
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// state carries everything one turn reads and accumulates. Only commit
// writes the game row back.
type state struct {
	q       store.Queries
	game    game.GameState
	turn    int
	calc    *economy.Calculator
	summary game.TurnSummary
	artists map[string]game.Artist
	shipped []shipment
	repGain int
}

// shipment is a release (or its lead single) that went out this turn and is
// eligible for press.
type shipment struct {
	releaseID  string
	title      string
	quality    int
	spend      int64
	storyBonus bool
}

func (c *Controller) newState(q store.Queries, g game.GameState) *state {
	return &state{
		q:    q,
		game: g,
		turn: g.Turn,
		calc: economy.NewCalculator(c.cfg, economy.NewTurnRNG(g.Seed, g.Turn)),
		summary: game.TurnSummary{
			GameID:         g.ID,
			Turn:           g.Turn,
			BalanceVersion: c.cfg.Version,
			Changes:        []game.ChangeEvent{},
		},
	}
}

func (st *state) artist(ctx context.Context, id string) (game.Artist, error) {
	if st.artists == nil {
		list, err := st.q.ListArtists(ctx, st.game.ID)
		if err != nil {
			return game.Artist{}, err
		}
		st.artists = make(map[string]game.Artist, len(list))
		for _, a := range list {
			st.artists[a.ID] = a
		}
	}
	a, ok := st.artists[id]
	if !ok {
		return game.Artist{}, fmt.Errorf("artist %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}
