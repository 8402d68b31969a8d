package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"labelsim/internal/balance"
	cl "labelsim/internal/cli"
	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/payroll"
	"labelsim/internal/scenario"
	"labelsim/internal/store/sqlitestore"
	"labelsim/internal/turn"
)

// backend is where a game lives: behind the API, or in a local SQLite file
// played by the engine in-process.
type backend interface {
	CreateGame(ctx context.Context, in cl.NewGameRequest) (game.GameState, error)
	Game(ctx context.Context, gameID string) (scenario.View, error)
	AdvanceTurn(ctx context.Context, gameID string, expectedTurn int) (game.TurnSummary, error)
	PlanProject(ctx context.Context, gameID string, in scenario.ProjectPlan) (game.Project, error)
	PlanRelease(ctx context.Context, gameID string, in scenario.ReleasePlan) (game.Release, error)
	BookMarketing(ctx context.Context, gameID, releaseID string) (ledger.Allocation, error)
	Payroll(ctx context.Context, gameID string) (payroll.Payroll, error)
	ROI(ctx context.Context, gameID string, entity game.EntityType, entityID string, fresh bool) (ledger.Metrics, error)
	Close() error
}

type remote struct {
	*cl.Client
}

func (remote) Close() error { return nil }

type local struct {
	cfg     *balance.Config
	store   *sqlitestore.Store
	turns   *turn.Controller
	payroll *payroll.Calculator
}

func openLocal(path, balanceFile string) (*local, error) {
	cfg, err := balance.LoadFile(balanceFile)
	if err != nil {
		return nil, err
	}
	st, err := sqlitestore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Engine logs stay out of the terminal.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &local{
		cfg:     cfg,
		store:   st,
		turns:   turn.New(st, cfg, logger),
		payroll: payroll.New(cfg, logger),
	}, nil
}

func (l *local) CreateGame(ctx context.Context, in cl.NewGameRequest) (game.GameState, error) {
	seed := time.Now().UnixNano()
	if in.Seed != nil {
		seed = *in.Seed
	}
	return scenario.Seed(ctx, l.store, l.cfg, scenario.Options{ID: in.ID, Seed: seed, AutoAdvance: in.AutoAdvance})
}

func (l *local) Game(ctx context.Context, gameID string) (scenario.View, error) {
	return scenario.LoadView(ctx, l.store, gameID)
}

func (l *local) AdvanceTurn(ctx context.Context, gameID string, expectedTurn int) (game.TurnSummary, error) {
	return l.turns.AdvanceWithRetry(ctx, gameID, expectedTurn)
}

func (l *local) PlanProject(ctx context.Context, gameID string, in scenario.ProjectPlan) (game.Project, error) {
	return scenario.PlanProject(ctx, l.store, l.cfg, gameID, in)
}

func (l *local) PlanRelease(ctx context.Context, gameID string, in scenario.ReleasePlan) (game.Release, error) {
	return scenario.PlanRelease(ctx, l.store, l.cfg, gameID, in)
}

func (l *local) BookMarketing(ctx context.Context, gameID, releaseID string) (ledger.Allocation, error) {
	return scenario.BookMarketing(ctx, l.store, l.turns.Ledger(), gameID, releaseID)
}

func (l *local) Payroll(ctx context.Context, gameID string) (payroll.Payroll, error) {
	if _, err := l.store.GetGame(ctx, gameID); err != nil {
		return payroll.Payroll{}, err
	}
	return l.payroll.Calculate(ctx, l.store, gameID), nil
}

// ROI always reads fresh; a one-shot process has nothing to cache.
func (l *local) ROI(ctx context.Context, gameID string, entity game.EntityType, entityID string, _ bool) (ledger.Metrics, error) {
	return l.turns.Ledger().Metrics(ctx, entity, gameID, entityID)
}

func (l *local) Close() error {
	return l.store.Close()
}
