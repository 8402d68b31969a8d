package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/balance"
	"labelsim/internal/game"
	"labelsim/internal/scenario"
	"labelsim/internal/store/memstore"
	"labelsim/internal/turn"
)

type collectSink struct {
	mu   sync.Mutex
	seen map[string]int
}

func (s *collectSink) Publish(_ context.Context, sum game.TurnSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[sum.GameID] = sum.Turn
	return nil
}

func TestTickAdvancesOnlyAutoAdvanceGames(t *testing.T) {
	ctx := context.Background()
	cfg, err := balance.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	st := memstore.New()

	for _, opts := range []scenario.Options{
		{ID: "auto-1", Seed: 1, AutoAdvance: true},
		{ID: "auto-2", Seed: 2, AutoAdvance: true},
		{ID: "manual", Seed: 3},
	} {
		_, err := scenario.Seed(ctx, st, cfg, opts)
		require.NoError(t, err)
	}

	sink := &collectSink{seen: map[string]int{}}
	w := &worker{store: st, turns: turn.New(st, cfg, logger), sinks: sink, batch: 10, log: logger}
	require.NoError(t, w.tick(ctx))
	require.NoError(t, w.tick(ctx))

	assert.Equal(t, map[string]int{"auto-1": 2, "auto-2": 2}, sink.seen)

	manual, err := st.GetGame(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, manual.Turn)
	auto, err := st.GetGame(ctx, "auto-1")
	require.NoError(t, err)
	assert.Equal(t, 3, auto.Turn)
}
