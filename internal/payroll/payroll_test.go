package payroll

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/balance"
	"labelsim/internal/game"
)

type fakeExecs struct {
	list []game.Executive
	err  error
}

func (f fakeExecs) ListExecutives(context.Context, string) ([]game.Executive, error) {
	return f.list, f.err
}

func newCalculator(t *testing.T, logs *bytes.Buffer) *Calculator {
	t.Helper()
	cfg, err := balance.Default()
	require.NoError(t, err)
	return New(cfg, slog.New(slog.NewTextHandler(logs, nil)))
}

func TestCalculateSumsKnownRoles(t *testing.T) {
	var logs bytes.Buffer
	c := newCalculator(t, &logs)

	got := c.Calculate(context.Background(), fakeExecs{list: []game.Executive{
		{ID: "e1", Role: "head_of_ar"},
		{ID: "e2", Role: "cmo"},
	}}, "g1")

	assert.Equal(t, int64(2200), got.Total)
	require.Len(t, got.Breakdown, 2)
	assert.True(t, got.Breakdown[0].Resolved)
	assert.Empty(t, logs.String())
}

func TestUnknownRoleCostsNothing(t *testing.T) {
	var logs bytes.Buffer
	c := newCalculator(t, &logs)

	got := c.Calculate(context.Background(), fakeExecs{list: []game.Executive{
		{ID: "e1", Role: "head_of_ar"},
		{ID: "e2", Role: "chief_vibes_officer"},
		{ID: "e3", Role: "cco"},
	}}, "g1")

	assert.Equal(t, int64(1200+900), got.Total)
	require.Len(t, got.Breakdown, 3)
	assert.Zero(t, got.Breakdown[1].Salary)
	assert.False(t, got.Breakdown[1].Resolved)
	assert.Contains(t, logs.String(), "chief_vibes_officer")
}

func TestStorageFailureDegradesToEmpty(t *testing.T) {
	var logs bytes.Buffer
	c := newCalculator(t, &logs)

	got := c.Calculate(context.Background(), fakeExecs{err: errors.New("connection reset")}, "g1")
	assert.Zero(t, got.Total)
	assert.Empty(t, got.Breakdown)
	assert.Contains(t, logs.String(), "connection reset")
}

func TestNoExecutives(t *testing.T) {
	var logs bytes.Buffer
	got := newCalculator(t, &logs).Calculate(context.Background(), fakeExecs{}, "g1")
	assert.Zero(t, got.Total)
	assert.NotNil(t, got.Breakdown)
}
