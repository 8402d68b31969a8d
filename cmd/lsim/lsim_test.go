package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cl "labelsim/internal/cli"
	"labelsim/internal/game"
)

func TestFormatMoney(t *testing.T) {
	cases := map[int64]string{
		0:       "$0",
		999:     "$999",
		1000:    "$1,000",
		75000:   "$75,000",
		1234567: "$1,234,567",
		-2500:   "-$2,500",
		-100000: "-$100,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(in), "%d", in)
	}
	assert.Equal(t, "+$1,200", signedMoney(1200))
	assert.Equal(t, "-$5", signedMoney(-5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Tides", truncate("  Tides ", 10))
	assert.Equal(t, "Midnight...", truncate("Midnight Parade", 11))
	assert.Equal(t, "Mid", truncate("Midnight", 3))
}

func TestLocalBackendPlaysAGame(t *testing.T) {
	ctx := context.Background()
	b, err := openLocal(filepath.Join(t.TempDir(), "label.db"), "")
	require.NoError(t, err)
	defer b.Close()

	seed := int64(9)
	g, err := b.CreateGame(ctx, cl.NewGameRequest{ID: "local-1", Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, "local-1", g.ID)

	v, err := b.Game(ctx, g.ID)
	require.NoError(t, err)
	require.NotEmpty(t, v.Artists)

	_, err = b.AdvanceTurn(ctx, g.ID, 2)
	assert.ErrorIs(t, err, game.ErrTurnConflict)

	sum, err := b.AdvanceTurn(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Turn)

	p, err := b.Payroll(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2200), p.Total)

	m, err := b.ROI(ctx, g.ID, game.EntityArtist, v.Artists[0].ID, false)
	require.NoError(t, err)
	assert.Equal(t, v.Artists[0].ID, m.EntityID)

	_, err = b.Payroll(ctx, "nope")
	assert.Error(t, err)
}
