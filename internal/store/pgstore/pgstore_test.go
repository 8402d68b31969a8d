package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"labelsim/internal/db"
	"labelsim/internal/store"
	"labelsim/internal/store/storetest"
)

// TestContract runs against a live database when LABELSIM_TEST_DATABASE_URL
// is set. Every table in the label schema is truncated between cases.
func TestContract(t *testing.T) {
	url := os.Getenv("LABELSIM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LABELSIM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool, nil)
	require.NoError(t, s.Migrate(ctx))

	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := pool.Exec(ctx, `TRUNCATE label.songs, label.releases, label.projects, label.executives, label.artists, label.games`)
		require.NoError(t, err)
		return s
	})
}
