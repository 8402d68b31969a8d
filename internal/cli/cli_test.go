package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/game"
)

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	orig := Dir
	Dir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { Dir = orig })

	_, err := LoadSession()
	require.Error(t, err)

	require.NoError(t, SaveSession(Session{GameID: "g1", Local: true}))
	s, err := LoadSession()
	require.NoError(t, err)
	assert.Equal(t, Session{GameID: "g1", Local: true}, s)

	require.NoError(t, ClearSession())
	require.NoError(t, ClearSession())
	_, err = LoadSession()
	require.Error(t, err)
}

func TestAdvanceTurnSendsExpectedTurn(t *testing.T) {
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/games/g1/turns", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"game_id":"g1","turn":3,"money_after":1000}`))
	}))
	defer ts.Close()

	sum, err := NewClient(ts.URL+"/").AdvanceTurn(context.Background(), "g1", 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"expected_turn":3}`, gotBody)
	assert.Equal(t, 3, sum.Turn)
	assert.Equal(t, int64(1000), sum.MoneyAfter)
}

func TestAPIErrorsCarryStatusAndMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"game is not on the expected turn"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).ROI(context.Background(), "g1", game.EntityArtist, "a1", true)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "game is not on the expected turn", apiErr.Message)
}
