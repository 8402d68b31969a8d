package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/payroll"
	"labelsim/internal/scenario"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type NewGameRequest struct {
	ID          string `json:"id,omitempty"`
	Seed        *int64 `json:"seed,omitempty"`
	AutoAdvance bool   `json:"auto_advance,omitempty"`
}

func (c *Client) CreateGame(ctx context.Context, in NewGameRequest) (game.GameState, error) {
	var out game.GameState
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", in, &out)
	return out, err
}

func (c *Client) Game(ctx context.Context, gameID string) (scenario.View, error) {
	var out scenario.View
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID), nil, &out)
	return out, err
}

// AdvanceTurn plays expectedTurn; zero plays whatever turn the game is on.
func (c *Client) AdvanceTurn(ctx context.Context, gameID string, expectedTurn int) (game.TurnSummary, error) {
	var in any
	if expectedTurn > 0 {
		in = map[string]int{"expected_turn": expectedTurn}
	}
	var out game.TurnSummary
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/turns", in, &out)
	return out, err
}

func (c *Client) PlanProject(ctx context.Context, gameID string, in scenario.ProjectPlan) (game.Project, error) {
	var out game.Project
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/projects", in, &out)
	return out, err
}

func (c *Client) PlanRelease(ctx context.Context, gameID string, in scenario.ReleasePlan) (game.Release, error) {
	var out game.Release
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/releases", in, &out)
	return out, err
}

func (c *Client) BookMarketing(ctx context.Context, gameID, releaseID string) (ledger.Allocation, error) {
	var out ledger.Allocation
	path := fmt.Sprintf("/v1/games/%s/releases/%s/allocate", url.PathEscape(gameID), url.PathEscape(releaseID))
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) Payroll(ctx context.Context, gameID string) (payroll.Payroll, error) {
	var out payroll.Payroll
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID)+"/payroll", nil, &out)
	return out, err
}

func (c *Client) ROI(ctx context.Context, gameID string, entity game.EntityType, entityID string, fresh bool) (ledger.Metrics, error) {
	path := fmt.Sprintf("/v1/games/%s/roi/%s/%s", url.PathEscape(gameID), entity, url.PathEscape(entityID))
	if fresh {
		path += "?fresh=1"
	}
	var out ledger.Metrics
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
