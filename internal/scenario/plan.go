package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"labelsim/internal/balance"
	"labelsim/internal/economy"
	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/store"
)

type ProjectPlan struct {
	Title          string           `json:"title"`
	ArtistID       string           `json:"artist_id"`
	Type           game.ProjectType `json:"type"`
	ProducerTier   string           `json:"producer_tier"`
	TimeInvestment string           `json:"time_investment"`
	SongCount      int              `json:"song_count"`
	BudgetPerSong  int64            `json:"budget_per_song"`
	Cities         int              `json:"cities,omitempty"`
}

// ReleasePlan books a release. Songs reach it through a recording project:
// either a new one described by Project or an existing ProjectID that has
// not recorded anything yet.
type ReleasePlan struct {
	Title           string           `json:"title"`
	ArtistID        string           `json:"artist_id"`
	Type            game.ReleaseType `json:"type"`
	ReleaseTurn     int              `json:"release_turn"`
	MarketingBudget int64            `json:"marketing_budget"`
	LeadSingle      *game.LeadSingle `json:"lead_single,omitempty"`
	HasStoryBonus   bool             `json:"has_story_bonus"`
	ProjectID       string           `json:"project_id,omitempty"`
	Project         *ProjectPlan     `json:"project,omitempty"`
}

// PlanProject starts a project on the game's current turn. It takes one of
// the turn's focus slots.
func PlanProject(ctx context.Context, s store.Store, cfg *balance.Config, gameID string, plan ProjectPlan) (game.Project, error) {
	var out game.Project
	err := withGame(ctx, s, gameID, func(ctx context.Context, q store.Queries, g *game.GameState) error {
		if err := takeFocusSlot(g); err != nil {
			return err
		}
		p, err := planProject(ctx, q, cfg, g, plan, "")
		out = p
		return err
	})
	return out, err
}

// PlanRelease books a release and, when asked, the project that records it.
// A new project takes a focus slot.
func PlanRelease(ctx context.Context, s store.Store, cfg *balance.Config, gameID string, plan ReleasePlan) (game.Release, error) {
	var out game.Release
	err := withGame(ctx, s, gameID, func(ctx context.Context, q store.Queries, g *game.GameState) error {
		if plan.Project != nil {
			if err := takeFocusSlot(g); err != nil {
				return err
			}
		}
		r, err := planRelease(ctx, q, cfg, g, plan)
		out = r
		return err
	})
	return out, err
}

func withGame(ctx context.Context, s store.Store, gameID string, fn func(ctx context.Context, q store.Queries, g *game.GameState) error) error {
	return s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
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
		before := g
		if err := fn(ctx, q, &g); err != nil {
			return err
		}
		if g == before {
			return nil
		}
		return q.UpdateGame(ctx, g)
	})
}

func takeFocusSlot(g *game.GameState) error {
	if g.UsedFocusSlots >= g.FocusSlots {
		return fmt.Errorf("%w: %d of %d used", game.ErrFocusSlotsFull, g.UsedFocusSlots, g.FocusSlots)
	}
	g.UsedFocusSlots++
	return nil
}

func planProject(ctx context.Context, q store.Queries, cfg *balance.Config, g *game.GameState, plan ProjectPlan, releaseID string) (game.Project, error) {
	p := game.Project{
		GameID:           g.ID,
		ArtistID:         strings.TrimSpace(plan.ArtistID),
		ReleaseID:        releaseID,
		Title:            strings.TrimSpace(plan.Title),
		Type:             plan.Type,
		Stage:            game.StagePlanning,
		StartTurn:        g.Turn,
		StageStartedTurn: g.Turn,
		ProducerTier:     plan.ProducerTier,
		TimeInvestment:   plan.TimeInvestment,
		SongCount:        plan.SongCount,
		BudgetPerSong:    plan.BudgetPerSong,
		Cities:           plan.Cities,
	}
	if p.Type == game.ProjectTour {
		p.SongCount, p.BudgetPerSong, p.ProducerTier, p.TimeInvestment = 0, 0, "", ""
	}
	if err := p.Validate(); err != nil {
		return game.Project{}, err
	}
	if _, err := q.GetArtist(ctx, g.ID, p.ArtistID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return game.Project{}, fmt.Errorf("%w: unknown artist %q", game.ErrInvalidProject, p.ArtistID)
		}
		return game.Project{}, err
	}
	if p.GeneratesSongs() {
		if err := checkProduction(cfg, g, p); err != nil {
			return game.Project{}, err
		}
	}
	cost, err := economy.ProjectCost(cfg, p)
	if err != nil {
		return game.Project{}, fmt.Errorf("%w: %v", game.ErrInvalidProject, err)
	}
	p.TotalCost = cost

	existing, err := q.ListProjects(ctx, g.ID)
	if err != nil {
		return game.Project{}, err
	}
	p.ID = game.ChildID(g.ID, "project", len(existing)+1)
	if err := q.InsertProject(ctx, p); err != nil {
		return game.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func checkProduction(cfg *balance.Config, g *game.GameState, p game.Project) error {
	producer, err := cfg.Producer(p.ProducerTier)
	if err != nil {
		return fmt.Errorf("%w: %v", game.ErrInvalidProject, err)
	}
	if producer.UnlockReputation > g.Reputation {
		return fmt.Errorf("%w: %s needs reputation %d", game.ErrProducerLocked, p.ProducerTier, producer.UnlockReputation)
	}
	if _, err := cfg.Time(p.TimeInvestment); err != nil {
		return fmt.Errorf("%w: %v", game.ErrInvalidProject, err)
	}
	return nil
}

func planRelease(ctx context.Context, q store.Queries, cfg *balance.Config, g *game.GameState, plan ReleasePlan) (game.Release, error) {
	r := game.Release{
		GameID:          g.ID,
		ArtistID:        strings.TrimSpace(plan.ArtistID),
		Title:           strings.TrimSpace(plan.Title),
		Type:            plan.Type,
		Status:          game.ReleasePlanned,
		ReleaseTurn:     plan.ReleaseTurn,
		MarketingBudget: plan.MarketingBudget,
		LeadSingle:      plan.LeadSingle,
		HasStoryBonus:   plan.HasStoryBonus,
		BaseAllocation:  game.Unallocated,
		LeadAllocation:  game.Unallocated,
	}
	if err := r.Validate(); err != nil {
		return game.Release{}, err
	}
	if r.ReleaseTurn <= g.Turn {
		return game.Release{}, fmt.Errorf("%w: release turn %d is not after turn %d", game.ErrInvalidRelease, r.ReleaseTurn, g.Turn)
	}
	if r.LeadSingle != nil && r.LeadSingleTurn() < g.Turn {
		return game.Release{}, fmt.Errorf("%w: lead single would drop on past turn %d", game.ErrInvalidRelease, r.LeadSingleTurn())
	}
	if plan.Project != nil && plan.ProjectID != "" {
		return game.Release{}, fmt.Errorf("%w: give a new project or an existing one, not both", game.ErrInvalidRelease)
	}
	if _, err := q.GetArtist(ctx, g.ID, r.ArtistID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return game.Release{}, fmt.Errorf("%w: unknown artist %q", game.ErrInvalidRelease, r.ArtistID)
		}
		return game.Release{}, err
	}

	existing, err := q.ListReleases(ctx, g.ID)
	if err != nil {
		return game.Release{}, err
	}
	r.ID = game.ChildID(g.ID, "release", len(existing)+1)
	if err := q.InsertRelease(ctx, r); err != nil {
		return game.Release{}, fmt.Errorf("insert release: %w", err)
	}

	switch {
	case plan.Project != nil:
		pp := *plan.Project
		if pp.Title == "" {
			pp.Title = r.Title
		}
		if pp.ArtistID == "" {
			pp.ArtistID = r.ArtistID
		}
		if pp.Type == game.ProjectTour {
			return game.Release{}, fmt.Errorf("%w: a tour cannot feed a release", game.ErrInvalidRelease)
		}
		if _, err := planProject(ctx, q, cfg, g, pp, r.ID); err != nil {
			return game.Release{}, err
		}
	case plan.ProjectID != "":
		if err := attachProject(ctx, q, g.ID, plan.ProjectID, r.ID); err != nil {
			return game.Release{}, err
		}
	}
	return r, nil
}

func attachProject(ctx context.Context, q store.Queries, gameID, projectID, releaseID string) error {
	p, err := q.GetProject(ctx, gameID, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: unknown project %q", game.ErrInvalidRelease, projectID)
		}
		return err
	}
	switch {
	case !p.GeneratesSongs():
		return fmt.Errorf("%w: a tour cannot feed a release", game.ErrInvalidRelease)
	case p.ReleaseID != "":
		return fmt.Errorf("%w: project already feeds release %s", game.ErrInvalidRelease, p.ReleaseID)
	case p.SongsCreated > 0:
		return fmt.Errorf("%w: project has already recorded songs", game.ErrInvalidRelease)
	}
	p.ReleaseID = releaseID
	return q.UpdateProject(ctx, p)
}

// requireRecorded fails while any project feeding the release still has
// songs to record, since an early split would leave later tracks without a
// share.
func requireRecorded(ctx context.Context, q store.Queries, gameID, releaseID string) error {
	projects, err := q.ListProjects(ctx, gameID)
	if err != nil {
		return err
	}
	feeding := 0
	for _, p := range projects {
		if p.ReleaseID != releaseID || !p.GeneratesSongs() {
			continue
		}
		feeding++
		if p.SongsCreated < p.SongCount {
			return fmt.Errorf("%w: %s has recorded %d of %d songs", game.ErrInvalidRelease, p.Title, p.SongsCreated, p.SongCount)
		}
	}
	if feeding == 0 {
		return fmt.Errorf("%w: no recording project attached", game.ErrInvalidRelease)
	}
	return nil
}

// BookMarketing allocates a planned release's marketing budget ahead of its
// release turn and charges it immediately. The turn that ships the release
// then finds the phase booked and does not charge again. Booking is refused
// until every song of the release is recorded.
func BookMarketing(ctx context.Context, s store.Store, l *ledger.Ledger, gameID, releaseID string) (ledger.Allocation, error) {
	var out ledger.Allocation
	err := withGame(ctx, s, gameID, func(ctx context.Context, q store.Queries, g *game.GameState) error {
		r, err := q.GetRelease(ctx, gameID, releaseID)
		if err != nil {
			return err
		}
		if r.Status != game.ReleasePlanned {
			return fmt.Errorf("%w: release is already %s", game.ErrInvalidRelease, r.Status)
		}
		if err := requireRecorded(ctx, q, gameID, releaseID); err != nil {
			return err
		}
		alloc, err := l.AllocateMarketingInvestmentTx(ctx, q, gameID, releaseID, r.MarketingBudget)
		if err != nil {
			return err
		}
		if !alloc.Skipped {
			g.Money -= r.MarketingBudget
		}
		out = alloc
		return nil
	})
	return out, err
}
