package ledger

import (
	"context"
	"fmt"

	"labelsim/internal/game"
)

// Metrics aggregates investment and return for one artist, project or
// release. ROI is nil when nothing has been invested.
type Metrics struct {
	EntityType           game.EntityType `json:"entity_type"`
	EntityID             string          `json:"entity_id"`
	GameID               string          `json:"game_id"`
	Songs                int             `json:"songs"`
	ProductionInvestment int64           `json:"production_investment"`
	MarketingInvestment  int64           `json:"marketing_investment"`
	TotalInvestment      int64           `json:"total_investment"`
	Revenue              int64           `json:"revenue"`
	Streams              int64           `json:"streams"`
	ROI                  *float64        `json:"roi"`
}

func (m *Metrics) addSongs(songs []game.Song) {
	for _, s := range songs {
		m.Songs++
		m.ProductionInvestment += s.ProductionBudget
		m.MarketingInvestment += s.MarketingAllocation
		m.Revenue += s.TotalRevenue
		m.Streams += s.TotalStreams
	}
}

func (m *Metrics) finish() {
	m.TotalInvestment = m.ProductionInvestment + m.MarketingInvestment
	if roi, ok := game.ROIPercentage(m.Revenue, m.TotalInvestment); ok {
		m.ROI = &roi
	}
}

// Metrics dispatches on entity type.
func (l *Ledger) Metrics(ctx context.Context, entity game.EntityType, gameID, entityID string) (Metrics, error) {
	switch entity {
	case game.EntityArtist:
		return l.ArtistMetrics(ctx, gameID, entityID)
	case game.EntityProject:
		return l.ProjectMetrics(ctx, gameID, entityID)
	case game.EntityRelease:
		return l.ReleaseMetrics(ctx, gameID, entityID)
	default:
		return Metrics{}, fmt.Errorf("%w: %q", game.ErrInvalidEntityType, entity)
	}
}

func (l *Ledger) ArtistMetrics(ctx context.Context, gameID, artistID string) (Metrics, error) {
	if _, err := l.store.GetArtist(ctx, gameID, artistID); err != nil {
		return Metrics{}, err
	}
	songs, err := l.store.ListArtistSongs(ctx, gameID, artistID)
	if err != nil {
		return Metrics{}, fmt.Errorf("list artist songs: %w", err)
	}
	m := Metrics{EntityType: game.EntityArtist, EntityID: artistID, GameID: gameID}
	m.addSongs(songs)
	m.finish()
	return m, nil
}

// ProjectMetrics sums the project's songs. Tours have none, so their cost
// and box office stand in.
func (l *Ledger) ProjectMetrics(ctx context.Context, gameID, projectID string) (Metrics, error) {
	p, err := l.store.GetProject(ctx, gameID, projectID)
	if err != nil {
		return Metrics{}, err
	}
	m := Metrics{EntityType: game.EntityProject, EntityID: projectID, GameID: gameID}
	if !p.GeneratesSongs() {
		if p.CostPaid {
			m.ProductionInvestment = p.TotalCost
		}
		m.Revenue = p.Revenue
		m.finish()
		return m, nil
	}
	songs, err := l.store.ListProjectSongs(ctx, gameID, projectID)
	if err != nil {
		return Metrics{}, fmt.Errorf("list project songs: %w", err)
	}
	m.addSongs(songs)
	m.finish()
	return m, nil
}

func (l *Ledger) ReleaseMetrics(ctx context.Context, gameID, releaseID string) (Metrics, error) {
	if _, err := l.store.GetRelease(ctx, gameID, releaseID); err != nil {
		return Metrics{}, err
	}
	songs, err := l.store.ListReleaseSongs(ctx, gameID, releaseID)
	if err != nil {
		return Metrics{}, fmt.Errorf("list release songs: %w", err)
	}
	m := Metrics{EntityType: game.EntityRelease, EntityID: releaseID, GameID: gameID}
	m.addSongs(songs)
	m.finish()
	return m, nil
}

// Reader is what the ROI cache needs from the ledger.
type Reader interface {
	Metrics(ctx context.Context, entity game.EntityType, gameID, entityID string) (Metrics, error)
}

var _ Reader = (*Ledger)(nil)
