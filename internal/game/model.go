package game

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	MinSongQuality = 20
	MaxSongQuality = 100

	MaxReputation = 100
	MinReputation = 0
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrCampaignComplete  = errors.New("campaign already complete")
	ErrInvalidProject    = errors.New("invalid project")
	ErrInvalidRelease    = errors.New("invalid release")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrTurnConflict      = errors.New("game is not on the expected turn")
	ErrTxConflict        = errors.New("transaction conflict, retry")
	ErrFocusSlotsFull    = errors.New("no focus slots left this turn")
	ErrProducerLocked    = errors.New("producer tier not unlocked")
)

// idNamespace scopes name-based IDs so a replayed turn or seed produces the
// same identifiers.
var idNamespace = uuid.MustParse("6f1c3f0e-6c53-4c1d-9d0b-2d1f54a7c9b1")

// SongID derives a stable song identifier from its project and track slot.
func SongID(gameID, projectID string, slot int) string {
	return ChildID(gameID, projectID, slot)
}

// ChildID derives a stable identifier for the n-th entity of a kind under
// parent.
func ChildID(gameID, parent string, n int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s/%s/%d", gameID, parent, n))).String()
}

func NewID() string {
	return uuid.NewString()
}

func ClampReputation(v int) int {
	if v < MinReputation {
		return MinReputation
	}
	if v > MaxReputation {
		return MaxReputation
	}
	return v
}

func ClampQuality(v int) int {
	if v < MinSongQuality {
		return MinSongQuality
	}
	if v > MaxSongQuality {
		return MaxSongQuality
	}
	return v
}

// RoundMoney converts a fractional dollar figure into whole dollars.
func RoundMoney(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int64(math.Round(v))
}

// ROIPercentage returns (revenue-investment)/investment*100. ROI is undefined
// when nothing has been invested.
func ROIPercentage(revenue, investment int64) (float64, bool) {
	if investment <= 0 {
		return 0, false
	}
	return float64(revenue-investment) / float64(investment) * 100, true
}

func ValidateProjectType(t ProjectType) error {
	switch t {
	case ProjectSingle, ProjectEP, ProjectTour:
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidProject, t)
	}
}

func ValidateReleaseType(t ReleaseType) error {
	switch t {
	case ReleaseSingle, ReleaseEP, ReleaseAlbum:
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRelease, t)
	}
}

func ParseEntityType(raw string) (EntityType, error) {
	switch EntityType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntityArtist:
		return EntityArtist, nil
	case EntityProject:
		return EntityProject, nil
	case EntityRelease:
		return EntityRelease, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, raw)
	}
}

func validateTitle(title string) error {
	clean := strings.TrimSpace(title)
	if clean == "" {
		return fmt.Errorf("title is required")
	}
	if len(clean) > 96 {
		return fmt.Errorf("title too long (max 96 chars)")
	}
	return nil
}

func (p Project) Validate() error {
	if err := ValidateProjectType(p.Type); err != nil {
		return err
	}
	if err := validateTitle(p.Title); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	if strings.TrimSpace(p.ArtistID) == "" {
		return fmt.Errorf("%w: artist is required", ErrInvalidProject)
	}
	if p.Type == ProjectTour {
		if p.Cities <= 0 {
			return fmt.Errorf("%w: tour needs at least one city", ErrInvalidProject)
		}
		return nil
	}
	if p.SongCount <= 0 {
		return fmt.Errorf("%w: song count must be > 0", ErrInvalidProject)
	}
	if p.BudgetPerSong < 0 {
		return fmt.Errorf("%w: budget must be >= 0", ErrInvalidProject)
	}
	return nil
}

func (r Release) Validate() error {
	if err := ValidateReleaseType(r.Type); err != nil {
		return err
	}
	if err := validateTitle(r.Title); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRelease, err)
	}
	if r.MarketingBudget < 0 {
		return fmt.Errorf("%w: marketing budget must be >= 0", ErrInvalidRelease)
	}
	if r.LeadSingle != nil {
		if r.LeadSingle.OffsetTurns <= 0 {
			return fmt.Errorf("%w: lead single must drop before the main release", ErrInvalidRelease)
		}
		if r.LeadSingle.Budget < 0 {
			return fmt.Errorf("%w: lead single budget must be >= 0", ErrInvalidRelease)
		}
	}
	return nil
}
