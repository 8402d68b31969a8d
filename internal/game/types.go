package game

type ProjectType string

const (
	ProjectSingle ProjectType = "single"
	ProjectEP     ProjectType = "ep"
	ProjectTour   ProjectType = "mini_tour"
)

type ProjectStage string

const (
	StagePlanning   ProjectStage = "planning"
	StageProduction ProjectStage = "production"
	StageMarketing  ProjectStage = "marketing"
	StageRecorded   ProjectStage = "recorded"
)

type ReleaseType string

const (
	ReleaseSingle ReleaseType = "single"
	ReleaseEP     ReleaseType = "ep"
	ReleaseAlbum  ReleaseType = "album"
)

type ReleaseStatus string

const (
	ReleasePlanned  ReleaseStatus = "planned"
	ReleaseReleased ReleaseStatus = "released"
	ReleaseCatalog  ReleaseStatus = "catalog"
)

// AllocationState tags whether a release's marketing phase has been booked.
// It moves from Unallocated to Allocated once and never back.
type AllocationState string

const (
	Unallocated AllocationState = "unallocated"
	Allocated   AllocationState = "allocated"
)

type AllocationPhase string

const (
	PhaseBase AllocationPhase = "base"
	PhaseLead AllocationPhase = "lead"
)

type AccessKind string

const (
	AccessPlaylist AccessKind = "playlist"
	AccessPress    AccessKind = "press"
	AccessVenue    AccessKind = "venue"
)

type EntityType string

const (
	EntityArtist  EntityType = "artist"
	EntityProject EntityType = "project"
	EntityRelease EntityType = "release"
)

type AccessTiers struct {
	Playlist string `json:"playlist"`
	Press    string `json:"press"`
	Venue    string `json:"venue"`
}

func (a AccessTiers) Get(kind AccessKind) string {
	switch kind {
	case AccessPlaylist:
		return a.Playlist
	case AccessPress:
		return a.Press
	default:
		return a.Venue
	}
}

func (a *AccessTiers) Set(kind AccessKind, tier string) {
	switch kind {
	case AccessPlaylist:
		a.Playlist = tier
	case AccessPress:
		a.Press = tier
	default:
		a.Venue = tier
	}
}

type GameState struct {
	ID                string      `json:"id"`
	Turn              int         `json:"turn"`
	Money             int64       `json:"money"`
	Reputation        int         `json:"reputation"`
	CreativeCapital   int         `json:"creative_capital"`
	FocusSlots        int         `json:"focus_slots"`
	UsedFocusSlots    int         `json:"used_focus_slots"`
	AccessTiers       AccessTiers `json:"access_tiers"`
	CampaignLength    int         `json:"campaign_length"`
	CampaignCompleted bool        `json:"campaign_completed"`
	AutoAdvance       bool        `json:"auto_advance"`
	Seed              int64       `json:"seed"`
}

type Artist struct {
	ID         string `json:"id"`
	GameID     string `json:"game_id"`
	Name       string `json:"name"`
	Genre      string `json:"genre"`
	Mood       int    `json:"mood"`
	Loyalty    int    `json:"loyalty"`
	Popularity int    `json:"popularity"`
	WeeklyFee  int64  `json:"weekly_fee"`
}

type Project struct {
	ID               string       `json:"id"`
	GameID           string       `json:"game_id"`
	ArtistID         string       `json:"artist_id"`
	ReleaseID        string       `json:"release_id,omitempty"`
	Title            string       `json:"title"`
	Type             ProjectType  `json:"type"`
	Stage            ProjectStage `json:"stage"`
	StartTurn        int          `json:"start_turn"`
	StageStartedTurn int          `json:"stage_started_turn"`
	ProducerTier     string       `json:"producer_tier"`
	TimeInvestment   string       `json:"time_investment"`
	SongCount        int          `json:"song_count"`
	SongsCreated     int          `json:"songs_created"`
	BudgetPerSong    int64        `json:"budget_per_song"`
	TotalCost        int64        `json:"total_cost"`
	CostPaid         bool         `json:"cost_paid"`
	Cities           int          `json:"cities,omitempty"`
	Revenue          int64        `json:"revenue"`
	Streams          int64        `json:"streams"`
}

// GeneratesSongs reports whether the project produces recordings.
func (p Project) GeneratesSongs() bool {
	return p.Type != ProjectTour
}

type Song struct {
	ID                  string `json:"id"`
	GameID              string `json:"game_id"`
	ArtistID            string `json:"artist_id"`
	ProjectID           string `json:"project_id"`
	ReleaseID           string `json:"release_id,omitempty"`
	Title               string `json:"title"`
	TrackNumber         int    `json:"track_number"`
	Quality             int    `json:"quality"`
	ProductionBudget    int64  `json:"production_budget"`
	MarketingAllocation int64  `json:"marketing_allocation"`
	InitialStreams      int64  `json:"initial_streams"`
	TotalStreams        int64  `json:"total_streams"`
	TotalRevenue        int64  `json:"total_revenue"`
	LastTurnRevenue     int64  `json:"last_turn_revenue"`
	IsRecorded          bool   `json:"is_recorded"`
	IsReleased          bool   `json:"is_released"`
	CreatedTurn         int    `json:"created_turn"`
	ReleasedTurn        int    `json:"released_turn"`
}

func (s Song) TotalInvestment() int64 {
	return s.ProductionBudget + s.MarketingAllocation
}

// ROIPercentage is undefined (ok=false) for songs nobody has invested in.
func (s Song) ROIPercentage() (float64, bool) {
	return ROIPercentage(s.TotalRevenue, s.TotalInvestment())
}

type LeadSingle struct {
	SongID      string `json:"song_id,omitempty"`
	OffsetTurns int    `json:"offset_turns"`
	Budget      int64  `json:"budget"`
}

type Release struct {
	ID                string          `json:"id"`
	GameID            string          `json:"game_id"`
	ArtistID          string          `json:"artist_id"`
	Title             string          `json:"title"`
	Type              ReleaseType     `json:"type"`
	Status            ReleaseStatus   `json:"status"`
	ReleaseTurn       int             `json:"release_turn"`
	MarketingBudget   int64           `json:"marketing_budget"`
	LeadSingle        *LeadSingle     `json:"lead_single,omitempty"`
	HasStoryBonus     bool            `json:"has_story_bonus"`
	BaseAllocation    AllocationState `json:"base_allocation"`
	LeadAllocation    AllocationState `json:"lead_allocation"`
	LeadSingleStreams int64           `json:"lead_single_streams"`
	Streams           int64           `json:"streams"`
	Revenue           int64           `json:"revenue"`
	PressPickups      int             `json:"press_pickups"`
}

// LeadSingleTurn is the turn the lead single drops, or 0 when there is none.
func (r Release) LeadSingleTurn() int {
	if r.LeadSingle == nil {
		return 0
	}
	return r.ReleaseTurn - r.LeadSingle.OffsetTurns
}

func (r Release) Allocation(phase AllocationPhase) AllocationState {
	var st AllocationState
	if phase == PhaseLead {
		st = r.LeadAllocation
	} else {
		st = r.BaseAllocation
	}
	if st == "" {
		return Unallocated
	}
	return st
}

type Executive struct {
	ID             string `json:"id"`
	GameID         string `json:"game_id"`
	Role           string `json:"role"`
	Mood           int    `json:"mood"`
	Loyalty        int    `json:"loyalty"`
	LastActiveTurn int    `json:"last_active_turn"`
}
