// Package balance loads the game's balance tables and exposes them through
// typed, validated accessors. A Config that made it through Load is safe to
// read from any goroutine; nothing mutates it afterwards.
package balance

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ConfigError reports a missing or malformed balance entry. It is fatal to
// whatever turn asked for the value.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("balance config %s: %s", e.Path, e.Reason)
}

func configErr(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

type Config struct {
	Version          string                    `yaml:"version"`
	Campaign         CampaignParams            `yaml:"campaign"`
	Projects         ProjectPacing             `yaml:"projects"`
	Streaming        StreamingParams           `yaml:"streaming"`
	LeadSingle       LeadSingleParams          `yaml:"lead_single"`
	Tour             TourParams                `yaml:"tour"`
	Press            PressParams               `yaml:"press"`
	Decay            DecayParams               `yaml:"decay"`
	AccessTiers      AccessTierTables          `yaml:"access_tiers"`
	ProducerTiers    map[string]ProducerTier   `yaml:"producer_tiers"`
	TimeInvestment   map[string]TimeInvestment `yaml:"time_investment"`
	ProjectCosts     map[string]ProjectCost    `yaml:"project_costs"`
	EconomiesOfScale []ScaleBreakpoint         `yaml:"economies_of_scale"`
	BudgetQuality    BudgetQualityParams       `yaml:"budget_quality"`
	SongCount        SongCountParams           `yaml:"song_count"`
	Quality          QualityParams             `yaml:"quality"`
	Operations       OperationsParams          `yaml:"operations"`
	Executives       map[string]ExecutiveRole  `yaml:"executives"`
}

type CampaignParams struct {
	LengthTurns            int   `yaml:"length_turns"`
	StartingMoney          int64 `yaml:"starting_money"`
	StartingReputation     int   `yaml:"starting_reputation"`
	FocusSlots             int   `yaml:"focus_slots"`
	CreativeCapitalPerTurn int   `yaml:"creative_capital_per_turn"`
}

type ProjectPacing struct {
	PlanningTurns  int `yaml:"planning_turns"`
	MarketingTurns int `yaml:"marketing_turns"`
	SongsPerTurn   int `yaml:"songs_per_turn"`
	TourTurns      int `yaml:"tour_turns"`
}

type StreamingParams struct {
	QualityWeight       float64 `yaml:"quality_weight"`
	PlaylistWeight      float64 `yaml:"playlist_weight"`
	ReputationWeight    float64 `yaml:"reputation_weight"`
	MarketingWeight     float64 `yaml:"marketing_weight"`
	ReachScale          float64 `yaml:"reach_scale"`
	MarketingScale      float64 `yaml:"marketing_scale"`
	VarianceMin         float64 `yaml:"variance_min"`
	VarianceMax         float64 `yaml:"variance_max"`
	FirstWeekMultiplier float64 `yaml:"first_week_multiplier"`
	StreamsPerPoint     float64 `yaml:"streams_per_point"`
	RevenuePerStream    float64 `yaml:"revenue_per_stream"`
}

type LeadSingleParams struct {
	MaxBoost           float64 `yaml:"max_boost"`
	StreamsForMaxBoost int64   `yaml:"streams_for_max_boost"`
}

type TourParams struct {
	BaseSellThrough        float64 `yaml:"base_sell_through"`
	ReputationModifier     float64 `yaml:"reputation_modifier"`
	PopularityWeight       float64 `yaml:"popularity_weight"`
	TicketPriceBase        float64 `yaml:"ticket_price_base"`
	TicketPricePerCapacity float64 `yaml:"ticket_price_per_capacity"`
	MerchPercentage        float64 `yaml:"merch_percentage"`
}

type PressParams struct {
	BaseChance               float64 `yaml:"base_chance"`
	SpendModifierPer1000     float64 `yaml:"spend_modifier_per_1000"`
	ReputationModifier       float64 `yaml:"reputation_modifier"`
	StoryBonus               float64 `yaml:"story_bonus"`
	MaxChance                float64 `yaml:"max_chance"`
	MaxPickupsPerRelease     int     `yaml:"max_pickups_per_release"`
	ReputationGainMultiplier float64 `yaml:"reputation_gain_multiplier"`
}

type DecayParams struct {
	MonthlyDecayRate      float64 `yaml:"monthly_decay_rate"`
	MaxMonths             int     `yaml:"max_months"`
	ReputationBonusFactor float64 `yaml:"reputation_bonus_factor"`
	AccessBonusFactor     float64 `yaml:"access_bonus_factor"`
	OngoingFactor         float64 `yaml:"ongoing_factor"`
	MinRevenueThreshold   float64 `yaml:"min_revenue_threshold"`
}

// AccessTier is one rung of a reputation-gated ladder. Only the fields
// relevant to the ladder's kind are populated.
type AccessTier struct {
	Name            string  `yaml:"name"`
	Threshold       int     `yaml:"threshold"`
	ReachMultiplier float64 `yaml:"reach_multiplier"`
	PickupChance    float64 `yaml:"pickup_chance"`
	CapacityMin     int     `yaml:"capacity_min"`
	CapacityMax     int     `yaml:"capacity_max"`
}

type AccessTierTables struct {
	Playlist []AccessTier `yaml:"playlist"`
	Press    []AccessTier `yaml:"press"`
	Venue    []AccessTier `yaml:"venue"`
}

type ProducerTier struct {
	QualityBonus     int     `yaml:"quality_bonus"`
	CostMultiplier   float64 `yaml:"cost_multiplier"`
	UnlockReputation int     `yaml:"unlock_reputation"`
}

type TimeInvestment struct {
	QualityBonus    int     `yaml:"quality_bonus"`
	CostMultiplier  float64 `yaml:"cost_multiplier"`
	ProductionTurns int     `yaml:"production_turns"`
}

type ProjectCost struct {
	BaseCostPerUnit int64 `yaml:"base_cost_per_unit"`
}

type ScaleBreakpoint struct {
	MinUnits int     `yaml:"min_units"`
	Factor   float64 `yaml:"factor"`
}

type Breakpoint struct {
	Ratio      float64 `yaml:"ratio"`
	Multiplier float64 `yaml:"multiplier"`
}

type BudgetQualityParams struct {
	Dampening     float64    `yaml:"dampening"`
	Penalty       Breakpoint `yaml:"penalty"`
	MinimumViable Breakpoint `yaml:"minimum_viable"`
	Optimal       Breakpoint `yaml:"optimal"`
	Luxury        Breakpoint `yaml:"luxury"`
	Diminishing   Breakpoint `yaml:"diminishing"`
	LogFactor     float64    `yaml:"log_factor"`
	Min           float64    `yaml:"min"`
	Max           float64    `yaml:"max"`
}

type SongCountParams struct {
	BasePerUnit   float64 `yaml:"base_per_unit"`
	MinMultiplier float64 `yaml:"min_multiplier"`
}

type QualityParams struct {
	Base             float64 `yaml:"base"`
	PopularityWeight float64 `yaml:"popularity_weight"`
	MoodWeight       float64 `yaml:"mood_weight"`
	VarianceSpread   float64 `yaml:"variance_spread"`
}

type OperationsParams struct {
	BaseMin int64 `yaml:"base_min"`
	BaseMax int64 `yaml:"base_max"`
}

type ExecutiveRole struct {
	Salary int64 `yaml:"salary"`
}

// Default returns the embedded balance tables.
func Default() (*Config, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// LoadFile reads balance tables from path, or the embedded defaults when path
// is empty.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open balance file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates balance tables. Unknown keys are rejected so a
// typo in a tuning file fails here instead of silently zeroing a weight.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Path: "$", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
