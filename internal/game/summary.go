package game

// ChangeKind classifies a turn summary entry for display.
type ChangeKind string

const (
	ChangeProject    ChangeKind = "project"
	ChangeSong       ChangeKind = "song"
	ChangeRelease    ChangeKind = "release"
	ChangeRevenue    ChangeKind = "revenue"
	ChangeExpense    ChangeKind = "expense"
	ChangePress      ChangeKind = "press"
	ChangeAccessTier ChangeKind = "access_tier"
	ChangeCampaign   ChangeKind = "campaign"
)

type ChangeEvent struct {
	Kind        ChangeKind `json:"kind"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount,omitempty"`
}

type ExpenseBreakdown struct {
	Operations        int64 `json:"operations"`
	ArtistSalaries    int64 `json:"artist_salaries"`
	ExecutiveSalaries int64 `json:"executive_salaries"`
	Projects          int64 `json:"projects"`
	Marketing         int64 `json:"marketing"`
}

func (b ExpenseBreakdown) Total() int64 {
	return b.Operations + b.ArtistSalaries + b.ExecutiveSalaries + b.Projects + b.Marketing
}

type RevenueBreakdown struct {
	Streaming int64 `json:"streaming"`
	Tours     int64 `json:"tours"`
}

func (b RevenueBreakdown) Total() int64 {
	return b.Streaming + b.Tours
}

// Adjustment records a computed value that fell outside its configured bounds
// and was clamped.
type Adjustment struct {
	Metric   string  `json:"metric"`
	Original float64 `json:"original"`
	Clamped  float64 `json:"clamped"`
}

// TurnSummary is the caller-facing result of one turn. It is rebuilt every
// turn and is not persisted by the engine.
type TurnSummary struct {
	GameID           string           `json:"game_id"`
	Turn             int              `json:"turn"`
	BalanceVersion   string           `json:"balance_version"`
	Revenue          int64            `json:"revenue"`
	Expenses         int64            `json:"expenses"`
	RevenueBreakdown RevenueBreakdown `json:"revenue_breakdown"`
	ExpenseBreakdown ExpenseBreakdown `json:"expense_breakdown"`
	ReputationGain   int              `json:"reputation_gain"`
	MoneyAfter       int64            `json:"money_after"`
	Changes          []ChangeEvent    `json:"changes"`
	Adjustments      []Adjustment     `json:"adjustments,omitempty"`
}

func (s *TurnSummary) AddChange(kind ChangeKind, amount int64, description string) {
	s.Changes = append(s.Changes, ChangeEvent{Kind: kind, Description: description, Amount: amount})
}

// Net is revenue minus expenses for the turn.
func (s TurnSummary) Net() int64 {
	return s.Revenue - s.Expenses
}
