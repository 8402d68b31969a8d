package game

import (
	"errors"
	"math"
	"testing"
)

func TestSongTotalInvestment(t *testing.T) {
	s := Song{ProductionBudget: 4_000, MarketingAllocation: 3_334}
	if got := s.TotalInvestment(); got != 7_334 {
		t.Fatalf("got %d want 7334", got)
	}
}

func TestSongROIPercentage(t *testing.T) {
	tests := []struct {
		name    string
		song    Song
		want    float64
		defined bool
	}{
		{name: "no investment", song: Song{TotalRevenue: 500}, defined: false},
		{name: "break even", song: Song{ProductionBudget: 1_000, TotalRevenue: 1_000}, want: 0, defined: true},
		{name: "loss", song: Song{ProductionBudget: 1_000, MarketingAllocation: 1_000, TotalRevenue: 500}, want: -75, defined: true},
		{name: "gain", song: Song{ProductionBudget: 2_000, TotalRevenue: 5_000}, want: 150, defined: true},
	}
	for _, tc := range tests {
		got, ok := tc.song.ROIPercentage()
		if ok != tc.defined {
			t.Fatalf("%s: defined=%v want %v", tc.name, ok, tc.defined)
		}
		if ok && math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: got %f want %f", tc.name, got, tc.want)
		}
	}
}

func TestSongIDIsStable(t *testing.T) {
	a := SongID("game-1", "project-1", 2)
	b := SongID("game-1", "project-1", 2)
	c := SongID("game-1", "project-1", 3)
	if a != b {
		t.Fatalf("expected stable id, got %s and %s", a, b)
	}
	if a == c {
		t.Fatalf("expected distinct ids per slot")
	}
}

func TestProjectValidate(t *testing.T) {
	valid := Project{Title: "Night Drive", ArtistID: "a1", Type: ProjectEP, SongCount: 4, BudgetPerSong: 3_000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid project: %v", err)
	}
	tour := Project{Title: "Summer Run", ArtistID: "a1", Type: ProjectTour}
	if err := tour.Validate(); !errors.Is(err, ErrInvalidProject) {
		t.Fatalf("expected tour without cities to fail, got %v", err)
	}
	bad := Project{Title: "x", ArtistID: "a1", Type: "album"}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidProject) {
		t.Fatalf("expected unknown type to fail, got %v", err)
	}
}

func TestReleaseLeadSingleTurn(t *testing.T) {
	r := Release{ReleaseTurn: 6, LeadSingle: &LeadSingle{OffsetTurns: 2}}
	if got := r.LeadSingleTurn(); got != 4 {
		t.Fatalf("got %d want 4", got)
	}
	if got := (Release{ReleaseTurn: 6}).LeadSingleTurn(); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestReleaseAllocationDefaultsToUnallocated(t *testing.T) {
	r := Release{}
	if r.Allocation(PhaseBase) != Unallocated || r.Allocation(PhaseLead) != Unallocated {
		t.Fatalf("expected zero value release to be unallocated")
	}
	r.LeadAllocation = Allocated
	if r.Allocation(PhaseLead) != Allocated {
		t.Fatalf("expected lead phase allocated")
	}
}

func TestParseEntityType(t *testing.T) {
	if got, err := ParseEntityType(" Artist "); err != nil || got != EntityArtist {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := ParseEntityType("label"); !errors.Is(err, ErrInvalidEntityType) {
		t.Fatalf("expected ErrInvalidEntityType, got %v", err)
	}
}
