// Package payroll totals executive salaries for a turn. It never fails: an
// unknown role costs nothing and a storage failure yields an empty payroll,
// both with a warning.
package payroll

import (
	"context"
	"log/slog"

	"labelsim/internal/game"
)

// SalaryResolver maps an executive role to its weekly salary. ok is false
// when the role is unknown.
type SalaryResolver interface {
	ExecutiveSalary(role string) (salary int64, ok bool)
}

// ExecutiveLister is the slice of storage payroll reads from.
type ExecutiveLister interface {
	ListExecutives(ctx context.Context, gameID string) ([]game.Executive, error)
}

type Line struct {
	ExecutiveID string `json:"executive_id"`
	Role        string `json:"role"`
	Salary      int64  `json:"salary"`
	Resolved    bool   `json:"resolved"`
}

type Payroll struct {
	Total     int64  `json:"total"`
	Breakdown []Line `json:"breakdown"`
}

type Calculator struct {
	salaries SalaryResolver
	log      *slog.Logger
}

func New(salaries SalaryResolver, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{salaries: salaries, log: logger}
}

func (c *Calculator) Calculate(ctx context.Context, execs ExecutiveLister, gameID string) Payroll {
	list, err := execs.ListExecutives(ctx, gameID)
	if err != nil {
		c.log.Warn("payroll skipped: executives unavailable", "game_id", gameID, "err", err)
		return Payroll{}
	}
	out := Payroll{Breakdown: make([]Line, 0, len(list))}
	for _, e := range list {
		salary, ok := c.salaries.ExecutiveSalary(e.Role)
		if !ok {
			c.log.Warn("unknown executive role, salary 0", "game_id", gameID, "executive_id", e.ID, "role", e.Role)
			salary = 0
		}
		out.Total += salary
		out.Breakdown = append(out.Breakdown, Line{ExecutiveID: e.ID, Role: e.Role, Salary: salary, Resolved: ok})
	}
	return out
}
