package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/payroll"
	"labelsim/internal/scenario"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func renderGame(v scenario.View) {
	g := v.Game
	accent.Printf("\n== %s (turn %d", g.ID, g.Turn)
	if g.CampaignLength > 0 {
		accent.Printf(" of %d", g.CampaignLength)
	}
	accent.Println(") ==")
	if g.CampaignCompleted {
		printWarn("Campaign complete.")
	}

	fmt.Printf("Money:             %s\n", colorizeMoney(g.Money))
	fmt.Printf("Reputation:        %d\n", g.Reputation)
	fmt.Printf("Creative capital:  %d\n", g.CreativeCapital)
	fmt.Printf("Focus slots:       %d/%d used\n", g.UsedFocusSlots, g.FocusSlots)
	fmt.Printf("Access:            playlist=%s press=%s venue=%s\n", g.AccessTiers.Playlist, g.AccessTiers.Press, g.AccessTiers.Venue)

	fmt.Println()
	accent.Println("Artists")
	fmt.Printf("%-38s %-20s %-10s %5s %10s\n", "ID", "NAME", "GENRE", "POP", "FEE")
	for _, a := range v.Artists {
		fmt.Printf("%-38s %-20s %-10s %5d %10s\n", a.ID, truncate(a.Name, 20), a.Genre, a.Popularity, formatMoney(a.WeeklyFee))
	}

	fmt.Println()
	accent.Println("Projects")
	if len(v.Projects) == 0 {
		printInfo("No projects yet.")
	} else {
		fmt.Printf("%-38s %-24s %-10s %-11s %7s %10s %12s\n", "ID", "TITLE", "TYPE", "STAGE", "SONGS", "COST", "REVENUE")
		for _, p := range v.Projects {
			songs := "-"
			if p.GeneratesSongs() {
				songs = fmt.Sprintf("%d/%d", p.SongsCreated, p.SongCount)
			}
			fmt.Printf("%-38s %-24s %-10s %-11s %7s %10s %12s\n",
				p.ID, truncate(p.Title, 24), p.Type, p.Stage, songs, formatMoney(p.TotalCost), formatMoney(p.Revenue))
		}
	}

	fmt.Println()
	accent.Println("Releases")
	if len(v.Releases) == 0 {
		printInfo("No releases yet.")
	} else {
		fmt.Printf("%-38s %-24s %-6s %-9s %5s %12s %12s\n", "ID", "TITLE", "TYPE", "STATUS", "TURN", "STREAMS", "REVENUE")
		for _, r := range v.Releases {
			fmt.Printf("%-38s %-24s %-6s %-9s %5d %12s %12s\n",
				r.ID, truncate(r.Title, 24), r.Type, r.Status, r.ReleaseTurn, comma(r.Streams), formatMoney(r.Revenue))
		}
	}
	fmt.Println()
}

func renderSummary(s game.TurnSummary) {
	accent.Printf("\n== Turn %d ==\n", s.Turn)
	fmt.Printf("Revenue:   %s\n", formatMoney(s.Revenue))
	fmt.Printf("Expenses:  %s\n", formatMoney(s.Expenses))
	fmt.Printf("Net:       %s\n", colorizeMoney(s.Net()))
	fmt.Printf("Money:     %s\n", colorizeMoney(s.MoneyAfter))
	if s.ReputationGain != 0 {
		fmt.Printf("Reputation %+d\n", s.ReputationGain)
	}
	for _, c := range s.Changes {
		line := "  - " + c.Description
		if c.Amount != 0 {
			line += " (" + signedMoney(c.Amount) + ")"
		}
		fmt.Println(line)
	}
	for _, a := range s.Adjustments {
		printWarn(fmt.Sprintf("  ! %s clamped %g -> %g", a.Metric, a.Original, a.Clamped))
	}
	fmt.Println()
}

func renderMetrics(m ledger.Metrics) {
	accent.Printf("\n== ROI: %s %s ==\n", m.EntityType, m.EntityID)
	fmt.Printf("Songs:        %d\n", m.Songs)
	fmt.Printf("Production:   %s\n", formatMoney(m.ProductionInvestment))
	fmt.Printf("Marketing:    %s\n", formatMoney(m.MarketingInvestment))
	fmt.Printf("Invested:     %s\n", formatMoney(m.TotalInvestment))
	fmt.Printf("Revenue:      %s\n", formatMoney(m.Revenue))
	fmt.Printf("Streams:      %s\n", comma(m.Streams))
	if m.ROI == nil {
		fmt.Printf("ROI:          %s\n", neutral.Sprint("n/a"))
	} else {
		fmt.Printf("ROI:          %s\n", colorizePercent(*m.ROI))
	}
	fmt.Println()
}

func renderPayroll(p payroll.Payroll) {
	accent.Println("\n== Payroll ==")
	for _, l := range p.Breakdown {
		salary := formatMoney(l.Salary)
		if !l.Resolved {
			salary = warn.Sprint("unknown role")
		}
		fmt.Printf("%-20s %12s\n", l.Role, salary)
	}
	fmt.Printf("%-20s %12s\n\n", "TOTAL", formatMoney(p.Total))
}

func colorizeMoney(v int64) string {
	text := formatMoney(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatMoney(v int64) string {
	if v < 0 {
		return "-$" + comma(-v)
	}
	return "$" + comma(v)
}

func signedMoney(v int64) string {
	if v > 0 {
		return "+" + formatMoney(v)
	}
	return formatMoney(v)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
