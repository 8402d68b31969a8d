package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cl "labelsim/internal/cli"
	"labelsim/internal/config"
	"labelsim/internal/game"
	"labelsim/internal/scenario"
)

type globals struct {
	apiBase     string
	localDB     string
	balanceFile string
}

func main() {
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	g := &globals{apiBase: cfg.APIBaseURL, localDB: cfg.LocalDB, balanceFile: cfg.BalanceFile}

	root := &cobra.Command{
		Use:          "lsim",
		Short:        "Run a record label, one turn at a time",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.apiBase, "api", g.apiBase, "API base URL")
	root.PersistentFlags().StringVar(&g.localDB, "db", g.localDB, "SQLite file for local games")

	root.AddCommand(
		newNewCmd(g),
		newStatusCmd(g),
		newTurnCmd(g),
		newProjectCmd(g),
		newReleaseCmd(g),
		newBookCmd(g),
		newROICmd(g),
		newPayrollCmd(g),
		newEndCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (g *globals) open(isLocal bool) (backend, error) {
	if isLocal {
		return openLocal(g.localDB, g.balanceFile)
	}
	return remote{cl.NewClient(strings.TrimSpace(g.apiBase))}, nil
}

// withSession loads the current game and its backend for the duration of fn.
func (g *globals) withSession(cmd *cobra.Command, fn func(ctx context.Context, b backend, gameID string) error) error {
	sess, err := cl.LoadSession()
	if err != nil {
		return err
	}
	b, err := g.open(sess.Local)
	if err != nil {
		return err
	}
	defer b.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()
	return fn(ctx, b, sess.GameID)
}

func newNewCmd(g *globals) *cobra.Command {
	var (
		id      string
		seed    int64
		isLocal bool
		auto    bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new label and make it the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := g.open(isLocal)
			if err != nil {
				return err
			}
			defer b.Close()
			req := cl.NewGameRequest{ID: id, AutoAdvance: auto}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := b.CreateGame(ctx, req)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{GameID: st.ID, Local: isLocal}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Label %s opened with %s (seed %d).", st.ID, formatMoney(st.Money), st.Seed))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "game id (random when empty)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (time based when unset)")
	cmd.Flags().BoolVar(&isLocal, "local", false, "play against a local SQLite file instead of the API")
	cmd.Flags().BoolVar(&auto, "auto", false, "let the worker advance this game unattended")
	return cmd
}

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"dash"},
		Short:   "Show the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				v, err := b.Game(ctx, gameID)
				if err != nil {
					return err
				}
				renderGame(v)
				return nil
			})
		},
	}
}

func newTurnCmd(g *globals) *cobra.Command {
	var (
		count  int
		expect int
	)
	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Advance the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			if count > 1 && expect > 0 {
				return fmt.Errorf("--expect only applies to a single turn")
			}
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				for i := 0; i < count; i++ {
					summary, err := b.AdvanceTurn(ctx, gameID, expect)
					if err != nil {
						return err
					}
					renderSummary(summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "turns to play")
	cmd.Flags().IntVar(&expect, "expect", 0, "refuse unless the game is on this turn")
	return cmd
}

type projectFlags struct {
	producer string
	time     string
	songs    int
	budget   int64
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.producer, "producer", "local", "producer tier")
	cmd.Flags().StringVar(&f.time, "time", "standard", "time investment")
	cmd.Flags().IntVar(&f.songs, "songs", 1, "songs to record")
	cmd.Flags().Int64Var(&f.budget, "budget", 3000, "budget per song")
}

func newProjectCmd(g *globals) *cobra.Command {
	var (
		title  string
		artist string
		kind   string
		cities int
		pf     projectFlags
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Start a recording project or a mini tour",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := scenario.ProjectPlan{
				Title:          title,
				ArtistID:       artist,
				Type:           game.ProjectType(kind),
				ProducerTier:   pf.producer,
				TimeInvestment: pf.time,
				SongCount:      pf.songs,
				BudgetPerSong:  pf.budget,
				Cities:         cities,
			}
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				p, err := b.PlanProject(ctx, gameID, plan)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Project %q started (%s), cost %s.", p.Title, p.ID, formatMoney(p.TotalCost)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&artist, "artist", "", "artist id")
	cmd.Flags().StringVar(&kind, "type", string(game.ProjectSingle), "single, ep or mini_tour")
	cmd.Flags().IntVar(&cities, "cities", 0, "cities on a mini tour")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("artist")
	return cmd
}

func newReleaseCmd(g *globals) *cobra.Command {
	var (
		title      string
		artist     string
		kind       string
		turn       int
		marketing  int64
		leadOffset int
		leadBudget int64
		story      bool
		projectID  string
		pf         projectFlags
	)
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Plan a release, recording it with a new project or an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := scenario.ReleasePlan{
				Title:           title,
				ArtistID:        artist,
				Type:            game.ReleaseType(kind),
				ReleaseTurn:     turn,
				MarketingBudget: marketing,
				HasStoryBonus:   story,
				ProjectID:       projectID,
			}
			if leadOffset > 0 {
				plan.LeadSingle = &game.LeadSingle{OffsetTurns: leadOffset, Budget: leadBudget}
			}
			if projectID == "" {
				projType := game.ProjectSingle
				if plan.Type != game.ReleaseSingle {
					projType = game.ProjectEP
				}
				plan.Project = &scenario.ProjectPlan{
					Type:           projType,
					ProducerTier:   pf.producer,
					TimeInvestment: pf.time,
					SongCount:      pf.songs,
					BudgetPerSong:  pf.budget,
				}
			}
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				r, err := b.PlanRelease(ctx, gameID, plan)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Release %q planned for turn %d (%s).", r.Title, r.ReleaseTurn, r.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "release title")
	cmd.Flags().StringVar(&artist, "artist", "", "artist id")
	cmd.Flags().StringVar(&kind, "type", string(game.ReleaseSingle), "single, ep or album")
	cmd.Flags().IntVar(&turn, "turn", 0, "turn the release drops")
	cmd.Flags().Int64Var(&marketing, "marketing", 0, "marketing budget")
	cmd.Flags().IntVar(&leadOffset, "lead-offset", 0, "turns the lead single drops ahead of the release")
	cmd.Flags().Int64Var(&leadBudget, "lead-budget", 0, "lead single marketing budget")
	cmd.Flags().BoolVar(&story, "story", false, "the release has a story behind it")
	cmd.Flags().StringVar(&projectID, "project-id", "", "record with this existing project")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("artist")
	_ = cmd.MarkFlagRequired("turn")
	return cmd
}

func newBookCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "book [release_id]",
		Short: "Spend a planned release's marketing budget now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				alloc, err := b.BookMarketing(ctx, gameID, args[0])
				if err != nil {
					return err
				}
				if alloc.Skipped {
					printWarn("Marketing was already booked for this release.")
					return nil
				}
				printSuccess(fmt.Sprintf("Booked %s of marketing across %d songs.", formatMoney(alloc.Total), len(alloc.Songs)))
				return nil
			})
		},
	}
}

func newROICmd(g *globals) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "roi [artist|project|release] [id]",
		Short: "Show investment and return for an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := game.ParseEntityType(args[0])
			if err != nil {
				return err
			}
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				m, err := b.ROI(ctx, gameID, entity, args[1], fresh)
				if err != nil {
					return err
				}
				renderMetrics(m)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the server's ROI cache")
	return cmd
}

func newPayrollCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "payroll",
		Short: "Show executive salaries charged each turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, b backend, gameID string) error {
				p, err := b.Payroll(ctx, gameID)
				if err != nil {
					return err
				}
				renderPayroll(p)
				return nil
			})
		},
	}
}

func newEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Forget the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared.")
			return nil
		},
	}
}
