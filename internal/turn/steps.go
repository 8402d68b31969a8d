package turn

import (
	"context"
	"fmt"
	"math"

	"labelsim/internal/economy"
	"labelsim/internal/game"
	"labelsim/internal/ledger"
)

// advanceProjects moves each project through planning, production and
// marketing. The project cost is charged once, on entering production.
// Tours book their box office when they leave production.
func (c *Controller) advanceProjects(ctx context.Context, st *state) error {
	projects, err := st.q.ListProjects(ctx, st.game.ID)
	if err != nil {
		return err
	}
	pacing := c.cfg.Projects
	for _, p := range projects {
		elapsed := st.turn - p.StageStartedTurn
		before := p.Stage
		switch p.Stage {
		case game.StagePlanning:
			if elapsed < pacing.PlanningTurns {
				continue
			}
			if err := c.chargeProject(st, &p); err != nil {
				return err
			}
			p.Stage = game.StageProduction
		case game.StageProduction:
			done, err := c.productionDone(p, elapsed)
			if err != nil {
				return err
			}
			if !done {
				continue
			}
			if !p.GeneratesSongs() {
				if err := c.bookTour(ctx, st, &p); err != nil {
					return err
				}
			}
			p.Stage = game.StageMarketing
		case game.StageMarketing:
			if elapsed < pacing.MarketingTurns {
				continue
			}
			p.Stage = game.StageRecorded
		default:
			continue
		}
		p.StageStartedTurn = st.turn
		if err := st.q.UpdateProject(ctx, p); err != nil {
			return fmt.Errorf("update project %s: %w", p.ID, err)
		}
		st.summary.AddChange(game.ChangeProject, 0, fmt.Sprintf("%s moved from %s to %s", p.Title, before, p.Stage))
	}
	return nil
}

func (c *Controller) chargeProject(st *state, p *game.Project) error {
	if p.CostPaid {
		return nil
	}
	if p.TotalCost == 0 {
		cost, err := economy.ProjectCost(c.cfg, *p)
		if err != nil {
			return err
		}
		p.TotalCost = cost
	}
	p.CostPaid = true
	st.summary.ExpenseBreakdown.Projects += p.TotalCost
	st.summary.AddChange(game.ChangeExpense, p.TotalCost, fmt.Sprintf("%s entered production", p.Title))
	return nil
}

func (c *Controller) productionDone(p game.Project, elapsed int) (bool, error) {
	if !p.GeneratesSongs() {
		return elapsed >= c.cfg.Projects.TourTurns, nil
	}
	tier, err := c.cfg.Time(p.TimeInvestment)
	if err != nil {
		return false, err
	}
	return p.SongsCreated >= p.SongCount && elapsed >= tier.ProductionTurns, nil
}

func (c *Controller) bookTour(ctx context.Context, st *state, p *game.Project) error {
	artist, err := st.artist(ctx, p.ArtistID)
	if err != nil {
		return err
	}
	res, err := st.calc.TourRevenue(st.game.AccessTiers.Venue, artist.Popularity, st.game.Reputation, p.Cities)
	if err != nil {
		return err
	}
	p.Revenue += res.Revenue
	st.summary.RevenueBreakdown.Tours += res.Revenue
	st.summary.AddChange(game.ChangeRevenue, res.Revenue,
		fmt.Sprintf("%s played %d cities at %.0f%% sell-through", p.Title, p.Cities, res.SellThrough*100))
	return nil
}

// recordSongs generates this turn's songs for every recording project in
// production and books their production budget.
func (c *Controller) recordSongs(ctx context.Context, st *state) error {
	projects, err := st.q.ListProjects(ctx, st.game.ID)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if p.Stage != game.StageProduction || !p.GeneratesSongs() || p.SongsCreated >= p.SongCount {
			continue
		}
		artist, err := st.artist(ctx, p.ArtistID)
		if err != nil {
			return err
		}
		n := min(c.cfg.Projects.SongsPerTurn, p.SongCount-p.SongsCreated)
		for i := 0; i < n; i++ {
			slot := p.SongsCreated + 1
			quality, err := st.calc.SongQuality(artist, p)
			if err != nil {
				return err
			}
			song := game.Song{
				ID:          game.SongID(st.game.ID, p.ID, slot),
				GameID:      st.game.ID,
				ArtistID:    p.ArtistID,
				ProjectID:   p.ID,
				ReleaseID:   p.ReleaseID,
				Title:       songTitle(p, slot),
				TrackNumber: slot,
				Quality:     quality,
				IsRecorded:  true,
				CreatedTurn: st.turn,
			}
			if err := st.q.InsertSong(ctx, song); err != nil {
				return fmt.Errorf("insert song %s: %w", song.ID, err)
			}
			if err := c.ledger.RecordProductionInvestmentTx(ctx, st.q, st.game.ID, song.ID, p.ID, p.BudgetPerSong); err != nil {
				return err
			}
			p.SongsCreated = slot
			st.summary.AddChange(game.ChangeSong, 0, fmt.Sprintf("Recorded %q (quality %d)", song.Title, quality))
		}
		if err := st.q.UpdateProject(ctx, p); err != nil {
			return fmt.Errorf("update project %s: %w", p.ID, err)
		}
	}
	return nil
}

func songTitle(p game.Project, slot int) string {
	if p.SongCount == 1 {
		return p.Title
	}
	return fmt.Sprintf("%s (Track %d)", p.Title, slot)
}

// releaseLeadSingles drops the lead single of every planned release whose
// lead-single turn is now.
func (c *Controller) releaseLeadSingles(ctx context.Context, st *state) error {
	releases, err := st.q.ListReleases(ctx, st.game.ID)
	if err != nil {
		return err
	}
	for _, r := range releases {
		if r.Status != game.ReleasePlanned || r.LeadSingle == nil || r.LeadSingleTurn() != st.turn {
			continue
		}
		songs, err := st.q.ListReleaseSongs(ctx, st.game.ID, r.ID)
		if err != nil {
			return err
		}
		lead, ok := leadSong(r, songs)
		if !ok {
			st.summary.AddChange(game.ChangeRelease, 0, fmt.Sprintf("No lead single for %s: nothing recorded yet", r.Title))
			continue
		}

		alloc, err := c.ledger.AllocateMarketingToSongTx(ctx, st.q, st.game.ID, r.ID, lead.ID, r.LeadSingle.Budget)
		if err != nil {
			return err
		}
		if !alloc.Skipped {
			st.summary.ExpenseBreakdown.Marketing += r.LeadSingle.Budget
		}
		if lead.IsReleased {
			continue
		}

		streams, err := st.calc.StreamingOutcome(lead.Quality, st.game.AccessTiers.Playlist, st.game.Reputation, r.LeadSingle.Budget)
		if err != nil {
			return err
		}
		revenue := st.calc.StreamRevenue(streams)
		if err := c.releaseSong(ctx, st, &lead, streams, revenue); err != nil {
			return err
		}

		r.LeadSingle.SongID = lead.ID
		r.LeadSingleStreams = streams
		r.Streams += streams
		r.Revenue += revenue
		if err := st.q.UpdateRelease(ctx, r); err != nil {
			return fmt.Errorf("update release %s: %w", r.ID, err)
		}
		st.shipped = append(st.shipped, shipment{
			releaseID:  r.ID,
			title:      lead.Title,
			quality:    lead.Quality,
			spend:      r.LeadSingle.Budget,
			storyBonus: r.HasStoryBonus,
		})
		st.summary.AddChange(game.ChangeRelease, revenue,
			fmt.Sprintf("Lead single %q released: %d streams", lead.Title, streams))
	}
	return nil
}

// leadSong resolves the configured lead single, or the first track when none
// was picked.
func leadSong(r game.Release, songs []game.Song) (game.Song, bool) {
	if len(songs) == 0 {
		return game.Song{}, false
	}
	if r.LeadSingle != nil && r.LeadSingle.SongID != "" {
		for _, s := range songs {
			if s.ID == r.LeadSingle.SongID {
				return s, true
			}
		}
	}
	return songs[0], true
}

func (c *Controller) releaseSong(ctx context.Context, st *state, s *game.Song, streams, revenue int64) error {
	s.InitialStreams = streams
	s.TotalStreams += streams
	s.TotalRevenue += revenue
	s.LastTurnRevenue = revenue
	s.IsReleased = true
	s.ReleasedTurn = st.turn
	if err := st.q.UpdateSong(ctx, *s); err != nil {
		return fmt.Errorf("update song %s: %w", s.ID, err)
	}
	st.summary.RevenueBreakdown.Streaming += revenue
	return nil
}

// releaseMain ships every planned release due this turn. Marketing is split
// across its songs and each unreleased song streams with the lead single's
// boost. A release with nothing recorded slips a turn.
func (c *Controller) releaseMain(ctx context.Context, st *state) error {
	releases, err := st.q.ListReleases(ctx, st.game.ID)
	if err != nil {
		return err
	}
	for _, r := range releases {
		if r.Status != game.ReleasePlanned || r.ReleaseTurn > st.turn {
			continue
		}
		songs, err := st.q.ListReleaseSongs(ctx, st.game.ID, r.ID)
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			r.ReleaseTurn = st.turn + 1
			if err := st.q.UpdateRelease(ctx, r); err != nil {
				return fmt.Errorf("update release %s: %w", r.ID, err)
			}
			st.summary.AddChange(game.ChangeRelease, 0, fmt.Sprintf("%s slipped to turn %d: nothing recorded", r.Title, r.ReleaseTurn))
			continue
		}

		alloc, err := c.ledger.AllocateMarketingInvestmentTx(ctx, st.q, st.game.ID, r.ID, r.MarketingBudget)
		if err != nil {
			return err
		}
		if !alloc.Skipped {
			st.summary.ExpenseBreakdown.Marketing += r.MarketingBudget
		}
		shares := split(alloc, r, songs)
		boost := st.calc.LeadSingleBoost(r.LeadSingleStreams)

		var qualitySum, released int
		var revenueNow int64
		for i := range songs {
			s := songs[i]
			qualitySum += s.Quality
			if s.IsReleased {
				continue
			}
			base, err := st.calc.StreamingOutcome(s.Quality, st.game.AccessTiers.Playlist, st.game.Reputation, shares[s.ID])
			if err != nil {
				return err
			}
			streams := int64(math.Round(float64(base) * boost))
			revenue := st.calc.StreamRevenue(streams)
			if err := c.releaseSong(ctx, st, &s, streams, revenue); err != nil {
				return err
			}
			r.Streams += streams
			r.Revenue += revenue
			revenueNow += revenue
			released++
		}

		r.Status = game.ReleaseReleased
		r.ReleaseTurn = st.turn
		if err := st.q.UpdateRelease(ctx, r); err != nil {
			return fmt.Errorf("update release %s: %w", r.ID, err)
		}
		st.shipped = append(st.shipped, shipment{
			releaseID:  r.ID,
			title:      r.Title,
			quality:    qualitySum / len(songs),
			spend:      r.MarketingBudget,
			storyBonus: r.HasStoryBonus,
		})
		st.summary.AddChange(game.ChangeRelease, revenueNow,
			fmt.Sprintf("%s released with %d new tracks (lead boost x%.2f)", r.Title, released, boost))
	}
	return nil
}

// split maps song id to its base marketing share. A skipped allocation was
// booked earlier, so each share is read back from what the ledger persisted,
// less the lead-single budget on the lead song.
func split(alloc ledger.Allocation, r game.Release, songs []game.Song) map[string]int64 {
	out := make(map[string]int64, len(songs))
	if !alloc.Skipped {
		for _, l := range alloc.Songs {
			out[l.SongID] = l.Amount
		}
		return out
	}
	for _, s := range songs {
		amount := s.MarketingAllocation
		if r.LeadSingle != nil && r.LeadSingle.SongID == s.ID && r.Allocation(game.PhaseLead) == game.Allocated {
			amount = max(amount-r.LeadSingle.Budget, 0)
		}
		out[s.ID] = amount
	}
	return out
}

// applyDecay accrues the long tail for every song released before this turn
// and retires releases whose songs have all left the window.
func (c *Controller) applyDecay(ctx context.Context, st *state) error {
	songs, err := st.q.ListSongs(ctx, st.game.ID)
	if err != nil {
		return err
	}
	type delta struct{ streams, revenue int64 }
	byRelease := map[string]delta{}
	var releaseOrder []string
	var total int64

	for _, s := range songs {
		if !s.IsReleased || s.ReleasedTurn >= st.turn {
			continue
		}
		res, err := st.calc.Decay(s.InitialStreams, st.turn-s.ReleasedTurn, st.game.Reputation, st.game.AccessTiers.Playlist)
		if err != nil {
			return err
		}
		revenue := game.RoundMoney(res.Revenue)
		if revenue == 0 && res.Streams == 0 && s.LastTurnRevenue == 0 {
			continue
		}
		s.TotalStreams += res.Streams
		s.TotalRevenue += revenue
		s.LastTurnRevenue = revenue
		if err := st.q.UpdateSong(ctx, s); err != nil {
			return fmt.Errorf("update song %s: %w", s.ID, err)
		}
		total += revenue
		if s.ReleaseID != "" {
			d, seen := byRelease[s.ReleaseID]
			if !seen {
				releaseOrder = append(releaseOrder, s.ReleaseID)
			}
			byRelease[s.ReleaseID] = delta{d.streams + res.Streams, d.revenue + revenue}
		}
	}

	for _, id := range releaseOrder {
		r, err := st.q.GetRelease(ctx, st.game.ID, id)
		if err != nil {
			return err
		}
		d := byRelease[id]
		r.Streams += d.streams
		r.Revenue += d.revenue
		if err := st.q.UpdateRelease(ctx, r); err != nil {
			return fmt.Errorf("update release %s: %w", r.ID, err)
		}
	}

	if err := c.retireReleases(ctx, st); err != nil {
		return err
	}
	if total > 0 {
		st.summary.RevenueBreakdown.Streaming += total
		st.summary.AddChange(game.ChangeRevenue, total, "Catalog streaming")
	}
	return nil
}

func (c *Controller) retireReleases(ctx context.Context, st *state) error {
	releases, err := st.q.ListReleases(ctx, st.game.ID)
	if err != nil {
		return err
	}
	for _, r := range releases {
		if r.Status != game.ReleaseReleased || st.turn-r.ReleaseTurn <= c.cfg.Decay.MaxMonths {
			continue
		}
		r.Status = game.ReleaseCatalog
		if err := st.q.UpdateRelease(ctx, r); err != nil {
			return fmt.Errorf("update release %s: %w", r.ID, err)
		}
		st.summary.AddChange(game.ChangeRelease, 0, fmt.Sprintf("%s moved to the back catalog", r.Title))
	}
	return nil
}

// chargeOperations books the label's fixed burn: overhead, artist fees and
// executive payroll.
func (c *Controller) chargeOperations(ctx context.Context, st *state) error {
	ops := c.cfg.Operations
	operations := st.calc.Int64Between(ops.BaseMin, ops.BaseMax)

	artists, err := st.q.ListArtists(ctx, st.game.ID)
	if err != nil {
		return err
	}
	var fees int64
	for _, a := range artists {
		fees += a.WeeklyFee
	}
	pay := c.payroll.Calculate(ctx, st.q, st.game.ID)

	b := &st.summary.ExpenseBreakdown
	b.Operations += operations
	b.ArtistSalaries += fees
	b.ExecutiveSalaries += pay.Total
	st.summary.AddChange(game.ChangeExpense, operations+fees+pay.Total, "Operating costs")
	return nil
}

// rollPress rolls coverage for everything that shipped this turn with a
// marketing push behind it.
func (c *Controller) rollPress(ctx context.Context, st *state) error {
	for _, sh := range st.shipped {
		if sh.spend <= 0 {
			continue
		}
		res, err := st.calc.PressOutcome(st.game.AccessTiers.Press, sh.spend, st.game.Reputation, sh.quality, sh.storyBonus)
		if err != nil {
			return err
		}
		if res.Pickups == 0 {
			continue
		}
		r, err := st.q.GetRelease(ctx, st.game.ID, sh.releaseID)
		if err != nil {
			return err
		}
		r.PressPickups += res.Pickups
		if err := st.q.UpdateRelease(ctx, r); err != nil {
			return fmt.Errorf("update release %s: %w", r.ID, err)
		}
		st.repGain += res.ReputationGain
		st.summary.AddChange(game.ChangePress, 0,
			fmt.Sprintf("%s picked up by %d outlets (+%d reputation)", sh.title, res.Pickups, res.ReputationGain))
	}
	return nil
}

// updateAccess applies reputation gained this turn and moves each access
// ladder up to the highest tier the reputation unlocks. Tiers never drop.
func (c *Controller) updateAccess(_ context.Context, st *state) error {
	before := st.game.Reputation
	st.game.Reputation = game.ClampReputation(before + st.repGain)
	st.summary.ReputationGain = st.game.Reputation - before

	for _, kind := range []game.AccessKind{game.AccessPlaylist, game.AccessPress, game.AccessVenue} {
		current := st.game.AccessTiers.Get(kind)
		next := c.cfg.TierForReputation(kind, st.game.Reputation)
		if c.cfg.TierRank(kind, next.Name) <= c.cfg.TierRank(kind, current) {
			continue
		}
		st.game.AccessTiers.Set(kind, next.Name)
		st.summary.AddChange(game.ChangeAccessTier, 0, fmt.Sprintf("%s access upgraded: %s to %s", kind, current, next.Name))
	}
	return nil
}

// commit settles money, moves the turn counter and writes the game row.
func (c *Controller) commit(ctx context.Context, st *state) error {
	s := &st.summary
	s.Revenue = s.RevenueBreakdown.Total()
	s.Expenses = s.ExpenseBreakdown.Total()

	g := &st.game
	g.Money += s.Revenue - s.Expenses
	g.Turn = st.turn + 1
	g.UsedFocusSlots = 0
	g.CreativeCapital += c.cfg.Campaign.CreativeCapitalPerTurn
	if g.CampaignLength > 0 && st.turn >= g.CampaignLength {
		g.CampaignCompleted = true
		s.AddChange(game.ChangeCampaign, g.Money, fmt.Sprintf("Campaign complete after %d turns", st.turn))
	}
	if err := st.q.UpdateGame(ctx, *g); err != nil {
		return fmt.Errorf("update game: %w", err)
	}

	s.MoneyAfter = g.Money
	s.Adjustments = st.calc.Adjustments()
	for _, adj := range s.Adjustments {
		c.log.Warn("value clamped",
			"game_id", g.ID, "turn", st.turn, "metric", adj.Metric, "original", adj.Original, "clamped", adj.Clamped)
	}
	return nil
}
