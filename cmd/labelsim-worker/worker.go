package main

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"labelsim/internal/feed"
	"labelsim/internal/store"
	"labelsim/internal/turn"
)

// Games in one batch advance concurrently, each in its own transaction.
const parallelGames = 4

type worker struct {
	store store.Store
	turns *turn.Controller
	sinks feed.Sink
	batch int
	log   *slog.Logger
}

// tick plays one turn for every auto-advance game in the batch. A game that
// fails is logged and retried on the next tick; it does not stop the others.
func (w *worker) tick(ctx context.Context) error {
	ids, err := w.store.ListAutoAdvanceGames(ctx, w.batch)
	if err != nil {
		return err
	}
	var g errgroup.Group
	g.SetLimit(parallelGames)
	for _, id := range ids {
		g.Go(func() error {
			summary, err := w.turns.AdvanceWithRetry(ctx, id, 0)
			if err != nil {
				w.log.Error("auto-advance failed", "game_id", id, "err", err)
				return nil
			}
			if err := w.sinks.Publish(ctx, summary); err != nil {
				w.log.Warn("turn summary not published", "game_id", id, "turn", summary.Turn, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	w.log.Info("auto-advance tick complete", "games", len(ids))
	return nil
}
