package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"labelsim/internal/balance"
	"labelsim/internal/feed"
	"labelsim/internal/game"
	"labelsim/internal/ledger"
	"labelsim/internal/payroll"
	"labelsim/internal/roi"
	"labelsim/internal/scenario"
	"labelsim/internal/store"
	"labelsim/internal/turn"
)

type Options struct {
	ROITTL  time.Duration
	ROISize int
	// Sink receives every committed turn summary. Nil publishes nowhere.
	Sink feed.Sink
}

type Server struct {
	cfg     *balance.Config
	log     *slog.Logger
	store   store.Store
	turns   *turn.Controller
	roi     *roi.Cache
	payroll *payroll.Calculator
	sink    feed.Sink
	mux     *chi.Mux
}

func New(cfg *balance.Config, logger *slog.Logger, s store.Store, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	turns := turn.New(s, cfg, logger)
	srv := &Server{
		cfg:     cfg,
		log:     logger,
		store:   s,
		turns:   turns,
		roi:     roi.New(turns.Ledger(), opts.ROITTL, opts.ROISize),
		payroll: payroll.New(cfg, logger),
		sink:    opts.Sink,
		mux:     chi.NewRouter(),
	}
	srv.routes()
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "balance_version": s.cfg.Version})
	})

	r.Route("/v1/games", func(r chi.Router) {
		r.Post("/", s.handleCreateGame)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGameState)
			r.Post("/turns", s.handleAdvanceTurn)
			r.Post("/projects", s.handlePlanProject)
			r.Post("/releases", s.handlePlanRelease)
			r.Post("/releases/{release_id}/allocate", s.handleBookMarketing)
			r.Get("/payroll", s.handlePayroll)
			r.Get("/roi/{entity}/{entity_id}", s.handleROI)
		})
	})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID          string `json:"id"`
		Seed        *int64 `json:"seed"`
		AutoAdvance bool   `json:"auto_advance"`
	}
	if err := decodeOptionalJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seed := time.Now().UnixNano()
	if in.Seed != nil {
		seed = *in.Seed
	}
	g, err := scenario.Seed(r.Context(), s.store, s.cfg, scenario.Options{
		ID:          strings.TrimSpace(in.ID),
		Seed:        seed,
		AutoAdvance: in.AutoAdvance,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info("game created", "game_id", g.ID, "seed", g.Seed)
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	view, err := scenario.LoadView(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ExpectedTurn int `json:"expected_turn"`
	}
	if err := decodeOptionalJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	summary, err := s.turns.AdvanceWithRetry(r.Context(), id, in.ExpectedTurn)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.sink != nil {
		// Publishing is best effort; the turn is already committed.
		if err := s.sink.Publish(context.WithoutCancel(r.Context()), summary); err != nil {
			s.log.Warn("turn summary not published", "game_id", id, "turn", summary.Turn, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePlanProject(w http.ResponseWriter, r *http.Request) {
	var in scenario.ProjectPlan
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := scenario.PlanProject(r.Context(), s.store, s.cfg, chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePlanRelease(w http.ResponseWriter, r *http.Request) {
	var in scenario.ReleasePlan
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rel, err := scenario.PlanRelease(r.Context(), s.store, s.cfg, chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (s *Server) handleBookMarketing(w http.ResponseWriter, r *http.Request) {
	alloc, err := scenario.BookMarketing(r.Context(), s.store, s.turns.Ledger(), chi.URLParam(r, "id"), chi.URLParam(r, "release_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

func (s *Server) handlePayroll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetGame(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.payroll.Calculate(r.Context(), s.store, id))
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	entity, err := game.ParseEntityType(chi.URLParam(r, "entity"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	key := roi.Key{Entity: entity, EntityID: chi.URLParam(r, "entity_id"), GameID: chi.URLParam(r, "id")}

	var m ledger.Metrics
	if r.URL.Query().Get("fresh") == "1" {
		m, err = s.roi.Fresh(r.Context(), key)
	} else {
		m, err = s.roi.Get(r.Context(), key)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrCampaignComplete), errors.Is(err, game.ErrTurnConflict),
		errors.Is(err, game.ErrTxConflict), errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrFocusSlotsFull), errors.Is(err, game.ErrProducerLocked):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, game.ErrInvalidProject), errors.Is(err, game.ErrInvalidRelease),
		errors.Is(err, game.ErrInvalidEntityType), errors.Is(err, ledger.ErrEmptyRelease),
		errors.Is(err, ledger.ErrSongNotInRelease), errors.Is(err, ledger.ErrNegativeAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

// decodeOptionalJSON accepts an empty body and leaves out untouched.
func decodeOptionalJSON(r *http.Request, out any) error {
	if err := decodeJSON(r, out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
