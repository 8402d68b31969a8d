// Package memstore is an in-memory Store used by tests and the local CLI
// sandbox. Transactions copy the whole state, run against the copy and swap
// it in on success, so a failed turn leaves nothing behind.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"labelsim/internal/game"
	"labelsim/internal/store"
)

type data struct {
	games      map[string]game.GameState
	artists    map[string]game.Artist
	projects   map[string]game.Project
	songs      map[string]game.Song
	releases   map[string]game.Release
	executives map[string]game.Executive
}

func newData() *data {
	return &data{
		games:      map[string]game.GameState{},
		artists:    map[string]game.Artist{},
		projects:   map[string]game.Project{},
		songs:      map[string]game.Song{},
		releases:   map[string]game.Release{},
		executives: map[string]game.Executive{},
	}
}

func (d *data) clone() *data {
	out := newData()
	for k, v := range d.games {
		out.games[k] = v
	}
	for k, v := range d.artists {
		out.artists[k] = v
	}
	for k, v := range d.projects {
		out.projects[k] = v
	}
	for k, v := range d.songs {
		out.songs[k] = v
	}
	for k, v := range d.releases {
		out.releases[k] = copyRelease(v)
	}
	for k, v := range d.executives {
		out.executives[k] = v
	}
	return out
}

func copyRelease(r game.Release) game.Release {
	if r.LeadSingle != nil {
		ls := *r.LeadSingle
		r.LeadSingle = &ls
	}
	return r
}

type Store struct {
	mu sync.RWMutex
	d  *data
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newData()}
}

// WithinTx holds the write lock for the whole of fn. fn must use q, never
// the Store itself.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.d.clone()
	if err := fn(ctx, view{d: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.d = work
	return nil
}

func (s *Store) ListAutoAdvanceGames(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, g := range s.d.games {
		if g.AutoAdvance && !g.CampaignCompleted {
			ids = append(ids, g.ID)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) read() view {
	return view{d: s.d}
}

func (s *Store) write(ctx context.Context, fn func(v view) error) error {
	return s.WithinTx(ctx, func(_ context.Context, q store.Queries) error {
		return fn(q.(view))
	})
}

func (s *Store) GetGame(ctx context.Context, gameID string) (game.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetGame(ctx, gameID)
}

func (s *Store) InsertGame(ctx context.Context, g game.GameState) error {
	return s.write(ctx, func(v view) error { return v.InsertGame(ctx, g) })
}

func (s *Store) UpdateGame(ctx context.Context, g game.GameState) error {
	return s.write(ctx, func(v view) error { return v.UpdateGame(ctx, g) })
}

func (s *Store) ListArtists(ctx context.Context, gameID string) ([]game.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListArtists(ctx, gameID)
}

func (s *Store) GetArtist(ctx context.Context, gameID, artistID string) (game.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetArtist(ctx, gameID, artistID)
}

func (s *Store) InsertArtist(ctx context.Context, a game.Artist) error {
	return s.write(ctx, func(v view) error { return v.InsertArtist(ctx, a) })
}

func (s *Store) ListProjects(ctx context.Context, gameID string) ([]game.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListProjects(ctx, gameID)
}

func (s *Store) GetProject(ctx context.Context, gameID, projectID string) (game.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetProject(ctx, gameID, projectID)
}

func (s *Store) InsertProject(ctx context.Context, p game.Project) error {
	return s.write(ctx, func(v view) error { return v.InsertProject(ctx, p) })
}

func (s *Store) UpdateProject(ctx context.Context, p game.Project) error {
	return s.write(ctx, func(v view) error { return v.UpdateProject(ctx, p) })
}

func (s *Store) ListSongs(ctx context.Context, gameID string) ([]game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListSongs(ctx, gameID)
}

func (s *Store) ListArtistSongs(ctx context.Context, gameID, artistID string) ([]game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListArtistSongs(ctx, gameID, artistID)
}

func (s *Store) ListProjectSongs(ctx context.Context, gameID, projectID string) ([]game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListProjectSongs(ctx, gameID, projectID)
}

func (s *Store) ListReleaseSongs(ctx context.Context, gameID, releaseID string) ([]game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListReleaseSongs(ctx, gameID, releaseID)
}

func (s *Store) GetSong(ctx context.Context, gameID, songID string) (game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetSong(ctx, gameID, songID)
}

func (s *Store) InsertSong(ctx context.Context, song game.Song) error {
	return s.write(ctx, func(v view) error { return v.InsertSong(ctx, song) })
}

func (s *Store) UpdateSong(ctx context.Context, song game.Song) error {
	return s.write(ctx, func(v view) error { return v.UpdateSong(ctx, song) })
}

func (s *Store) RecordSongProduction(ctx context.Context, gameID, songID, projectID string, budget int64) error {
	return s.write(ctx, func(v view) error { return v.RecordSongProduction(ctx, gameID, songID, projectID, budget) })
}

func (s *Store) AddSongMarketing(ctx context.Context, gameID, songID string, amount int64) error {
	return s.write(ctx, func(v view) error { return v.AddSongMarketing(ctx, gameID, songID, amount) })
}

func (s *Store) ListReleases(ctx context.Context, gameID string) ([]game.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListReleases(ctx, gameID)
}

func (s *Store) GetRelease(ctx context.Context, gameID, releaseID string) (game.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetRelease(ctx, gameID, releaseID)
}

func (s *Store) InsertRelease(ctx context.Context, r game.Release) error {
	return s.write(ctx, func(v view) error { return v.InsertRelease(ctx, r) })
}

func (s *Store) UpdateRelease(ctx context.Context, r game.Release) error {
	return s.write(ctx, func(v view) error { return v.UpdateRelease(ctx, r) })
}

func (s *Store) ClaimAllocation(ctx context.Context, gameID, releaseID string, phase game.AllocationPhase) (bool, error) {
	var claimed bool
	err := s.write(ctx, func(v view) error {
		var err error
		claimed, err = v.ClaimAllocation(ctx, gameID, releaseID, phase)
		return err
	})
	return claimed, err
}

func (s *Store) ListExecutives(ctx context.Context, gameID string) ([]game.Executive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListExecutives(ctx, gameID)
}

func (s *Store) InsertExecutive(ctx context.Context, e game.Executive) error {
	return s.write(ctx, func(v view) error { return v.InsertExecutive(ctx, e) })
}

// view runs queries against one snapshot. Callers hold the Store's lock.
type view struct {
	d *data
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrConflict)
}

func (v view) GetGame(_ context.Context, gameID string) (game.GameState, error) {
	g, ok := v.d.games[gameID]
	if !ok {
		return game.GameState{}, notFound("game", gameID)
	}
	return g, nil
}

func (v view) InsertGame(_ context.Context, g game.GameState) error {
	if _, ok := v.d.games[g.ID]; ok {
		return conflict("game", g.ID)
	}
	v.d.games[g.ID] = g
	return nil
}

func (v view) UpdateGame(_ context.Context, g game.GameState) error {
	if _, ok := v.d.games[g.ID]; !ok {
		return notFound("game", g.ID)
	}
	v.d.games[g.ID] = g
	return nil
}

func (v view) ListArtists(_ context.Context, gameID string) ([]game.Artist, error) {
	out := collect(v.d.artists, func(a game.Artist) bool { return a.GameID == gameID })
	slices.SortFunc(out, func(a, b game.Artist) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (v view) GetArtist(_ context.Context, gameID, artistID string) (game.Artist, error) {
	a, ok := v.d.artists[artistID]
	if !ok || a.GameID != gameID {
		return game.Artist{}, notFound("artist", artistID)
	}
	return a, nil
}

func (v view) InsertArtist(_ context.Context, a game.Artist) error {
	if _, ok := v.d.artists[a.ID]; ok {
		return conflict("artist", a.ID)
	}
	v.d.artists[a.ID] = a
	return nil
}

func (v view) ListProjects(_ context.Context, gameID string) ([]game.Project, error) {
	out := collect(v.d.projects, func(p game.Project) bool { return p.GameID == gameID })
	slices.SortFunc(out, func(a, b game.Project) int {
		return cmp.Or(cmp.Compare(a.StartTurn, b.StartTurn), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (v view) GetProject(_ context.Context, gameID, projectID string) (game.Project, error) {
	p, ok := v.d.projects[projectID]
	if !ok || p.GameID != gameID {
		return game.Project{}, notFound("project", projectID)
	}
	return p, nil
}

func (v view) InsertProject(_ context.Context, p game.Project) error {
	if _, ok := v.d.projects[p.ID]; ok {
		return conflict("project", p.ID)
	}
	v.d.projects[p.ID] = p
	return nil
}

func (v view) UpdateProject(ctx context.Context, p game.Project) error {
	if _, err := v.GetProject(ctx, p.GameID, p.ID); err != nil {
		return err
	}
	v.d.projects[p.ID] = p
	return nil
}

func songOrder(a, b game.Song) int {
	return cmp.Or(
		cmp.Compare(a.CreatedTurn, b.CreatedTurn),
		cmp.Compare(a.ProjectID, b.ProjectID),
		cmp.Compare(a.TrackNumber, b.TrackNumber),
		cmp.Compare(a.ID, b.ID),
	)
}

func (v view) songs(keep func(game.Song) bool, order func(a, b game.Song) int) []game.Song {
	out := collect(v.d.songs, keep)
	slices.SortFunc(out, order)
	return out
}

func (v view) ListSongs(_ context.Context, gameID string) ([]game.Song, error) {
	return v.songs(func(s game.Song) bool { return s.GameID == gameID }, songOrder), nil
}

func (v view) ListArtistSongs(_ context.Context, gameID, artistID string) ([]game.Song, error) {
	return v.songs(func(s game.Song) bool { return s.GameID == gameID && s.ArtistID == artistID }, songOrder), nil
}

func (v view) ListProjectSongs(_ context.Context, gameID, projectID string) ([]game.Song, error) {
	return v.songs(func(s game.Song) bool { return s.GameID == gameID && s.ProjectID == projectID }, songOrder), nil
}

func (v view) ListReleaseSongs(_ context.Context, gameID, releaseID string) ([]game.Song, error) {
	return v.songs(
		func(s game.Song) bool { return s.GameID == gameID && s.ReleaseID == releaseID },
		func(a, b game.Song) int {
			return cmp.Or(cmp.Compare(a.TrackNumber, b.TrackNumber), cmp.Compare(a.ID, b.ID))
		},
	), nil
}

func (v view) GetSong(_ context.Context, gameID, songID string) (game.Song, error) {
	s, ok := v.d.songs[songID]
	if !ok || s.GameID != gameID {
		return game.Song{}, notFound("song", songID)
	}
	return s, nil
}

func (v view) InsertSong(_ context.Context, s game.Song) error {
	if _, ok := v.d.songs[s.ID]; ok {
		return conflict("song", s.ID)
	}
	v.d.songs[s.ID] = s
	return nil
}

func (v view) UpdateSong(ctx context.Context, s game.Song) error {
	cur, err := v.GetSong(ctx, s.GameID, s.ID)
	if err != nil {
		return err
	}
	s.ProductionBudget = cur.ProductionBudget
	s.MarketingAllocation = cur.MarketingAllocation
	v.d.songs[s.ID] = s
	return nil
}

func (v view) RecordSongProduction(ctx context.Context, gameID, songID, projectID string, budget int64) error {
	s, err := v.GetSong(ctx, gameID, songID)
	if err != nil {
		return err
	}
	s.ProjectID = projectID
	s.ProductionBudget = budget
	v.d.songs[songID] = s
	return nil
}

func (v view) AddSongMarketing(ctx context.Context, gameID, songID string, amount int64) error {
	s, err := v.GetSong(ctx, gameID, songID)
	if err != nil {
		return err
	}
	s.MarketingAllocation += amount
	v.d.songs[songID] = s
	return nil
}

func (v view) ListReleases(_ context.Context, gameID string) ([]game.Release, error) {
	out := collect(v.d.releases, func(r game.Release) bool { return r.GameID == gameID })
	for i := range out {
		out[i] = copyRelease(out[i])
	}
	slices.SortFunc(out, func(a, b game.Release) int {
		return cmp.Or(cmp.Compare(a.ReleaseTurn, b.ReleaseTurn), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (v view) GetRelease(_ context.Context, gameID, releaseID string) (game.Release, error) {
	r, ok := v.d.releases[releaseID]
	if !ok || r.GameID != gameID {
		return game.Release{}, notFound("release", releaseID)
	}
	return copyRelease(r), nil
}

func (v view) InsertRelease(_ context.Context, r game.Release) error {
	if _, ok := v.d.releases[r.ID]; ok {
		return conflict("release", r.ID)
	}
	r = copyRelease(r)
	r.BaseAllocation = r.Allocation(game.PhaseBase)
	r.LeadAllocation = r.Allocation(game.PhaseLead)
	v.d.releases[r.ID] = r
	return nil
}

func (v view) UpdateRelease(ctx context.Context, r game.Release) error {
	cur, err := v.GetRelease(ctx, r.GameID, r.ID)
	if err != nil {
		return err
	}
	r = copyRelease(r)
	r.BaseAllocation = cur.BaseAllocation
	r.LeadAllocation = cur.LeadAllocation
	v.d.releases[r.ID] = r
	return nil
}

func (v view) ClaimAllocation(ctx context.Context, gameID, releaseID string, phase game.AllocationPhase) (bool, error) {
	r, err := v.GetRelease(ctx, gameID, releaseID)
	if err != nil {
		return false, err
	}
	if r.Allocation(phase) == game.Allocated {
		return false, nil
	}
	if phase == game.PhaseLead {
		r.LeadAllocation = game.Allocated
	} else {
		r.BaseAllocation = game.Allocated
	}
	v.d.releases[releaseID] = r
	return true, nil
}

func (v view) ListExecutives(_ context.Context, gameID string) ([]game.Executive, error) {
	out := collect(v.d.executives, func(e game.Executive) bool { return e.GameID == gameID })
	slices.SortFunc(out, func(a, b game.Executive) int {
		return cmp.Or(cmp.Compare(a.Role, b.Role), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (v view) InsertExecutive(_ context.Context, e game.Executive) error {
	if _, ok := v.d.executives[e.ID]; ok {
		return conflict("executive", e.ID)
	}
	v.d.executives[e.ID] = e
	return nil
}

func collect[T any](m map[string]T, keep func(T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
