// Package memstore is an in-memory implementation of every ledger and store
// contract. A transaction runs against a copy of the state under the write
// lock and is swapped in only when it succeeds, so a failed unit leaves no
// partial write behind.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/discussion"
	"github.com/emilythestrangee/vamp/backend/internal/models"
	"github.com/emilythestrangee/vamp/backend/internal/views"
	"github.com/emilythestrangee/vamp/backend/internal/voting"
)

type state struct {
	users        map[string]models.User
	projects     map[string]models.Project
	threads      map[string]models.Thread
	votes        map[models.VoteKey]models.Vote
	grants       map[string]models.Grant
	applications map[string]models.GrantApplication
	replies      map[string]models.ThreadReply
	comments     map[string]models.Comment
}

func newState() state {
	return state{
		users:        map[string]models.User{},
		projects:     map[string]models.Project{},
		threads:      map[string]models.Thread{},
		votes:        map[models.VoteKey]models.Vote{},
		grants:       map[string]models.Grant{},
		applications: map[string]models.GrantApplication{},
		replies:      map[string]models.ThreadReply{},
		comments:     map[string]models.Comment{},
	}
}

func (s state) clone() state {
	return state{
		users:        maps.Clone(s.users),
		projects:     maps.Clone(s.projects),
		threads:      maps.Clone(s.threads),
		votes:        maps.Clone(s.votes),
		grants:       maps.Clone(s.grants),
		applications: maps.Clone(s.applications),
		replies:      maps.Clone(s.replies),
		comments:     maps.Clone(s.comments),
	}
}

type Store struct {
	mu    sync.RWMutex
	state state
}

func New() *Store {
	return &Store{state: newState()}
}

var (
	_ voting.Ledger       = (*Store)(nil)
	_ applications.Ledger = (*Store)(nil)
	_ catalog.Store       = (*Store)(nil)
	_ discussion.Ledger   = (*Store)(nil)
	_ views.Source        = (*Store)(nil)
)

func (s *Store) transact(ctx context.Context, fn func(tx *tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := &tx{st: s.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	s.state = work.st
	return nil
}

func (s *Store) WithinVoteTx(ctx context.Context, fn func(voting.VoteTx) error) error {
	return s.transact(ctx, func(t *tx) error { return fn(t) })
}

func (s *Store) WithinApplicationTx(ctx context.Context, fn func(applications.ApplicationTx) error) error {
	return s.transact(ctx, func(t *tx) error { return fn(t) })
}

func (s *Store) WithinDiscussionTx(ctx context.Context, fn func(discussion.DiscussionTx) error) error {
	return s.transact(ctx, func(t *tx) error { return fn(t) })
}

func (s *Store) read() *tx {
	return &tx{st: s.state}
}

// tx operates on one working copy of the state.
type tx struct {
	st state
}

func (t *tx) LockTarget(_ context.Context, kind models.TargetKind, id string) (models.Target, error) {
	switch kind {
	case models.TargetProject:
		p, ok := t.st.projects[id]
		if !ok {
			return models.Target{}, apperr.ErrNotFound
		}
		return p.Target(), nil
	case models.TargetThread:
		th, ok := t.st.threads[id]
		if !ok {
			return models.Target{}, apperr.ErrNotFound
		}
		return th.Target(), nil
	}
	return models.Target{}, fmt.Errorf("target kind %q: %w", kind, apperr.ErrInvalidInput)
}

func (t *tx) HasVote(_ context.Context, key models.VoteKey) (bool, error) {
	_, ok := t.st.votes[key]
	return ok, nil
}

func (t *tx) InsertVote(_ context.Context, v models.Vote) (bool, error) {
	key := models.VoteKey{ActorID: v.ActorID, Kind: v.TargetKind, TargetID: v.TargetID}
	if _, ok := t.st.votes[key]; ok {
		return false, nil
	}
	t.st.votes[key] = v
	return true, nil
}

func (t *tx) DeleteVote(_ context.Context, key models.VoteKey) (bool, error) {
	if _, ok := t.st.votes[key]; !ok {
		return false, nil
	}
	delete(t.st.votes, key)
	return true, nil
}

func (t *tx) AddToVoteCount(_ context.Context, kind models.TargetKind, id string, delta int) error {
	switch kind {
	case models.TargetProject:
		p, ok := t.st.projects[id]
		if !ok {
			return apperr.ErrNotFound
		}
		if p.VoteCount+delta < 0 {
			return fmt.Errorf("project %s vote count would go negative: %w", id, apperr.ErrConflict)
		}
		p.VoteCount += delta
		t.st.projects[id] = p
	case models.TargetThread:
		th, ok := t.st.threads[id]
		if !ok {
			return apperr.ErrNotFound
		}
		if th.VoteCount+delta < 0 {
			return fmt.Errorf("thread %s vote count would go negative: %w", id, apperr.ErrConflict)
		}
		th.VoteCount += delta
		t.st.threads[id] = th
	default:
		return fmt.Errorf("target kind %q: %w", kind, apperr.ErrInvalidInput)
	}
	return nil
}

func (t *tx) VoteCount(ctx context.Context, kind models.TargetKind, id string) (int, error) {
	target, err := t.LockTarget(ctx, kind, id)
	if err != nil {
		return 0, err
	}
	return target.VoteCount, nil
}

func (t *tx) User(_ context.Context, id string) (models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (t *tx) Project(_ context.Context, id string) (models.Project, error) {
	p, ok := t.st.projects[id]
	if !ok {
		return models.Project{}, apperr.ErrNotFound
	}
	return p, nil
}

func (t *tx) Grant(_ context.Context, id string) (models.Grant, error) {
	g, ok := t.st.grants[id]
	if !ok {
		return models.Grant{}, apperr.ErrNotFound
	}
	return g, nil
}

func (t *tx) InsertGrant(_ context.Context, g models.Grant) error {
	if _, ok := t.st.grants[g.ID]; ok {
		return fmt.Errorf("grant %s: %w", g.ID, apperr.ErrConflict)
	}
	t.st.grants[g.ID] = g
	return nil
}

func (t *tx) UpdateGrantStatus(_ context.Context, id string, status models.GrantStatus, now time.Time) error {
	g, ok := t.st.grants[id]
	if !ok {
		return apperr.ErrNotFound
	}
	g.Status = status
	g.UpdatedAt = now
	t.st.grants[id] = g
	return nil
}

func (t *tx) HasApplication(_ context.Context, projectID, grantID string) (bool, error) {
	for _, a := range t.st.applications {
		if a.ProjectID == projectID && a.GrantID == grantID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) InsertApplication(ctx context.Context, a models.GrantApplication) (bool, error) {
	exists, _ := t.HasApplication(ctx, a.ProjectID, a.GrantID)
	if exists {
		return false, nil
	}
	t.st.applications[a.ID] = a
	return true, nil
}

func (t *tx) LockApplication(_ context.Context, id string) (models.GrantApplication, error) {
	a, ok := t.st.applications[id]
	if !ok {
		return models.GrantApplication{}, apperr.ErrNotFound
	}
	return a, nil
}

func (t *tx) UpdateApplicationStatus(_ context.Context, id string, status models.ApplicationStatus, now time.Time) error {
	a, ok := t.st.applications[id]
	if !ok {
		return apperr.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = now
	t.st.applications[id] = a
	return nil
}

func (t *tx) LockThread(_ context.Context, id string) (models.Thread, error) {
	th, ok := t.st.threads[id]
	if !ok {
		return models.Thread{}, apperr.ErrNotFound
	}
	return th, nil
}

func (t *tx) Reply(_ context.Context, id string) (models.ThreadReply, error) {
	r, ok := t.st.replies[id]
	if !ok {
		return models.ThreadReply{}, apperr.ErrNotFound
	}
	return r, nil
}

func (t *tx) InsertReply(_ context.Context, r models.ThreadReply) error {
	if _, ok := t.st.replies[r.ID]; ok {
		return fmt.Errorf("reply %s: %w", r.ID, apperr.ErrConflict)
	}
	t.st.replies[r.ID] = r
	return nil
}

func (t *tx) AddToReplyCount(_ context.Context, threadID string, delta int) error {
	th, ok := t.st.threads[threadID]
	if !ok {
		return apperr.ErrNotFound
	}
	if th.ReplyCount+delta < 0 {
		return fmt.Errorf("thread %s reply count would go negative: %w", threadID, apperr.ErrConflict)
	}
	th.ReplyCount += delta
	t.st.threads[threadID] = th
	return nil
}

func (t *tx) ReplyCount(ctx context.Context, threadID string) (int, error) {
	th, err := t.LockThread(ctx, threadID)
	if err != nil {
		return 0, err
	}
	return th.ReplyCount, nil
}

func (t *tx) Comment(_ context.Context, id string) (models.Comment, error) {
	c, ok := t.st.comments[id]
	if !ok {
		return models.Comment{}, apperr.ErrNotFound
	}
	return c, nil
}

func (t *tx) InsertComment(_ context.Context, c models.Comment) error {
	if _, ok := t.st.comments[c.ID]; ok {
		return fmt.Errorf("comment %s: %w", c.ID, apperr.ErrConflict)
	}
	t.st.comments[c.ID] = c
	return nil
}

func (t *tx) DeleteComment(_ context.Context, id string) (int, error) {
	if _, ok := t.st.comments[id]; !ok {
		return 0, nil
	}
	doomed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for cid, c := range t.st.comments {
			if c.ParentID != nil && doomed[*c.ParentID] && !doomed[cid] {
				doomed[cid] = true
				grew = true
			}
		}
	}
	for cid := range doomed {
		delete(t.st.comments, cid)
	}
	return len(doomed), nil
}

// Read side.

func (s *Store) ActiveGrants(_ context.Context, now time.Time) ([]models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Grant{}
	for _, g := range s.state.grants {
		if g.AcceptsApplications(now) {
			out = append(out, g)
		}
	}
	sortGrants(out)
	return out, nil
}

func (s *Store) Grant(ctx context.Context, id string) (models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().Grant(ctx, id)
}

func (s *Store) Application(ctx context.Context, id string) (models.GrantApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().LockApplication(ctx, id)
}

func (s *Store) ListGrants(_ context.Context, sponsorID string) ([]models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Grant{}
	for _, g := range s.state.grants {
		if sponsorID == "" || g.SponsorID == sponsorID {
			out = append(out, g)
		}
	}
	sortGrants(out)
	return out, nil
}

func (s *Store) ListApplications(_ context.Context, f models.ApplicationFilter) ([]models.GrantApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.GrantApplication{}
	for _, a := range s.state.applications {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) EnsureUser(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.state.users[u.ID]; ok {
		return existing, nil
	}
	for _, existing := range s.state.users {
		if existing.Username == u.Username {
			return models.User{}, fmt.Errorf("username %q taken: %w", u.Username, apperr.ErrConflict)
		}
	}
	s.state.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUserRole(_ context.Context, id string, role models.Role) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.state.users[id] = u
	return u, nil
}

func (s *Store) User(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().User(ctx, id)
}

func (s *Store) UsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.User{}
	for _, u := range s.state.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) CreateProject(_ context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.projects[p.ID]; ok {
		return fmt.Errorf("project %s: %w", p.ID, apperr.ErrConflict)
	}
	p.VoteCount = 0
	s.state.projects[p.ID] = p
	return nil
}

func (s *Store) Project(ctx context.Context, id string) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().Project(ctx, id)
}

func (s *Store) ListProjects(_ context.Context, ownerID string) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Project{}
	for _, p := range s.state.projects {
		if ownerID == "" || p.UserID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VoteCount != out[j].VoteCount {
			return out[i].VoteCount > out[j].VoteCount
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateThread(_ context.Context, th models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.threads[th.ID]; ok {
		return fmt.Errorf("thread %s: %w", th.ID, apperr.ErrConflict)
	}
	th.VoteCount = 0
	th.ReplyCount = 0
	s.state.threads[th.ID] = th
	return nil
}

func (s *Store) Thread(_ context.Context, id string) (models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	th, ok := s.state.threads[id]
	if !ok {
		return models.Thread{}, apperr.ErrNotFound
	}
	return th, nil
}

func (s *Store) ListReplies(_ context.Context, threadID string) ([]models.ThreadReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ThreadReply{}
	for _, r := range s.state.replies {
		if r.ThreadID == threadID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListComments(_ context.Context, projectID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Comment{}
	for _, c := range s.state.comments {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CounterDrift lists targets whose stored count disagrees with the votes
// referencing them.
func (s *Store) CounterDrift(_ context.Context) ([]models.CounterDrift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := map[models.TargetKind]map[string]int{}
	for key := range s.state.votes {
		if live[key.Kind] == nil {
			live[key.Kind] = map[string]int{}
		}
		live[key.Kind][key.TargetID]++
	}

	var drift []models.CounterDrift
	check := func(t models.Target) {
		if n := live[t.Kind][t.ID]; n != t.VoteCount {
			drift = append(drift, models.CounterDrift{Kind: t.Kind, TargetID: t.ID, Stored: t.VoteCount, LiveVotes: n})
		}
	}
	for _, p := range s.state.projects {
		check(p.Target())
	}
	for _, th := range s.state.threads {
		check(th.Target())
	}
	return drift, nil
}

// LiveVotes counts the vote facts referencing one target.
func (s *Store) LiveVotes(kind models.TargetKind, id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for key := range s.state.votes {
		if key.Kind == kind && key.TargetID == id {
			n++
		}
	}
	return n
}

func sortGrants(gs []models.Grant) {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].CreatedAt.After(gs[j].CreatedAt)
		}
		return gs[i].ID < gs[j].ID
	})
}
