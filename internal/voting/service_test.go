package voting_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/memstore"
	"github.com/emilythestrangee/vamp/backend/internal/metrics"
	"github.com/emilythestrangee/vamp/backend/internal/models"
	"github.com/emilythestrangee/vamp/backend/internal/voting"
)

type fixture struct {
	store   *memstore.Store
	svc     *voting.Service
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	now := time.Now().UTC()

	require.NoError(t, store.CreateProject(ctx, models.Project{ID: "p1", Title: "Vibe Coder", UserID: "alice", CreatedAt: now}))
	require.NoError(t, store.CreateThread(ctx, models.Thread{ID: "t1", Title: "Show your stack", UserID: "alice", CreatedAt: now}))

	log, _ := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	return fixture{store: store, svc: voting.NewService(store, log, m), metrics: m}
}

func TestToggle_TwoActorsOnOneProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Toggle(ctx, "bob", models.TargetProject, "p1")
	require.NoError(t, err)
	assert.Equal(t, voting.Result{Voted: true, NewCount: 1}, res)

	res, err = f.svc.Toggle(ctx, "carol", models.TargetProject, "p1")
	require.NoError(t, err)
	assert.Equal(t, voting.Result{Voted: true, NewCount: 2}, res)

	res, err = f.svc.Toggle(ctx, "bob", models.TargetProject, "p1")
	require.NoError(t, err)
	assert.Equal(t, voting.Result{Voted: false, NewCount: 1}, res)

	assert.Equal(t, 1, f.store.LiveVotes(models.TargetProject, "p1"))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.VotesToggled.WithLabelValues("project", "voted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.VotesToggled.WithLabelValues("project", "unvoted")))
}

func TestToggle_DoubleToggleRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, kind := range models.TargetKinds {
		id := "p1"
		if kind == models.TargetThread {
			id = "t1"
		}

		first, err := f.svc.Toggle(ctx, "bob", kind, id)
		require.NoError(t, err)
		second, err := f.svc.Toggle(ctx, "bob", kind, id)
		require.NoError(t, err)

		assert.True(t, first.Voted, kind)
		assert.False(t, second.Voted, kind)
		assert.Equal(t, 0, second.NewCount, kind)
		assert.Equal(t, 0, f.store.LiveVotes(kind, id), kind)
	}
}

func TestToggle_KindsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Toggle(ctx, "bob", models.TargetProject, "p1")
	require.NoError(t, err)

	res, err := f.svc.Toggle(ctx, "bob", models.TargetThread, "t1")
	require.NoError(t, err)
	assert.Equal(t, voting.Result{Voted: true, NewCount: 1}, res)

	p, err := f.store.Project(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.VoteCount)
}

func TestToggle_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   string
		kind    models.TargetKind
		target  string
		wantErr error
	}{
		{name: "anonymous", actor: "", kind: models.TargetProject, target: "p1", wantErr: apperr.ErrUnauthenticated},
		{name: "unknown project", actor: "bob", kind: models.TargetProject, target: "nope", wantErr: apperr.ErrNotFound},
		{name: "unknown thread", actor: "bob", kind: models.TargetThread, target: "p1", wantErr: apperr.ErrNotFound},
		{name: "empty target", actor: "bob", kind: models.TargetProject, target: "", wantErr: apperr.ErrNotFound},
		{name: "unsupported kind", actor: "bob", kind: models.TargetKind("comment"), target: "p1", wantErr: apperr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Toggle(ctx, tt.actor, tt.kind, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	p, err := f.store.Project(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.VoteCount)
}

func TestToggle_RandomSequenceKeepsCounterExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	actors := []string{"a", "b", "c", "d", "e"}
	targets := []struct {
		kind models.TargetKind
		id   string
	}{
		{models.TargetProject, "p1"},
		{models.TargetThread, "t1"},
	}

	for i := 0; i < 300; i++ {
		actor := actors[rng.Intn(len(actors))]
		target := targets[rng.Intn(len(targets))]

		res, err := f.svc.Toggle(ctx, actor, target.kind, target.id)
		require.NoError(t, err)
		require.Equal(t, f.store.LiveVotes(target.kind, target.id), res.NewCount, "step %d", i)
	}

	drift, err := f.store.CounterDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestToggle_ConcurrentActors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const actors = 50

	var g errgroup.Group
	for i := 0; i < actors; i++ {
		actor := fmt.Sprintf("actor-%d", i)
		g.Go(func() error {
			_, err := f.svc.Toggle(ctx, actor, models.TargetProject, "p1")
			return err
		})
	}
	require.NoError(t, g.Wait())

	p, err := f.store.Project(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, actors, p.VoteCount)
	assert.Equal(t, actors, f.store.LiveVotes(models.TargetProject, "p1"))
}

func TestToggle_SameActorConcurrentPairsCancelOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := f.svc.Toggle(ctx, "bob", models.TargetThread, "t1")
			return err
		})
	}
	require.NoError(t, g.Wait())

	th, err := f.store.Thread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, th.VoteCount)
	assert.Equal(t, 0, f.store.LiveVotes(models.TargetThread, "t1"))
}
