package discussion_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/discussion"
	"github.com/emilythestrangee/vamp/backend/internal/memstore"
	"github.com/emilythestrangee/vamp/backend/internal/metrics"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memstore.Store
	svc     *discussion.Service
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	for _, u := range []models.User{
		{ID: "alice", Username: "alice", Role: models.RoleBuilder},
		{ID: "bob", Username: "bob", Role: models.RoleBuilder},
	} {
		_, err := store.EnsureUser(ctx, u)
		require.NoError(t, err)
	}
	require.NoError(t, store.CreateThread(ctx, models.Thread{ID: "t1", Title: "Stack check", Content: "What are you shipping?", UserID: "alice", CreatedAt: epoch}))
	require.NoError(t, store.CreateThread(ctx, models.Thread{ID: "t2", Title: "Other", Content: "Elsewhere", UserID: "bob", CreatedAt: epoch}))
	require.NoError(t, store.CreateProject(ctx, models.Project{ID: "p1", Title: "Vibe Coder", UserID: "alice", CreatedAt: epoch}))
	require.NoError(t, store.CreateProject(ctx, models.Project{ID: "p2", Title: "Prompt Garden", UserID: "bob", CreatedAt: epoch}))

	log, _ := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	var tick atomic.Int64
	svc := discussion.NewService(store, log, m).WithClock(func() time.Time {
		return epoch.Add(time.Duration(tick.Add(1)) * time.Second)
	})
	return &fixture{store: store, svc: svc, metrics: m}
}

func TestAddReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.AddReply(ctx, "bob", "t1", "  nice thread  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "nice thread", res.Reply.Content)
	assert.Equal(t, 1, res.ReplyCount)
	assert.Nil(t, res.Reply.ParentID)

	nested, err := f.svc.AddReply(ctx, "alice", "t1", "thanks", &res.Reply.ID)
	require.NoError(t, err)
	require.NotNil(t, nested.Reply.ParentID)
	assert.Equal(t, res.Reply.ID, *nested.Reply.ParentID)
	assert.Equal(t, 2, nested.ReplyCount)

	blank := "  "
	top, err := f.svc.AddReply(ctx, "alice", "t1", "top level", &blank)
	require.NoError(t, err)
	assert.Nil(t, top.Reply.ParentID)

	other, err := f.svc.AddReply(ctx, "bob", "t2", "over here", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   string
		thread  string
		content string
		parent  *string
		wantErr error
	}{
		{name: "anonymous", actor: "", thread: "t1", content: "hello", wantErr: apperr.ErrUnauthenticated},
		{name: "too short after trim", actor: "bob", thread: "t1", content: "  a  ", wantErr: apperr.ErrInvalidInput},
		{name: "missing thread", actor: "bob", thread: "nope", content: "hello", wantErr: apperr.ErrNotFound},
		{name: "missing parent", actor: "bob", thread: "t1", content: "hello", parent: ptr("nope"), wantErr: apperr.ErrNotFound},
		{name: "parent in another thread", actor: "bob", thread: "t1", content: "hello", parent: &other.Reply.ID, wantErr: apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddReply(ctx, tt.actor, tt.thread, tt.content, tt.parent)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	thread, err := f.store.Thread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, thread.ReplyCount)

	replies, err := f.svc.Replies(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, replies, 3)

	_, err = f.svc.Replies(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	posts := f.metrics.DiscussionPosts
	assert.Equal(t, float64(4), testutil.ToFloat64(posts.WithLabelValues("reply", "created")))
	assert.Equal(t, float64(2), testutil.ToFloat64(posts.WithLabelValues("reply", "invalid_input")))
	assert.Equal(t, float64(2), testutil.ToFloat64(posts.WithLabelValues("reply", "not_found")))
}

func TestAddReply_ConcurrentKeepsCountExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 40
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			actor := "alice"
			if i%2 == 0 {
				actor = "bob"
			}
			_, err := f.svc.AddReply(ctx, actor, "t1", fmt.Sprintf("reply %d", i), nil)
			return err
		})
	}
	require.NoError(t, g.Wait())

	thread, err := f.store.Thread(ctx, "t1")
	require.NoError(t, err)
	replies, err := f.store.ListReplies(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, n, thread.ReplyCount)
	assert.Len(t, replies, thread.ReplyCount)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.AddComment(ctx, "bob", "p1", "  love the demo \n", nil)
	require.NoError(t, err)
	assert.Equal(t, "love the demo", c.Text)
	assert.Equal(t, "p1", c.ProjectID)

	reply, err := f.svc.AddComment(ctx, "alice", "p1", "thank you", &c.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, c.ID, *reply.ParentID)

	elsewhere, err := f.svc.AddComment(ctx, "alice", "p2", "cool", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   string
		project string
		text    string
		parent  *string
		wantErr error
	}{
		{name: "anonymous", actor: "", project: "p1", text: "hi", wantErr: apperr.ErrUnauthenticated},
		{name: "blank", actor: "bob", project: "p1", text: " \t ", wantErr: apperr.ErrInvalidInput},
		{name: "too long", actor: "bob", project: "p1", text: strings.Repeat("x", discussion.MaxCommentLength+1), wantErr: apperr.ErrInvalidInput},
		{name: "missing project", actor: "bob", project: "nope", text: "hi", wantErr: apperr.ErrNotFound},
		{name: "missing parent", actor: "bob", project: "p1", text: "hi", parent: ptr("nope"), wantErr: apperr.ErrNotFound},
		{name: "parent on another project", actor: "bob", project: "p1", text: "hi", parent: &elsewhere.ID, wantErr: apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddComment(ctx, tt.actor, tt.project, tt.text, tt.parent)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = f.svc.AddComment(ctx, "bob", "p1", strings.Repeat("é", discussion.MaxCommentLength), nil)
	assert.NoError(t, err)

	comments, err := f.svc.Comments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, c.ID, comments[0].ID)

	_, err = f.svc.Comments(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.svc.AddComment(ctx, "alice", "p1", "first", nil)
	require.NoError(t, err)
	child, err := f.svc.AddComment(ctx, "bob", "p1", "second", &root.ID)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, "alice", "p1", "third", &child.ID)
	require.NoError(t, err)
	keep, err := f.svc.AddComment(ctx, "bob", "p1", "standalone", nil)
	require.NoError(t, err)

	_, err = f.svc.DeleteComment(ctx, "bob", root.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.DeleteComment(ctx, "", root.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.DeleteComment(ctx, "alice", "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	removed, err := f.svc.DeleteComment(ctx, "alice", root.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	left, err := f.store.ListComments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)

	_, err = f.svc.DeleteComment(ctx, "alice", root.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func ptr(s string) *string { return &s }
