package views

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/vamp/backend/internal/models"
)

func TestCountStatusesAndBucket(t *testing.T) {
	apps := []models.GrantApplication{
		{ID: "a1", Status: models.ApplicationPending},
		{ID: "a2", Status: models.ApplicationReviewing},
		{ID: "a3", Status: models.ApplicationApproved},
		{ID: "a4", Status: models.ApplicationRejected},
		{ID: "a5", Status: models.ApplicationWithdrawn},
		{ID: "a6", Status: models.ApplicationPending},
	}

	assert.Equal(t, StatusCounts{Total: 6, Pending: 2, Reviewing: 1, Approved: 1, Rejected: 1, Withdrawn: 1}, CountStatuses(apps))

	b := Bucket(apps)
	assert.Len(t, b.Pending, 3)
	assert.Len(t, b.Approved, 1)
	assert.Len(t, b.Rejected, 1)
	assert.Len(t, b.Withdrawn, 1)

	empty := Bucket(nil)
	assert.NotNil(t, empty.Pending)
	assert.Empty(t, empty.Approved)
}

func TestApprovedFunding(t *testing.T) {
	projects := []models.Project{{ID: "p1"}, {ID: "p2"}}
	grants := map[string]models.Grant{
		"g1": {ID: "g1", Amount: decimal.RequireFromString("250.50")},
		"g2": {ID: "g2", Amount: decimal.RequireFromString("1000")},
	}
	apps := []models.GrantApplication{
		{ProjectID: "p1", GrantID: "g1", Status: models.ApplicationApproved},
		{ProjectID: "p2", GrantID: "g2", Status: models.ApplicationApproved},
		{ProjectID: "p2", GrantID: "g1", Status: models.ApplicationRejected},
		{ProjectID: "other", GrantID: "g2", Status: models.ApplicationApproved},
	}

	total, n := ApprovedFunding(projects, apps, grants)
	assert.Equal(t, 2, n)
	assert.Equal(t, "1250.50", total.StringFixed(2))
}

func TestLeaderboard(t *testing.T) {
	users := []models.User{
		{ID: "u1", Username: "zed", Role: models.RoleBuilder},
		{ID: "u2", Username: "amy", Role: models.RoleBuilder},
		{ID: "u3", Username: "max", Role: models.RoleBuilder},
		{ID: "u4", Username: "sponsor", Role: models.RoleSponsor},
		{ID: "u5", Username: "idle", Role: models.RoleBuilder},
	}
	projects := []models.Project{
		{ID: "p1", Title: "One", UserID: "u1", VoteCount: 3},
		{ID: "p2", Title: "Two", UserID: "u1", VoteCount: 7},
		{ID: "p3", Title: "Three", UserID: "u2", VoteCount: 10},
		{ID: "p4", Title: "Four", UserID: "u3", VoteCount: 2},
		{ID: "p5", Title: "Five", UserID: "u4", VoteCount: 50},
	}
	grants := []models.Grant{{ID: "g1", Amount: decimal.NewFromInt(500)}}
	apps := []models.GrantApplication{{ProjectID: "p4", GrantID: "g1", Status: models.ApplicationApproved}}

	got := Leaderboard(users, projects, apps, grants)
	require.Len(t, got, 3)

	assert.Equal(t, "amy", got[0].Username)
	assert.Equal(t, "zed", got[1].Username)
	assert.Equal(t, "max", got[2].Username)
	for i, e := range got {
		assert.Equal(t, i+1, e.Rank)
	}

	assert.Equal(t, 10, got[1].VibeScore)
	assert.Equal(t, 2, got[1].ProjectCount)
	require.NotNil(t, got[1].TopProject)
	assert.Equal(t, "p2", got[1].TopProject.ID)

	assert.Equal(t, 1, got[2].GrantsReceived)
	assert.True(t, got[2].TotalGrantAmount.Equal(decimal.NewFromInt(500)))
}
