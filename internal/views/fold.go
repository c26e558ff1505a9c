// Package views holds read-only projections over the vote and application
// ledgers. Nothing here is stored; every figure is folded from source rows
// on each call.
package views

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// VibeScore sums the vote counts of the given projects.
func VibeScore(projects []models.Project) int {
	total := 0
	for _, p := range projects {
		total += p.VoteCount
	}
	return total
}

type StatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Reviewing int `json:"reviewing"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Withdrawn int `json:"withdrawn"`
}

func CountStatuses(apps []models.GrantApplication) StatusCounts {
	var c StatusCounts
	for _, a := range apps {
		c.Total++
		switch a.Status {
		case models.ApplicationPending:
			c.Pending++
		case models.ApplicationReviewing:
			c.Reviewing++
		case models.ApplicationApproved:
			c.Approved++
		case models.ApplicationRejected:
			c.Rejected++
		case models.ApplicationWithdrawn:
			c.Withdrawn++
		}
	}
	return c
}

// Buckets groups applications the way the sponsor review page shows them:
// reviewing applications sit with pending ones.
type Buckets struct {
	Pending   []models.GrantApplication `json:"pending"`
	Approved  []models.GrantApplication `json:"approved"`
	Rejected  []models.GrantApplication `json:"rejected"`
	Withdrawn []models.GrantApplication `json:"withdrawn"`
}

func Bucket(apps []models.GrantApplication) Buckets {
	b := Buckets{
		Pending:   []models.GrantApplication{},
		Approved:  []models.GrantApplication{},
		Rejected:  []models.GrantApplication{},
		Withdrawn: []models.GrantApplication{},
	}
	for _, a := range apps {
		switch a.Status {
		case models.ApplicationPending, models.ApplicationReviewing:
			b.Pending = append(b.Pending, a)
		case models.ApplicationApproved:
			b.Approved = append(b.Approved, a)
		case models.ApplicationRejected:
			b.Rejected = append(b.Rejected, a)
		case models.ApplicationWithdrawn:
			b.Withdrawn = append(b.Withdrawn, a)
		}
	}
	return b
}

// ApprovedFunding sums the amounts of grants that approved any of the given
// projects. Applications for other projects are ignored.
func ApprovedFunding(projects []models.Project, apps []models.GrantApplication, grants map[string]models.Grant) (decimal.Decimal, int) {
	owned := make(map[string]bool, len(projects))
	for _, p := range projects {
		owned[p.ID] = true
	}
	total := decimal.Zero
	n := 0
	for _, a := range apps {
		if a.Status != models.ApplicationApproved || !owned[a.ProjectID] {
			continue
		}
		n++
		if g, ok := grants[a.GrantID]; ok {
			total = total.Add(g.Amount)
		}
	}
	return total, n
}

type ProjectRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	VoteCount int    `json:"vote_count"`
}

type LeaderboardEntry struct {
	Rank             int             `json:"rank"`
	UserID           string          `json:"user_id"`
	Username         string          `json:"username"`
	VibeScore        int             `json:"vibe_score"`
	ProjectCount     int             `json:"project_count"`
	GrantsReceived   int             `json:"grants_received"`
	TotalGrantAmount decimal.Decimal `json:"total_grant_amount"`
	TopProject       *ProjectRef     `json:"top_project,omitempty"`
}

// Leaderboard ranks builders that own at least one project by Vibe Score.
// Ties are broken by username so the order is stable between calls.
func Leaderboard(users []models.User, projects []models.Project, apps []models.GrantApplication, grants []models.Grant) []LeaderboardEntry {
	byOwner := make(map[string][]models.Project)
	for _, p := range projects {
		byOwner[p.UserID] = append(byOwner[p.UserID], p)
	}
	grantByID := make(map[string]models.Grant, len(grants))
	for _, g := range grants {
		grantByID[g.ID] = g
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		if u.Role != models.RoleBuilder {
			continue
		}
		owned := byOwner[u.ID]
		if len(owned) == 0 {
			continue
		}
		amount, received := ApprovedFunding(owned, apps, grantByID)
		entries = append(entries, LeaderboardEntry{
			UserID:           u.ID,
			Username:         u.Username,
			VibeScore:        VibeScore(owned),
			ProjectCount:     len(owned),
			GrantsReceived:   received,
			TotalGrantAmount: amount,
			TopProject:       topProject(owned),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].VibeScore != entries[j].VibeScore {
			return entries[i].VibeScore > entries[j].VibeScore
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func topProject(projects []models.Project) *ProjectRef {
	var top *models.Project
	for i := range projects {
		if top == nil || projects[i].VoteCount > top.VoteCount {
			top = &projects[i]
		}
	}
	if top == nil {
		return nil
	}
	return &ProjectRef{ID: top.ID, Title: top.Title, VoteCount: top.VoteCount}
}
