package views

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Source is the read side of the stores the views fold over.
type Source interface {
	User(ctx context.Context, id string) (models.User, error)
	UsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	// ListGrants lists grants newest first; an empty sponsorID lists all.
	ListGrants(ctx context.Context, sponsorID string) ([]models.Grant, error)
	ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.GrantApplication, error)
	Grant(ctx context.Context, id string) (models.Grant, error)
}

type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

type VibeSummary struct {
	UserID           string          `json:"user_id"`
	Username         string          `json:"username"`
	VibeScore        int             `json:"vibe_score"`
	ProjectCount     int             `json:"project_count"`
	GrantsReceived   int             `json:"grants_received"`
	TotalGrantAmount decimal.Decimal `json:"total_grant_amount"`
}

// VibeSummary totals one user's projects and approved funding. Unknown users
// are ErrNotFound.
func (s *Service) VibeSummary(ctx context.Context, userID string) (VibeSummary, error) {
	user, err := s.src.User(ctx, userID)
	if err != nil {
		return VibeSummary{}, fmt.Errorf("user %s: %w", userID, err)
	}
	projects, err := s.src.ListProjects(ctx, userID)
	if err != nil {
		return VibeSummary{}, fmt.Errorf("vibe summary: %w", err)
	}
	apps, err := s.src.ListApplications(ctx, models.ApplicationFilter{Status: models.ApplicationApproved})
	if err != nil {
		return VibeSummary{}, fmt.Errorf("vibe summary: %w", err)
	}
	grants, err := s.grantIndex(ctx)
	if err != nil {
		return VibeSummary{}, fmt.Errorf("vibe summary: %w", err)
	}
	amount, received := ApprovedFunding(projects, apps, grants)
	return VibeSummary{
		UserID:           user.ID,
		Username:         user.Username,
		VibeScore:        VibeScore(projects),
		ProjectCount:     len(projects),
		GrantsReceived:   received,
		TotalGrantAmount: amount,
	}, nil
}

// Leaderboard returns at most limit entries; limit <= 0 returns all.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	users, err := s.src.UsersByRole(ctx, models.RoleBuilder)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	projects, err := s.src.ListProjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	apps, err := s.src.ListApplications(ctx, models.ApplicationFilter{Status: models.ApplicationApproved})
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	grants, err := s.src.ListGrants(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	entries := Leaderboard(users, projects, apps, grants)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type GrantSummary struct {
	Grant          models.Grant `json:"grant"`
	ApplicantCount int          `json:"applicant_count"`
	Counts         StatusCounts `json:"counts"`
}

func (s *Service) GrantSummary(ctx context.Context, grantID string) (GrantSummary, error) {
	g, err := s.src.Grant(ctx, grantID)
	if err != nil {
		return GrantSummary{}, fmt.Errorf("grant %s: %w", grantID, err)
	}
	apps, err := s.src.ListApplications(ctx, models.ApplicationFilter{GrantID: grantID})
	if err != nil {
		return GrantSummary{}, fmt.Errorf("grant %s: %w", grantID, err)
	}
	counts := CountStatuses(apps)
	return GrantSummary{Grant: g, ApplicantCount: counts.Total, Counts: counts}, nil
}

type SponsorDashboard struct {
	Grants            []GrantSummary `json:"grants"`
	OpenGrants        int            `json:"open_grants"`
	TotalApplications int            `json:"total_applications"`
	PendingReview     int            `json:"pending_review"`
}

func (s *Service) SponsorDashboard(ctx context.Context, sponsorID string) (SponsorDashboard, error) {
	if sponsorID == "" {
		return SponsorDashboard{}, apperr.ErrUnauthenticated
	}
	grants, err := s.src.ListGrants(ctx, sponsorID)
	if err != nil {
		return SponsorDashboard{}, fmt.Errorf("sponsor dashboard: %w", err)
	}

	d := SponsorDashboard{Grants: make([]GrantSummary, 0, len(grants))}
	for _, g := range grants {
		apps, err := s.src.ListApplications(ctx, models.ApplicationFilter{GrantID: g.ID})
		if err != nil {
			return SponsorDashboard{}, fmt.Errorf("sponsor dashboard: %w", err)
		}
		counts := CountStatuses(apps)
		d.Grants = append(d.Grants, GrantSummary{Grant: g, ApplicantCount: counts.Total, Counts: counts})
		if g.Status == models.GrantOpen {
			d.OpenGrants++
		}
		d.TotalApplications += counts.Total
		d.PendingReview += counts.Pending
	}
	return d, nil
}

type GrantDashboard struct {
	Grant   models.Grant `json:"grant"`
	Counts  StatusCounts `json:"counts"`
	Buckets Buckets      `json:"buckets"`
}

// GrantDashboard is the sponsor's review page for one grant.
func (s *Service) GrantDashboard(ctx context.Context, actorID, grantID string) (GrantDashboard, error) {
	if actorID == "" {
		return GrantDashboard{}, apperr.ErrUnauthenticated
	}
	g, err := s.src.Grant(ctx, grantID)
	if err != nil {
		return GrantDashboard{}, fmt.Errorf("grant %s: %w", grantID, err)
	}
	if g.SponsorID != actorID {
		return GrantDashboard{}, fmt.Errorf("grant %s: %w", grantID, apperr.ErrForbidden)
	}
	apps, err := s.src.ListApplications(ctx, models.ApplicationFilter{GrantID: grantID})
	if err != nil {
		return GrantDashboard{}, fmt.Errorf("grant %s: %w", grantID, err)
	}
	return GrantDashboard{Grant: g, Counts: CountStatuses(apps), Buckets: Bucket(apps)}, nil
}

func (s *Service) grantIndex(ctx context.Context) (map[string]models.Grant, error) {
	grants, err := s.src.ListGrants(ctx, "")
	if err != nil {
		return nil, err
	}
	idx := make(map[string]models.Grant, len(grants))
	for _, g := range grants {
		idx[g.ID] = g
	}
	return idx, nil
}
