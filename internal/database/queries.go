package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Reads outside any unit. None of these write.

func (s *Store) ActiveGrants(ctx context.Context, now time.Time) ([]models.Grant, error) {
	var grants []models.Grant
	err := s.db.WithContext(ctx).
		Where("status = ? AND (deadline IS NULL OR deadline >= ?)", models.GrantOpen, now).
		Order("created_at desc").
		Find(&grants).Error
	if err != nil {
		return nil, classify("list active grants", err)
	}
	return grants, nil
}

func (s *Store) Grant(ctx context.Context, id string) (models.Grant, error) {
	return s.reader(ctx).Grant(ctx, id)
}

func (s *Store) Application(ctx context.Context, id string) (models.GrantApplication, error) {
	var a models.GrantApplication
	if err := s.db.WithContext(ctx).Take(&a, "id = ?", id).Error; err != nil {
		return models.GrantApplication{}, classify("load application", err)
	}
	return a, nil
}

func (s *Store) ListGrants(ctx context.Context, sponsorID string) ([]models.Grant, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if sponsorID != "" {
		q = q.Where("sponsor_id = ?", sponsorID)
	}
	var grants []models.Grant
	if err := q.Find(&grants).Error; err != nil {
		return nil, classify("list grants", err)
	}
	return grants, nil
}

func (s *Store) ListApplications(ctx context.Context, f models.ApplicationFilter) ([]models.GrantApplication, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if f.GrantID != "" {
		q = q.Where("grant_id = ?", f.GrantID)
	}
	if f.ProjectID != "" {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var apps []models.GrantApplication
	if err := q.Find(&apps).Error; err != nil {
		return nil, classify("list applications", err)
	}
	return apps, nil
}

func (s *Store) EnsureUser(ctx context.Context, u models.User) (models.User, error) {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&u).Error
	if err != nil {
		return models.User{}, classify("ensure user", err)
	}
	return s.User(ctx, u.ID)
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role models.Role) (models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return models.User{}, classify("update user role", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.User{}, fmt.Errorf("update user role: %w", apperr.ErrNotFound)
	}
	return s.User(ctx, id)
}

func (s *Store) User(ctx context.Context, id string) (models.User, error) {
	return s.reader(ctx).User(ctx, id)
}

func (s *Store) UsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("role = ?", role).Order("username").Find(&users).Error; err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

func (s *Store) CreateProject(ctx context.Context, p models.Project) error {
	p.VoteCount = 0
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return classify("create project", err)
	}
	return nil
}

func (s *Store) Project(ctx context.Context, id string) (models.Project, error) {
	return s.reader(ctx).Project(ctx, id)
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	q := s.db.WithContext(ctx).Order("vote_count desc, created_at desc, id")
	if ownerID != "" {
		q = q.Where("user_id = ?", ownerID)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, classify("list projects", err)
	}
	return projects, nil
}

func (s *Store) CreateThread(ctx context.Context, th models.Thread) error {
	th.VoteCount = 0
	th.ReplyCount = 0
	if err := s.db.WithContext(ctx).Create(&th).Error; err != nil {
		return classify("create thread", err)
	}
	return nil
}

func (s *Store) Thread(ctx context.Context, id string) (models.Thread, error) {
	var th models.Thread
	if err := s.db.WithContext(ctx).Take(&th, "id = ?", id).Error; err != nil {
		return models.Thread{}, classify("load thread", err)
	}
	return th, nil
}

// CounterDrift lists targets whose stored vote_count differs from the
// number of vote rows referencing them.
func (s *Store) CounterDrift(ctx context.Context) ([]models.CounterDrift, error) {
	var out []models.CounterDrift
	for _, kind := range models.TargetKinds {
		var drift []models.CounterDrift
		query := fmt.Sprintf(`
			SELECT '%s' AS kind, t.id AS target_id, t.vote_count AS stored, COUNT(v.id) AS live_votes
			FROM %s t
			LEFT JOIN votes v ON v.target_kind = ? AND v.target_id = t.id
			GROUP BY t.id, t.vote_count
			HAVING t.vote_count <> COUNT(v.id)`, kind, kind.Table())
		if err := s.db.WithContext(ctx).Raw(query, kind).Scan(&drift).Error; err != nil {
			return nil, classify("counter drift", err)
		}
		out = append(out, drift...)
	}
	return out, nil
}

// LiveVotes counts vote rows for one target straight from the ledger.
func (s *Store) LiveVotes(ctx context.Context, kind models.TargetKind, id string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("target_kind = ? AND target_id = ?", kind, id).
		Count(&n).Error
	if err != nil {
		return 0, classify("count live votes", err)
	}
	return int(n), nil
}
