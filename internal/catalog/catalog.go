// Package catalog is the CRUD plumbing around the engines: actors created on
// first sign-in, project submissions and forum threads. It never writes a
// target's vote_count after creation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

type Store interface {
	// EnsureUser inserts u unless a user with the same id exists and
	// returns the stored row.
	EnsureUser(ctx context.Context, u models.User) (models.User, error)
	User(ctx context.Context, id string) (models.User, error)
	// UpdateUserRole overwrites the stored role and returns the updated row.
	UpdateUserRole(ctx context.Context, id string, role models.Role) (models.User, error)

	CreateProject(ctx context.Context, p models.Project) error
	Project(ctx context.Context, id string) (models.Project, error)
	// ListProjects returns projects ordered by vote_count then recency.
	// An empty ownerID lists every project.
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)

	CreateThread(ctx context.Context, t models.Thread) error
	Thread(ctx context.Context, id string) (models.Thread, error)
}

type Service struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureActor records an authenticated identity the first time it is seen.
// Unknown roles fall back to BUILDER. A username already held by another
// actor is suffixed with this actor's id until it is free.
func (s *Service) EnsureActor(ctx context.Context, id, username string, role models.Role) (models.User, error) {
	if id == "" {
		return models.User{}, apperr.ErrUnauthenticated
	}
	if !role.Valid() {
		role = models.RoleBuilder
	}
	if username == "" {
		username = "user-" + shortID(id)
	}

	now := s.now()
	var err error
	for _, name := range usernameCandidates(id, username) {
		var u models.User
		u, err = s.store.EnsureUser(ctx, models.User{ID: id, Username: name, Role: role, CreatedAt: now, UpdatedAt: now})
		if err == nil {
			if name != username && u.Username == name {
				s.log.WithFields(logrus.Fields{"user_id": id, "username": name}).Warn("username taken, recorded actor under a suffixed name")
			}
			return u, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			break
		}
	}
	return models.User{}, fmt.Errorf("ensure actor: %w", err)
}

// usernameCandidates ends with a name containing the full id, which is
// unique whenever ids are.
func usernameCandidates(id, username string) []string {
	out := []string{username, username + "-" + shortID(id)}
	if full := username + "-" + id; full != out[1] {
		out = append(out, full)
	}
	return out
}

// SetRole lets an actor pick the role they onboard with. Only BUILDER and
// SPONSOR are selectable; admins keep their role.
func (s *Service) SetRole(ctx context.Context, actorID string, role models.Role) (models.User, error) {
	if actorID == "" {
		return models.User{}, apperr.ErrUnauthenticated
	}
	if role != models.RoleBuilder && role != models.RoleSponsor {
		return models.User{}, fmt.Errorf("role %q: %w", role, apperr.ErrInvalidInput)
	}
	current, err := s.store.User(ctx, actorID)
	if err != nil {
		return models.User{}, fmt.Errorf("user %s: %w", actorID, err)
	}
	if current.Role == models.RoleAdmin {
		return models.User{}, fmt.Errorf("admin role is not self-managed: %w", apperr.ErrForbidden)
	}
	if current.Role == role {
		return current, nil
	}

	u, err := s.store.UpdateUserRole(ctx, actorID, role)
	if err != nil {
		return models.User{}, fmt.Errorf("set role: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": actorID, "from": current.Role, "to": role}).Info("role changed")
	return u, nil
}

type ProjectInput struct {
	Title       string
	Tagline     string
	Description string
	DemoURL     string
	RepoURL     string
	Category    string
}

// SubmitProject creates a project owned by actorID with a zero vote count.
func (s *Service) SubmitProject(ctx context.Context, actorID string, in ProjectInput) (models.Project, error) {
	if actorID == "" {
		return models.Project{}, apperr.ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Project{}, fmt.Errorf("title is required: %w", apperr.ErrInvalidInput)
	}
	category := in.Category
	if category == "" {
		category = "OTHER"
	}

	now := s.now()
	p := models.Project{
		ID:          uuid.NewString(),
		Title:       title,
		Tagline:     in.Tagline,
		Description: in.Description,
		DemoURL:     in.DemoURL,
		RepoURL:     in.RepoURL,
		Category:    category,
		UserID:      actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": actorID, "project_id": p.ID}).Info("project submitted")
	return p, nil
}

type ThreadInput struct {
	Title    string
	Content  string
	Category models.ThreadCategory
}

func (s *Service) CreateThread(ctx context.Context, actorID string, in ThreadInput) (models.Thread, error) {
	if actorID == "" {
		return models.Thread{}, apperr.ErrUnauthenticated
	}
	if in.Category == "" {
		in.Category = models.ThreadGeneral
	}
	if !in.Category.Valid() {
		return models.Thread{}, fmt.Errorf("thread category %q: %w", in.Category, apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return models.Thread{}, fmt.Errorf("title and content are required: %w", apperr.ErrInvalidInput)
	}

	now := s.now()
	t := models.Thread{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Category:  in.Category,
		UserID:    actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateThread(ctx, t); err != nil {
		return models.Thread{}, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

func (s *Service) User(ctx context.Context, id string) (models.User, error) {
	if id == "" {
		return models.User{}, apperr.ErrUnauthenticated
	}
	u, err := s.store.User(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

func (s *Service) Project(ctx context.Context, id string) (models.Project, error) {
	p, err := s.store.Project(ctx, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("project %s: %w", id, err)
	}
	return p, nil
}

func (s *Service) Projects(ctx context.Context, ownerID string) ([]models.Project, error) {
	ps, err := s.store.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return ps, nil
}

func (s *Service) Thread(ctx context.Context, id string) (models.Thread, error) {
	t, err := s.store.Thread(ctx, id)
	if err != nil {
		return models.Thread{}, fmt.Errorf("thread %s: %w", id, err)
	}
	return t, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
