package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/metrics"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

var tracer = otel.Tracer("github.com/emilythestrangee/vamp/backend/internal/applications")

type Service struct {
	ledger  Ledger
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(ledger Ledger, log logrus.FieldLogger, m *metrics.Metrics) *Service {
	return &Service{
		ledger:  ledger,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for deadline checks and timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Apply submits projectID to grantID on behalf of the project's owner.
// Preconditions are checked in a fixed order, each with its own failure:
// ownership, grant open, deadline, uniqueness.
func (s *Service) Apply(ctx context.Context, actorID, projectID, grantID string, message *string) (models.GrantApplication, error) {
	ctx, span := tracer.Start(ctx, "applications.Apply", trace.WithAttributes(
		attribute.String("grant.id", grantID),
		attribute.String("project.id", projectID),
	))
	defer span.End()

	app, err := s.apply(ctx, actorID, projectID, grantID, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
		s.metrics.Applications.WithLabelValues(apperr.Kind(err)).Inc()
		return models.GrantApplication{}, err
	}

	s.metrics.Applications.WithLabelValues("submitted").Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":        actorID,
		"application_id": app.ID,
		"grant_id":       grantID,
		"project_id":     projectID,
	}).Info("application submitted")
	return app, nil
}

func (s *Service) apply(ctx context.Context, actorID, projectID, grantID string, message *string) (models.GrantApplication, error) {
	if actorID == "" {
		return models.GrantApplication{}, apperr.ErrUnauthenticated
	}

	now := s.now()
	app := models.GrantApplication{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		GrantID:   grantID,
		Message:   normalizeMessage(message),
		Status:    models.ApplicationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.ledger.WithinApplicationTx(ctx, func(tx ApplicationTx) error {
		project, err := tx.Project(ctx, projectID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return fmt.Errorf("project %s: %w", projectID, apperr.ErrForbidden)
		case err != nil:
			return fmt.Errorf("load project: %w", err)
		case project.UserID != actorID:
			return fmt.Errorf("project %s: %w", projectID, apperr.ErrForbidden)
		}

		grant, err := tx.Grant(ctx, grantID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return fmt.Errorf("grant %s: %w", grantID, apperr.ErrNotOpen)
		case err != nil:
			return fmt.Errorf("load grant: %w", err)
		case grant.Status != models.GrantOpen:
			return fmt.Errorf("grant %s is %s: %w", grantID, grant.Status, apperr.ErrNotOpen)
		case grant.Expired(now):
			return fmt.Errorf("grant %s: %w", grantID, apperr.ErrDeadlinePassed)
		}

		exists, err := tx.HasApplication(ctx, projectID, grantID)
		if err != nil {
			return fmt.Errorf("look up application: %w", err)
		}
		if exists {
			return apperr.ErrAlreadyApplied
		}

		inserted, err := tx.InsertApplication(ctx, app)
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		if !inserted {
			return apperr.ErrAlreadyApplied
		}
		return nil
	})
	if err != nil {
		return models.GrantApplication{}, fmt.Errorf("apply: %w", err)
	}
	return app, nil
}

// AutoApply is the submission-time variant of Apply: a grant that is not
// accepting applications is skipped and nil is returned with no error.
func (s *Service) AutoApply(ctx context.Context, actorID, projectID, grantID string) (*models.GrantApplication, error) {
	app, err := s.Apply(ctx, actorID, projectID, grantID, nil)
	switch {
	case errors.Is(err, apperr.ErrNotOpen), errors.Is(err, apperr.ErrDeadlinePassed):
		s.log.WithField("grant_id", grantID).WithError(err).Debug("skipping grant on submission")
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &app, nil
}

// SetStatus records a sponsor decision. Only the sponsor of the grant the
// application targets may call it, whatever the application's current
// status.
func (s *Service) SetStatus(ctx context.Context, actorID, applicationID string, status models.ApplicationStatus) (models.GrantApplication, error) {
	ctx, span := tracer.Start(ctx, "applications.SetStatus", trace.WithAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("application.status", string(status)),
	))
	defer span.End()

	app, err := s.setStatus(ctx, actorID, applicationID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
		s.metrics.ApplicationStatuses.WithLabelValues(string(status), apperr.Kind(err)).Inc()
		return models.GrantApplication{}, err
	}

	s.metrics.ApplicationStatuses.WithLabelValues(string(status), "changed").Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":        actorID,
		"application_id": applicationID,
		"status":         status,
	}).Info("application status changed")
	return app, nil
}

func (s *Service) setStatus(ctx context.Context, actorID, applicationID string, status models.ApplicationStatus) (models.GrantApplication, error) {
	if actorID == "" {
		return models.GrantApplication{}, apperr.ErrUnauthenticated
	}
	if !sponsorTargets[status] {
		return models.GrantApplication{}, fmt.Errorf("status %q: %w", status, apperr.ErrInvalidInput)
	}

	var app models.GrantApplication
	err := s.ledger.WithinApplicationTx(ctx, func(tx ApplicationTx) error {
		var err error
		app, err = tx.LockApplication(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}

		grant, err := tx.Grant(ctx, app.GrantID)
		if err != nil {
			return fmt.Errorf("grant %s: %w", app.GrantID, err)
		}
		if grant.SponsorID != actorID {
			return fmt.Errorf("grant %s: %w", grant.ID, apperr.ErrForbidden)
		}
		if !CanTransition(app.Status, status) {
			return fmt.Errorf("%s -> %s: %w", app.Status, status, apperr.ErrInvalidInput)
		}

		now := s.now()
		if err := tx.UpdateApplicationStatus(ctx, app.ID, status, now); err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		app.Status = status
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.GrantApplication{}, fmt.Errorf("set application status: %w", err)
	}
	return app, nil
}

// ActiveGrants lists grants currently accepting applications.
func (s *Service) ActiveGrants(ctx context.Context) ([]models.Grant, error) {
	grants, err := s.ledger.ActiveGrants(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("active grants: %w", err)
	}
	return grants, nil
}

func (s *Service) Grant(ctx context.Context, id string) (models.Grant, error) {
	g, err := s.ledger.Grant(ctx, id)
	if err != nil {
		return models.Grant{}, fmt.Errorf("grant %s: %w", id, err)
	}
	return g, nil
}

// GrantInput carries the sponsor-supplied fields of a new grant.
type GrantInput struct {
	Title         string
	Description   string
	Requirements  string
	Amount        decimal.Decimal
	Deadline      *time.Time
	MaxRecipients int
}

// CreateGrant publishes a new OPEN grant. Only sponsors and admins may
// create grants.
func (s *Service) CreateGrant(ctx context.Context, actorID string, in GrantInput) (models.Grant, error) {
	if actorID == "" {
		return models.Grant{}, apperr.ErrUnauthenticated
	}
	if !in.Amount.IsPositive() {
		return models.Grant{}, fmt.Errorf("amount must be positive: %w", apperr.ErrInvalidInput)
	}
	if in.MaxRecipients < 0 {
		return models.Grant{}, fmt.Errorf("max recipients must not be negative: %w", apperr.ErrInvalidInput)
	}
	if in.MaxRecipients == 0 {
		in.MaxRecipients = 1
	}

	now := s.now()
	grant := models.Grant{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Requirements:  in.Requirements,
		Amount:        in.Amount,
		Deadline:      in.Deadline,
		MaxRecipients: in.MaxRecipients,
		Status:        models.GrantOpen,
		SponsorID:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.ledger.WithinApplicationTx(ctx, func(tx ApplicationTx) error {
		user, err := tx.User(ctx, actorID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrUnauthenticated
		}
		if err != nil {
			return fmt.Errorf("load sponsor: %w", err)
		}
		if !user.Role.CanSponsor() {
			return fmt.Errorf("role %s: %w", user.Role, apperr.ErrForbidden)
		}
		return tx.InsertGrant(ctx, grant)
	})
	if err != nil {
		return models.Grant{}, fmt.Errorf("create grant: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": actorID, "grant_id": grant.ID}).Info("grant created")
	return grant, nil
}

// SetGrantStatus opens, closes or pauses a grant. Owner only.
func (s *Service) SetGrantStatus(ctx context.Context, actorID, grantID string, status models.GrantStatus) (models.Grant, error) {
	if actorID == "" {
		return models.Grant{}, apperr.ErrUnauthenticated
	}
	if !status.Valid() {
		return models.Grant{}, fmt.Errorf("grant status %q: %w", status, apperr.ErrInvalidInput)
	}

	var grant models.Grant
	err := s.ledger.WithinApplicationTx(ctx, func(tx ApplicationTx) error {
		var err error
		grant, err = tx.Grant(ctx, grantID)
		if err != nil {
			return fmt.Errorf("grant %s: %w", grantID, err)
		}
		if grant.SponsorID != actorID {
			return fmt.Errorf("grant %s: %w", grantID, apperr.ErrForbidden)
		}
		now := s.now()
		if err := tx.UpdateGrantStatus(ctx, grantID, status, now); err != nil {
			return fmt.Errorf("update grant: %w", err)
		}
		grant.Status = status
		grant.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Grant{}, fmt.Errorf("set grant status: %w", err)
	}
	return grant, nil
}

func normalizeMessage(m *string) *string {
	if m == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*m)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
