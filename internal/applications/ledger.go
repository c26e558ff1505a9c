package applications

import (
	"context"
	"time"

	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Ledger stores grants and grant applications. WithinApplicationTx runs fn
// as one atomic unit and rolls back every write when fn fails.
type Ledger interface {
	WithinApplicationTx(ctx context.Context, fn func(tx ApplicationTx) error) error

	// ActiveGrants lists OPEN grants whose deadline is unset or not before
	// now, newest first.
	ActiveGrants(ctx context.Context, now time.Time) ([]models.Grant, error)
	Grant(ctx context.Context, id string) (models.Grant, error)
	Application(ctx context.Context, id string) (models.GrantApplication, error)
}

// ApplicationTx is the ledger view inside one atomic unit. Lookups of
// missing rows yield apperr.ErrNotFound.
type ApplicationTx interface {
	User(ctx context.Context, id string) (models.User, error)
	Project(ctx context.Context, id string) (models.Project, error)
	Grant(ctx context.Context, id string) (models.Grant, error)

	InsertGrant(ctx context.Context, grant models.Grant) error
	UpdateGrantStatus(ctx context.Context, id string, status models.GrantStatus, now time.Time) error

	HasApplication(ctx context.Context, projectID, grantID string) (bool, error)
	// InsertApplication reports false, without error, when the
	// (project, grant) pair already has an application.
	InsertApplication(ctx context.Context, app models.GrantApplication) (bool, error)
	// LockApplication loads the application and holds it against
	// concurrent status writes until the unit ends.
	LockApplication(ctx context.Context, id string) (models.GrantApplication, error)
	UpdateApplicationStatus(ctx context.Context, id string, status models.ApplicationStatus, now time.Time) error
}
