package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/discussion"
	"github.com/emilythestrangee/vamp/backend/internal/views"
	"github.com/emilythestrangee/vamp/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Vote        *VoteHandler
	Project     *ProjectHandler
	Thread      *ThreadHandler
	Grant       *GrantHandler
	Application *ApplicationHandler
	Dashboard   *DashboardHandler
	User        *UserHandler
	Discussion  *DiscussionHandler
}

// Services are the engines the HTTP layer dispatches to.
type Services struct {
	Voting       *voting.Service
	Applications *applications.Service
	Catalog      *catalog.Service
	Views        *views.Service
	Discussion   *discussion.Service
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc Services, log logrus.FieldLogger) *Handler {
	return &Handler{
		Vote:        NewVoteHandler(svc.Voting, log),
		Project:     NewProjectHandler(svc.Catalog, svc.Applications, log),
		Thread:      NewThreadHandler(svc.Catalog, log),
		Grant:       NewGrantHandler(svc.Applications, svc.Views, log),
		Application: NewApplicationHandler(svc.Applications, log),
		Dashboard:   NewDashboardHandler(svc.Views, log),
		User:        NewUserHandler(svc.Catalog, log),
		Discussion:  NewDiscussionHandler(svc.Discussion, log),
	}
}
