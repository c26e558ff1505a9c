package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
)

type ProjectHandler struct {
	catalog      *catalog.Service
	applications *applications.Service
	log          logrus.FieldLogger
}

func NewProjectHandler(cat *catalog.Service, apps *applications.Service, log logrus.FieldLogger) *ProjectHandler {
	return &ProjectHandler{catalog: cat, applications: apps, log: log}
}

// GetProjects lists projects, optionally filtered by owner
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	projects, err := h.catalog.Projects(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject returns a single project by ID
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.catalog.Project(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// CreateProject submits a project and, when a grant is named, applies to it
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var input struct {
		Title       string `json:"title" binding:"required,min=3,max=100"`
		Tagline     string `json:"tagline" binding:"max=140"`
		Description string `json:"description" binding:"max=5000"`
		DemoURL     string `json:"demo_url" binding:"omitempty,url"`
		RepoURL     string `json:"repo_url" binding:"omitempty,url"`
		Category    string `json:"category"`
		GrantID     string `json:"grant_id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	actorID := middleware.ActorID(c)
	project, err := h.catalog.SubmitProject(c.Request.Context(), actorID, catalog.ProjectInput{
		Title:       input.Title,
		Tagline:     input.Tagline,
		Description: input.Description,
		DemoURL:     input.DemoURL,
		RepoURL:     input.RepoURL,
		Category:    input.Category,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	body := gin.H{"project": project, "message": "Project submitted successfully!"}
	if input.GrantID != "" {
		app, err := h.applications.AutoApply(c.Request.Context(), actorID, project.ID, input.GrantID)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		if app != nil {
			body["application"] = app
			body["message"] = "Project submitted and grant application created!"
		}
	}

	c.JSON(http.StatusCreated, body)
}
