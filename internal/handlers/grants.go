package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/models"
	"github.com/emilythestrangee/vamp/backend/internal/views"
)

type GrantHandler struct {
	applications *applications.Service
	views        *views.Service
	log          logrus.FieldLogger
}

func NewGrantHandler(apps *applications.Service, v *views.Service, log logrus.FieldLogger) *GrantHandler {
	return &GrantHandler{applications: apps, views: v, log: log}
}

// GetActiveGrants lists grants that are open and not past their deadline
func (h *GrantHandler) GetActiveGrants(c *gin.Context) {
	grants, err := h.applications.ActiveGrants(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// GetGrant returns a grant with its application counts
func (h *GrantHandler) GetGrant(c *gin.Context) {
	summary, err := h.views.GrantSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *GrantHandler) CreateGrant(c *gin.Context) {
	var input struct {
		Title         string          `json:"title" binding:"required,min=3,max=200"`
		Description   string          `json:"description" binding:"required"`
		Requirements  string          `json:"requirements"`
		Amount        decimal.Decimal `json:"amount" binding:"decimal_positive"`
		Deadline      *time.Time      `json:"deadline"`
		MaxRecipients int             `json:"max_recipients" binding:"omitempty,min=1"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	grant, err := h.applications.CreateGrant(c.Request.Context(), middleware.ActorID(c), applications.GrantInput{
		Title:         input.Title,
		Description:   input.Description,
		Requirements:  input.Requirements,
		Amount:        input.Amount,
		Deadline:      input.Deadline,
		MaxRecipients: input.MaxRecipients,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// UpdateGrantStatus opens, pauses or closes a grant; only its sponsor may
func (h *GrantHandler) UpdateGrantStatus(c *gin.Context) {
	var input struct {
		Status models.GrantStatus `json:"status" binding:"required,oneof=OPEN CLOSED PAUSED"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	grant, err := h.applications.SetGrantStatus(c.Request.Context(), middleware.ActorID(c), c.Param("id"), input.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// Apply files an application for one of the caller's projects
func (h *GrantHandler) Apply(c *gin.Context) {
	var input struct {
		ProjectID string  `json:"project_id" binding:"required"`
		Message   *string `json:"message" binding:"omitempty,max=2000"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	app, err := h.applications.Apply(c.Request.Context(), middleware.ActorID(c), input.ProjectID, c.Param("id"), input.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}
