package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

type ApplicationHandler struct {
	applications *applications.Service
	log          logrus.FieldLogger
}

func NewApplicationHandler(apps *applications.Service, log logrus.FieldLogger) *ApplicationHandler {
	return &ApplicationHandler{applications: apps, log: log}
}

// UpdateStatus moves an application along the sponsor review flow
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var input struct {
		Status models.ApplicationStatus `json:"status" binding:"required,review_status"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	app, err := h.applications.SetStatus(c.Request.Context(), middleware.ActorID(c), c.Param("id"), input.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
