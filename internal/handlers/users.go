package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

type UserHandler struct {
	catalog *catalog.Service
	log     logrus.FieldLogger
}

func NewUserHandler(cat *catalog.Service, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{catalog: cat, log: log}
}

// GetMe returns the caller's stored profile
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.catalog.User(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetRole picks the caller's onboarding role
func (h *UserHandler) SetRole(c *gin.Context) {
	var input struct {
		Role string `json:"role" binding:"required,oneof=BUILDER SPONSOR"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	user, err := h.catalog.SetRole(c.Request.Context(), middleware.ActorID(c), models.Role(input.Role))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
