package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/views"
)

const defaultLeaderboardLimit = 50

type DashboardHandler struct {
	views *views.Service
	log   logrus.FieldLogger
}

func NewDashboardHandler(v *views.Service, log logrus.FieldLogger) *DashboardHandler {
	return &DashboardHandler{views: v, log: log}
}

func (h *DashboardHandler) GetLeaderboard(c *gin.Context) {
	limit := defaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": "invalid_input"})
			return
		}
		limit = n
	}

	entries, err := h.views.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *DashboardHandler) GetVibeScore(c *gin.Context) {
	summary, err := h.views.VibeSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSponsorDashboard summarizes every grant the caller sponsors
func (h *DashboardHandler) GetSponsorDashboard(c *gin.Context) {
	dash, err := h.views.SponsorDashboard(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (h *DashboardHandler) GetGrantDashboard(c *gin.Context) {
	dash, err := h.views.GrantDashboard(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
