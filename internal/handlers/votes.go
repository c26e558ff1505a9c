package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/models"
	"github.com/emilythestrangee/vamp/backend/internal/voting"
)

type VoteHandler struct {
	votes *voting.Service
	log   logrus.FieldLogger
}

func NewVoteHandler(votes *voting.Service, log logrus.FieldLogger) *VoteHandler {
	return &VoteHandler{votes: votes, log: log}
}

// Toggle returns the vote handler for one target kind. Every kind shares the
// same handler body.
func (h *VoteHandler) Toggle(kind models.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.votes.Toggle(c.Request.Context(), middleware.ActorID(c), kind, c.Param("id"))
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
