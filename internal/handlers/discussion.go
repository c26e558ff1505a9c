package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/discussion"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
)

type DiscussionHandler struct {
	discussion *discussion.Service
	log        logrus.FieldLogger
}

func NewDiscussionHandler(svc *discussion.Service, log logrus.FieldLogger) *DiscussionHandler {
	return &DiscussionHandler{discussion: svc, log: log}
}

func (h *DiscussionHandler) GetReplies(c *gin.Context) {
	replies, err := h.discussion.Replies(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, replies)
}

// AddReply posts to a thread and returns the thread's new reply count
func (h *DiscussionHandler) AddReply(c *gin.Context) {
	var input struct {
		Content  string  `json:"content" binding:"required,max=5000"`
		ParentID *string `json:"parent_id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	res, err := h.discussion.AddReply(c.Request.Context(), middleware.ActorID(c), c.Param("id"), input.Content, input.ParentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *DiscussionHandler) GetComments(c *gin.Context) {
	comments, err := h.discussion.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *DiscussionHandler) AddComment(c *gin.Context) {
	var input struct {
		Text     string  `json:"text" binding:"required"`
		ParentID *string `json:"parent_id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	comment, err := h.discussion.AddComment(c.Request.Context(), middleware.ActorID(c), c.Param("id"), input.Text, input.ParentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment removes the caller's comment and the replies beneath it
func (h *DiscussionHandler) DeleteComment(c *gin.Context) {
	removed, err := h.discussion.DeleteComment(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted", "removed": removed})
}
