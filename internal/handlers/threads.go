package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

type ThreadHandler struct {
	catalog *catalog.Service
	log     logrus.FieldLogger
}

func NewThreadHandler(cat *catalog.Service, log logrus.FieldLogger) *ThreadHandler {
	return &ThreadHandler{catalog: cat, log: log}
}

func (h *ThreadHandler) GetThread(c *gin.Context) {
	thread, err := h.catalog.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *ThreadHandler) CreateThread(c *gin.Context) {
	var input struct {
		Title    string `json:"title" binding:"required,min=5,max=200"`
		Content  string `json:"content" binding:"required,min=20,max=10000"`
		Category string `json:"category" binding:"omitempty,oneof=GENERAL VIBE_CHECKS SHOW_TELL TECHNICAL"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
		return
	}

	thread, err := h.catalog.CreateThread(c.Request.Context(), middleware.ActorID(c), catalog.ThreadInput{
		Title:    input.Title,
		Content:  input.Content,
		Category: models.ThreadCategory(input.Category),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, thread)
}
