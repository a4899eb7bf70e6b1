package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/middleware"
	"traffichub/internal/models"
	"traffichub/internal/repository"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles *repository.ProfileRepository
	log      *slog.Logger
}

func NewProfileHandler(profiles *repository.ProfileRepository, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log}
}

// current loads the authenticated profile, answering 401 when it is gone.
func (h *ProfileHandler) current(c *gin.Context) (*models.Profile, bool) {
	p, err := h.profiles.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "profile not found"})
		return nil, false
	}
	return p, true
}

func (h *ProfileHandler) List(c *gin.Context) {
	list, err := h.profiles.List(c.Request.Context())
	if err != nil {
		fail(c, h.log, "list profiles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

func (h *ProfileHandler) Me(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (h *ProfileHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=online away offline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.profiles.SetStatus(c.Request.Context(), middleware.GetUserID(c), req.Status); err != nil {
		fail(c, h.log, "set status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

