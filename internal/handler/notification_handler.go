package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/middleware"
	"traffichub/internal/repository"
	"traffichub/internal/unread"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo *repository.NotificationRepository
	agg  *unread.Aggregator
	log  *slog.Logger
}

func NewNotificationHandler(repo *repository.NotificationRepository, agg *unread.Aggregator, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, agg: agg, log: log}
}

// List answers the caller's unread notifications, newest first, narrowed by
// the filter query parameters. ?all=true lists read ones too.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, offset := page(c)
	if c.Query("all") == "true" {
		list, err := h.repo.ListByUserID(c.Request.Context(), userID, limit, offset)
		if err != nil {
			fail(c, h.log, "list notifications", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": list})
		return
	}
	f, ok := filterFromQuery(c)
	if !ok {
		return
	}
	list, err := h.agg.ListUnread(c.Request.Context(), userID, f, limit)
	if err != nil {
		fail(c, h.log, "list notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
