package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/middleware"
	"traffichub/internal/service"

	"github.com/gin-gonic/gin"
)

type DirectHandler struct {
	messages *service.MessageService
	me       *ProfileHandler
	log      *slog.Logger
}

func NewDirectHandler(messages *service.MessageService, me *ProfileHandler, log *slog.Logger) *DirectHandler {
	return &DirectHandler{messages: messages, me: me, log: log}
}

func (h *DirectHandler) ListMessages(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.messages.ListConversation(c.Request.Context(), middleware.GetUserID(c), c.Param("partner_id"), limit, offset)
	if err != nil {
		fail(c, h.log, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func (h *DirectHandler) SendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, ok := h.me.current(c)
	if !ok {
		return
	}
	m, err := h.messages.SendDirect(c.Request.Context(), sender, c.Param("partner_id"), req.Content)
	if err != nil {
		fail(c, h.log, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}
