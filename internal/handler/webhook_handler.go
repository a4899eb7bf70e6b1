package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/service"

	"github.com/gin-gonic/gin"
)

// WebhookSecretHeader carries the shared secret of inbound webhooks.
const WebhookSecretHeader = "X-Webhook-Secret"

type WebhookHandler struct {
	messages *service.MessageService
	log      *slog.Logger
}

func NewWebhookHandler(messages *service.MessageService, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{messages: messages, log: log}
}

// WhatsAppInbound stores a message received in a client's group.
func (h *WebhookHandler) WhatsAppInbound(c *gin.Context) {
	var req service.InboundExternal
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.messages.ReceiveExternal(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, "receive message", err)
		return
	}
	h.log.Info("inbound whatsapp message", slog.String("client_id", m.ClientID), slog.String("message_id", m.ID))
	c.JSON(http.StatusCreated, gin.H{"id": m.ID})
}
