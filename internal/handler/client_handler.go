package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/service"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clients  *service.ClientService
	messages *service.MessageService
	me       *ProfileHandler
	log      *slog.Logger
}

func NewClientHandler(clients *service.ClientService, messages *service.MessageService, me *ProfileHandler, log *slog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, messages: messages, me: me, log: log}
}

func (h *ClientHandler) List(c *gin.Context) {
	list, err := h.clients.List(c.Request.Context())
	if err != nil {
		fail(c, h.log, "list clients", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": list})
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req service.CreateClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.clients.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, "create client", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.log, "get client", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.log, "delete client", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) ListMessages(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.messages.ListExternal(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		fail(c, h.log, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

// SendMessage posts to the client's WhatsApp group.
func (h *ClientHandler) SendMessage(c *gin.Context) {
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
	m, err := h.messages.SendExternal(c.Request.Context(), c.Param("id"), sender, req.Content)
	if err != nil {
		fail(c, h.log, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}
