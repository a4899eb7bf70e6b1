package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	tickets  *service.TicketService
	messages *service.MessageService
	me       *ProfileHandler
	log      *slog.Logger
}

func NewTicketHandler(tickets *service.TicketService, messages *service.MessageService, me *ProfileHandler, log *slog.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, messages: messages, me: me, log: log}
}

// List returns non-archived tickets, newest first, optionally for ?client_id.
func (h *TicketHandler) List(c *gin.Context) {
	list, err := h.tickets.List(c.Request.Context(), c.Query("client_id"))
	if err != nil {
		fail(c, h.log, "list tickets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": list})
}

func (h *TicketHandler) NewCount(c *gin.Context) {
	n, err := h.tickets.CountNew(c.Request.Context(), c.Query("client_id"))
	if err != nil {
		fail(c, h.log, "count tickets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req service.CreateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, ok := h.me.current(c)
	if !ok {
		return
	}
	t, err := h.tickets.Create(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, h.log, "create ticket", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": t})
}

func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.log, "get ticket", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

func (h *TicketHandler) Update(c *gin.Context) {
	var req service.UpdateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, ok := h.me.current(c)
	if !ok {
		return
	}
	t, err := h.tickets.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, h.log, "update ticket", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

func (h *TicketHandler) Delete(c *gin.Context) {
	if err := h.tickets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.log, "delete ticket", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TicketHandler) ListMessages(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.messages.ListInternal(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		fail(c, h.log, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func (h *TicketHandler) LastMessage(c *gin.Context) {
	m, err := h.messages.LastInternal(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.log, "last message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": m})
}

func (h *TicketHandler) SendMessage(c *gin.Context) {
	var req service.InternalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, ok := h.me.current(c)
	if !ok {
		return
	}
	m, err := h.messages.SendInternal(c.Request.Context(), c.Param("id"), sender, req)
	if err != nil {
		fail(c, h.log, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}
