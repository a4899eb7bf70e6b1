package handler

import (
	"log/slog"
	"net/http"

	"traffichub/internal/domain"
	"traffichub/internal/middleware"
	"traffichub/internal/readstate"
	"traffichub/internal/unread"

	"github.com/gin-gonic/gin"
)

// ReadStateHandler serves mark-read transitions and unread aggregates.
type ReadStateHandler struct {
	tracker *readstate.Tracker
	agg     *unread.Aggregator
	log     *slog.Logger
}

func NewReadStateHandler(tracker *readstate.Tracker, agg *unread.Aggregator, log *slog.Logger) *ReadStateHandler {
	return &ReadStateHandler{tracker: tracker, agg: agg, log: log}
}

// filterFromQuery reads the optional type, client_id, ticket_id and
// sender_id query parameters.
func filterFromQuery(c *gin.Context) (domain.Filter, bool) {
	f := domain.Filter{
		Type:     domain.NotificationType(c.Query("type")),
		ClientID: c.Query("client_id"),
		TicketID: c.Query("ticket_id"),
		SenderID: c.Query("sender_id"),
	}
	if f.Type != "" && !f.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown notification type"})
		return f, false
	}
	return f, true
}

func (h *ReadStateHandler) markScope(c *gin.Context, scope domain.Scope, f domain.Filter) {
	n, err := h.tracker.MarkRead(c.Request.Context(), domain.ScopeSelector(scope, f))
	if err != nil {
		fail(c, h.log, "mark read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *ReadStateHandler) count(c *gin.Context, scope domain.Scope, f domain.Filter) {
	n, err := h.agg.CountUnread(c.Request.Context(), scope, f)
	if err != nil {
		fail(c, h.log, "count unread", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n, "has_unread": n > 0})
}

// MarkClientRead marks a client's external messages read.
func (h *ReadStateHandler) MarkClientRead(c *gin.Context) {
	h.markScope(c, domain.ClientScope(c.Param("id")), domain.Filter{})
}

// MarkTicketRead marks a ticket's internal messages read, optionally only
// those of ?sender_id.
func (h *ReadStateHandler) MarkTicketRead(c *gin.Context) {
	h.markScope(c, domain.TicketScope(c.Param("id")), domain.Filter{SenderID: c.Query("sender_id")})
}

// MarkDirectRead marks what the partner sent to the caller read.
func (h *ReadStateHandler) MarkDirectRead(c *gin.Context) {
	h.markScope(c, domain.ConversationScope(middleware.GetUserID(c), c.Param("partner_id")), domain.Filter{})
}

func (h *ReadStateHandler) MarkNotificationsRead(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.tracker.MarkReadByIDs(c.Request.Context(), domain.RowNotification, middleware.GetUserID(c), req.IDs)
	if err != nil {
		fail(c, h.log, "mark read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// MarkNotificationsContextRead marks the caller's notifications about one
// context (a client, a ticket, a sender, a type) read.
func (h *ReadStateHandler) MarkNotificationsContextRead(c *gin.Context) {
	var req domain.Filter
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown notification type"})
		return
	}
	if req.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a context is required"})
		return
	}
	h.markScope(c, domain.InboxScope(middleware.GetUserID(c)), req)
}

func (h *ReadStateHandler) ClientUnread(c *gin.Context) {
	h.count(c, domain.ClientScope(c.Param("id")), domain.Filter{})
}

func (h *ReadStateHandler) TicketUnread(c *gin.Context) {
	h.count(c, domain.TicketScope(c.Param("id")), domain.Filter{SenderID: c.Query("sender_id")})
}

func (h *ReadStateHandler) DirectUnread(c *gin.Context) {
	h.count(c, domain.ConversationScope(middleware.GetUserID(c), c.Param("partner_id")), domain.Filter{})
}

// ClientTicketsUnread answers the sparse ticket id -> unread count map.
func (h *ReadStateHandler) ClientTicketsUnread(c *gin.Context) {
	byTicket, err := h.agg.UnreadByChildScope(c.Request.Context(), domain.ClientScope(c.Param("id")))
	if err != nil {
		fail(c, h.log, "count unread", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": byTicket})
}

func (h *ReadStateHandler) NotificationUnreadCount(c *gin.Context) {
	f, ok := filterFromQuery(c)
	if !ok {
		return
	}
	h.count(c, domain.InboxScope(middleware.GetUserID(c)), f)
}
