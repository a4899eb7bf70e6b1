package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
	"traffichub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadStateRepository counts and transitions read flags of every
// read-trackable row kind through one query builder.
type ReadStateRepository struct {
	db *gorm.DB
	publisher
	now func() time.Time
}

func NewReadStateRepository(db *gorm.DB, feed changefeed.Publisher, log *slog.Logger) *ReadStateRepository {
	return &ReadStateRepository{db: db, publisher: publisher{feed: feed, log: log}, now: time.Now}
}

// A ticket is alive only while its owning client is.
const (
	clientAlive = "EXISTS (SELECT 1 FROM clients WHERE clients.id = %s AND clients.deleted_at IS NULL)"
	ticketAlive = "EXISTS (SELECT 1 FROM tickets WHERE tickets.id = %s AND tickets.deleted_at IS NULL AND " +
		"EXISTS (SELECT 1 FROM clients WHERE clients.id = tickets.client_id AND clients.deleted_at IS NULL))"
)

// unread builds the query selecting the unread rows a selector names.
// Rows whose owning client, ticket or sender no longer resolves are excluded.
func unread(db *gorm.DB, sel domain.Selector) *gorm.DB {
	kind := sel.RowKind()
	table := string(kind.Table())
	col := func(c string) string { return table + "." + c }

	q := db.Table(table).Where(col("is_read")+" = ?", false)
	if sel.ByIDs() {
		q = q.Where(col("id")+" IN ?", sel.IDs)
		if sel.Owner != "" {
			switch kind {
			case domain.RowNotification:
				q = q.Where(col("user_id")+" = ?", sel.Owner)
			case domain.RowDirect:
				q = q.Where(col("receiver_id")+" = ?", sel.Owner)
			}
		}
	} else {
		q = scopeWhere(q, sel.Scope)
		q = filterWhere(q, kind, sel.Filter)
	}
	return aliveWhere(q, kind)
}

func scopeWhere(q *gorm.DB, s domain.Scope) *gorm.DB {
	switch s.Kind {
	case domain.ScopeClient:
		return q.Where("external_messages.client_id = ?", s.ID)
	case domain.ScopeTicket:
		return q.Where("internal_messages.ticket_id = ?", s.ID)
	case domain.ScopeConversation:
		return q.Where("direct_messages.sender_id = ? AND direct_messages.receiver_id = ?", s.ID, s.Viewer)
	case domain.ScopeInbox:
		return q.Where("notifications.user_id = ?", s.ID)
	case domain.ScopeClientTickets:
		return q.Where(
			"internal_messages.ticket_id IN (SELECT tickets.id FROM tickets WHERE tickets.client_id = ? AND tickets.is_archived = ? AND tickets.deleted_at IS NULL AND "+
				fmt.Sprintf(clientAlive, "tickets.client_id")+")",
			s.ID, false,
		)
	}
	return q.Where("1 = 0")
}

// filterWhere narrows q by the fields of f that kind carries. Callers reject
// filters with other fields set before they get here.
func filterWhere(q *gorm.DB, kind domain.RowKind, f domain.Filter) *gorm.DB {
	switch kind {
	case domain.RowNotification:
		if f.Type != "" {
			q = q.Where("notifications.type = ?", f.Type)
		}
		if f.ClientID != "" {
			q = q.Where("notifications.client_id = ?", f.ClientID)
		}
		if f.TicketID != "" {
			q = q.Where("notifications.ticket_id = ?", f.TicketID)
		}
		if f.SenderID != "" {
			q = q.Where("notifications.sender_id = ?", f.SenderID)
		}
	case domain.RowInternal:
		if f.SenderID != "" {
			q = q.Where("internal_messages.sender_id = ?", f.SenderID)
		}
	case domain.RowDirect:
		if f.SenderID != "" {
			q = q.Where("direct_messages.sender_id = ?", f.SenderID)
		}
	}
	return q
}

func aliveWhere(q *gorm.DB, kind domain.RowKind) *gorm.DB {
	switch kind {
	case domain.RowExternal:
		return q.Where(fmt.Sprintf(clientAlive, "external_messages.client_id"))
	case domain.RowInternal:
		return q.Where(fmt.Sprintf(ticketAlive, "internal_messages.ticket_id"))
	case domain.RowDirect:
		return q.Where("EXISTS (SELECT 1 FROM profiles WHERE profiles.id = direct_messages.sender_id)")
	case domain.RowNotification:
		return q.
			Where("notifications.client_id IS NULL OR " + fmt.Sprintf(clientAlive, "notifications.client_id")).
			Where("notifications.ticket_id IS NULL OR " + fmt.Sprintf(ticketAlive, "notifications.ticket_id"))
	}
	return q
}

// CountUnread counts the unread rows of scope. An unresolvable scope counts 0.
func (r *ReadStateRepository) CountUnread(ctx context.Context, scope domain.Scope, f domain.Filter) (int64, error) {
	if !scope.Valid() {
		return 0, nil
	}
	var n int64
	err := unread(r.db.WithContext(ctx), domain.ScopeSelector(scope, f)).Count(&n).Error
	return n, err
}

// UnreadByTicket maps each non-archived ticket of the client to its unread
// internal message count. Tickets without unread messages are absent.
func (r *ReadStateRepository) UnreadByTicket(ctx context.Context, clientID string) (map[string]int64, error) {
	counts := map[string]int64{}
	if clientID == "" {
		return counts, nil
	}
	var rows []struct {
		TicketID string
		N        int64
	}
	err := unread(r.db.WithContext(ctx), domain.ScopeSelector(domain.ClientTicketsScope(clientID), domain.Filter{})).
		Select("internal_messages.ticket_id AS ticket_id, COUNT(*) AS n").
		Group("internal_messages.ticket_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.N > 0 {
			counts[row.TicketID] = row.N
		}
	}
	return counts, nil
}

// ListUnreadNotifications returns the user's unread notifications matching f,
// newest first.
func (r *ReadStateRepository) ListUnreadNotifications(ctx context.Context, userID string, f domain.Filter, limit int) ([]models.Notification, error) {
	if userID == "" {
		return nil, nil
	}
	var list []models.Notification
	err := unread(r.db.WithContext(ctx), domain.ScopeSelector(domain.InboxScope(userID), f)).
		Order("notifications.created_at DESC").
		Order("notifications.id DESC").
		Scopes(paginate(limit, 0)).
		Find(&list).Error
	return list, err
}

// MarkRead transitions every unread row the selector names to read and
// returns the transitioned rows. The selected rows are locked for the
// transaction so concurrent markers never both report the same row.
// Notifications also get read_at stamped.
func (r *ReadStateRepository) MarkRead(ctx context.Context, sel domain.Selector) ([]domain.Row, error) {
	if !sel.Valid() {
		return nil, nil
	}
	kind := sel.RowKind()
	table := string(kind.Table())

	var marked []domain.Row
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := unreadRows(unread(tx, sel).Clauses(clause.Locking{Strength: "UPDATE"}), kind)
		if err != nil || len(rows) == 0 {
			return err
		}
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		updates := map[string]any{"is_read": true}
		if kind == domain.RowNotification {
			updates["read_at"] = r.now()
		}
		if err := tx.Table(table).Where("id IN ?", ids).Updates(updates).Error; err != nil {
			return err
		}
		if kind == domain.RowInternal {
			if err := withTicketClients(tx, rows); err != nil {
				return err
			}
		}
		marked = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := make([]changefeed.Event, len(marked))
	for i, row := range marked {
		old := row
		old.IsRead = false
		row.IsRead = true
		marked[i] = row
		events[i] = updated(kind.Table(), old, row)
	}
	r.publish(ctx, events...)
	return marked, nil
}

type rowSource interface {
	Row() domain.Row
}

func findRows[T rowSource](q *gorm.DB) ([]domain.Row, error) {
	var list []T
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	rows := make([]domain.Row, len(list))
	for i, m := range list {
		rows[i] = m.Row()
	}
	return rows, nil
}

func unreadRows(q *gorm.DB, kind domain.RowKind) ([]domain.Row, error) {
	switch kind {
	case domain.RowExternal:
		return findRows[models.ExternalMessage](q)
	case domain.RowInternal:
		return findRows[models.InternalMessage](q)
	case domain.RowDirect:
		return findRows[models.DirectMessage](q)
	case domain.RowNotification:
		return findRows[models.Notification](q)
	}
	return nil, nil
}

// withTicketClients fills the owning client of internal message rows.
func withTicketClients(tx *gorm.DB, rows []domain.Row) error {
	ticketIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		ticketIDs = append(ticketIDs, row.TicketID)
	}
	var tickets []models.Ticket
	if err := tx.Unscoped().Select("id", "client_id").Where("id IN ?", ticketIDs).Find(&tickets).Error; err != nil {
		return err
	}
	owner := make(map[string]string, len(tickets))
	for _, t := range tickets {
		owner[t.ID] = t.ClientID
	}
	for i := range rows {
		rows[i].ClientID = owner[rows[i].TicketID]
	}
	return nil
}
