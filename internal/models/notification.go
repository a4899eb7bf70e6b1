package models

import (
	"time"

	"traffichub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is one entry of a user's notification feed. Its read state is
// independent of the read state of the message it announces.
type Notification struct {
	ID          string                  `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string                  `gorm:"type:varchar(36);not null;index:idx_notifications_user_read" json:"user_id"`
	Type        domain.NotificationType `gorm:"size:40;not null;index" json:"type"`
	ClientID    *string                 `gorm:"type:varchar(36);index" json:"client_id"`
	TicketID    *string                 `gorm:"type:varchar(36);index" json:"ticket_id"`
	MessageID   *string                 `gorm:"type:varchar(36)" json:"message_id"`
	SenderID    *string                 `gorm:"type:varchar(36);index" json:"sender_id"`
	SenderName  string                  `gorm:"size:255" json:"sender_name"`
	Title       string                  `gorm:"size:255;not null" json:"title"`
	Description *string                 `gorm:"type:text" json:"description"`
	IsRead      bool                    `gorm:"not null;default:false;index:idx_notifications_user_read" json:"is_read"`
	ReadAt      *time.Time              `json:"read_at"`
	CreatedAt   time.Time               `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

func (n Notification) Row() domain.Row {
	return domain.Row{
		ID:       n.ID,
		UserID:   n.UserID,
		ClientID: deref(n.ClientID),
		TicketID: deref(n.TicketID),
		SenderID: deref(n.SenderID),
		IsRead:   n.IsRead,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
