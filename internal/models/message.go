package models

import (
	"time"

	"traffichub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExternalMessage is one message of a client's WhatsApp group.
type ExternalMessage struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID   string    `gorm:"type:varchar(36);not null;index:idx_external_client_read" json:"client_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	SenderName string    `gorm:"size:255;not null" json:"sender_name"`
	Direction  string    `gorm:"size:10;not null" json:"direction"` // inbound | outbound
	IsRead     bool      `gorm:"not null;default:false;index:idx_external_client_read" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (ExternalMessage) TableName() string {
	return "external_messages"
}

func (m *ExternalMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m ExternalMessage) Row() domain.Row {
	return domain.Row{ID: m.ID, ClientID: m.ClientID, IsRead: m.IsRead}
}

// InternalMessage is a team discussion message attached to a ticket.
type InternalMessage struct {
	ID                      string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TicketID                string    `gorm:"type:varchar(36);not null;index:idx_internal_ticket_read" json:"ticket_id"`
	SenderID                string    `gorm:"type:varchar(36);not null;index" json:"sender_id"`
	Content                 string    `gorm:"type:text;not null" json:"content"`
	Mentions                []string  `gorm:"type:text;serializer:json" json:"mentions"`
	QuotedExternalMessageID *string   `gorm:"type:varchar(36)" json:"quoted_external_message_id"`
	IsRead                  bool      `gorm:"not null;default:false;index:idx_internal_ticket_read" json:"is_read"`
	CreatedAt               time.Time `gorm:"index" json:"created_at"`

	Sender                *Profile         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	QuotedExternalMessage *ExternalMessage `gorm:"foreignKey:QuotedExternalMessageID" json:"quoted_message,omitempty"`

	// ClientID of the owning ticket. Filled by the repository for change events.
	ClientID string `gorm:"-" json:"-"`
}

func (InternalMessage) TableName() string {
	return "internal_messages"
}

func (m *InternalMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m InternalMessage) Row() domain.Row {
	return domain.Row{ID: m.ID, TicketID: m.TicketID, ClientID: m.ClientID, SenderID: m.SenderID, IsRead: m.IsRead}
}

// DirectMessage is a one-to-one message between two profiles.
type DirectMessage struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SenderID   string    `gorm:"type:varchar(36);not null;index:idx_direct_pair" json:"sender_id"`
	ReceiverID string    `gorm:"type:varchar(36);not null;index:idx_direct_pair" json:"receiver_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	Sender *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (DirectMessage) TableName() string {
	return "direct_messages"
}

func (m *DirectMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m DirectMessage) Row() domain.Row {
	return domain.Row{ID: m.ID, SenderID: m.SenderID, ReceiverID: m.ReceiverID, IsRead: m.IsRead}
}
