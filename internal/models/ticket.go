package models

import (
	"time"

	"traffichub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Ticket struct {
	ID         string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientID   string              `gorm:"type:varchar(36);not null;index" json:"client_id"`
	Title      string              `gorm:"size:255;not null" json:"title"`
	Status     domain.TicketStatus `gorm:"size:30;not null;index" json:"status"`
	AssigneeID *string             `gorm:"type:varchar(36);index" json:"assignee_id"`
	IsArchived bool                `gorm:"not null;default:false;index" json:"is_archived"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	DeletedAt  gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TicketNew
	}
	return nil
}

func (t Ticket) Row() domain.Row {
	return domain.Row{ID: t.ID, ClientID: t.ClientID, Archived: t.IsArchived}
}
