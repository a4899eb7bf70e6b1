package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is an external customer whose conversation lives in a WhatsApp group.
type Client struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	Status          string         `gorm:"size:40" json:"status"`
	Priority        string         `gorm:"size:40" json:"priority"`
	WhatsAppGroupID *string        `gorm:"column:whatsapp_group_id;uniqueIndex;size:128" json:"whatsapp_group_id"`
	DriveLink       string         `gorm:"size:512" json:"google_drive_link"`
	LastMeeting     *time.Time     `json:"last_meeting"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Client) TableName() string {
	return "clients"
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
