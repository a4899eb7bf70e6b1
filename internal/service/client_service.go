package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"traffichub/internal/models"
	"traffichub/internal/repository"
)

type ClientService struct {
	clients *repository.ClientRepository
}

func NewClientService(clients *repository.ClientRepository) *ClientService {
	return &ClientService{clients: clients}
}

type CreateClientInput struct {
	Name            string     `json:"name" binding:"required"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	WhatsAppGroupID *string    `json:"whatsapp_group_id"`
	DriveLink       string     `json:"google_drive_link"`
	LastMeeting     *time.Time `json:"last_meeting"`
}

// Create registers a client. A WhatsApp group can be linked to one client only.
func (s *ClientService) Create(ctx context.Context, in CreateClientInput) (*models.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	var group *string
	if in.WhatsAppGroupID != nil && strings.TrimSpace(*in.WhatsAppGroupID) != "" {
		g := strings.TrimSpace(*in.WhatsAppGroupID)
		_, err := s.clients.GetByWhatsAppGroup(ctx, g)
		if err == nil {
			return nil, fmt.Errorf("%w: whatsapp group already linked", ErrInvalidInput)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		group = &g
	}
	c := &models.Client{
		Name:            name,
		Status:          in.Status,
		Priority:        in.Priority,
		WhatsAppGroupID: group,
		DriveLink:       in.DriveLink,
		LastMeeting:     in.LastMeeting,
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	return s.clients.GetByID(ctx, id)
}

func (s *ClientService) List(ctx context.Context) ([]models.Client, error) {
	return s.clients.List(ctx)
}

// Delete soft-deletes the client; its unread rows stop counting everywhere.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	return s.clients.Delete(ctx, id)
}
