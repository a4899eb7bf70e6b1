package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"traffichub/internal/domain"
	"traffichub/internal/models"
	"traffichub/internal/repository"
)

type TicketService struct {
	clients  *repository.ClientRepository
	tickets  *repository.TicketRepository
	profiles *repository.ProfileRepository
	notifier *NotificationService
	log      *slog.Logger
}

func NewTicketService(
	clients *repository.ClientRepository,
	tickets *repository.TicketRepository,
	profiles *repository.ProfileRepository,
	notifier *NotificationService,
	log *slog.Logger,
) *TicketService {
	return &TicketService{
		clients:  clients,
		tickets:  tickets,
		profiles: profiles,
		notifier: notifier,
		log:      log.With(slog.String("component", "tickets")),
	}
}

type CreateTicketInput struct {
	ClientID   string  `json:"client_id" binding:"required"`
	Title      string  `json:"title" binding:"required"`
	AssigneeID *string `json:"assignee_id"`
}

func (s *TicketService) Create(ctx context.Context, creator *models.Profile, in CreateTicketInput) (*models.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if _, err := s.clients.GetByID(ctx, in.ClientID); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, in.AssigneeID); err != nil {
		return nil, err
	}
	t := &models.Ticket{
		ClientID:   in.ClientID,
		Title:      title,
		Status:     domain.TicketNew,
		AssigneeID: in.AssigneeID,
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	s.notifier.NotifyTicketCreated(ctx, t, creator)
	s.notifier.NotifyTicketAssigned(ctx, t, creator)
	return t, nil
}

// UpdateTicketInput is a partial update; nil fields are left unchanged. An
// empty AssigneeID unassigns.
type UpdateTicketInput struct {
	Title      *string              `json:"title"`
	Status     *domain.TicketStatus `json:"status"`
	AssigneeID *string              `json:"assignee_id"`
	IsArchived *bool                `json:"is_archived"`
}

func (s *TicketService) Update(ctx context.Context, actor *models.Profile, id string, in UpdateTicketInput) (*models.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *t

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		t.Title = title
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
		t.Status = *in.Status
	}
	if in.AssigneeID != nil {
		if *in.AssigneeID == "" {
			t.AssigneeID = nil
		} else {
			if err := s.checkAssignee(ctx, in.AssigneeID); err != nil {
				return nil, err
			}
			assignee := *in.AssigneeID
			t.AssigneeID = &assignee
		}
	}
	if in.IsArchived != nil {
		t.IsArchived = *in.IsArchived
	}

	if err := s.tickets.Update(ctx, &old, t); err != nil {
		return nil, err
	}
	if deref(old.AssigneeID) != deref(t.AssigneeID) {
		s.notifier.NotifyTicketAssigned(ctx, t, actor)
	}
	if old.Status != t.Status {
		s.notifier.NotifyTicketStatusChanged(ctx, t, actor)
	}
	return t, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	if _, err := s.profiles.GetByID(ctx, *id); err != nil {
		return fmt.Errorf("%w: unknown assignee", ErrInvalidInput)
	}
	return nil
}

func (s *TicketService) Get(ctx context.Context, id string) (*models.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

func (s *TicketService) List(ctx context.Context, clientID string) ([]models.Ticket, error) {
	return s.tickets.List(ctx, clientID)
}

func (s *TicketService) CountNew(ctx context.Context, clientID string) (int64, error) {
	return s.tickets.CountNew(ctx, clientID)
}

func (s *TicketService) Delete(ctx context.Context, id string) error {
	return s.tickets.Delete(ctx, id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
