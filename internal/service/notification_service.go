package service

import (
	"context"
	"log/slog"

	"traffichub/internal/domain"
	"traffichub/internal/models"
	"traffichub/internal/repository"
)

// NotificationService produces notification rows in reaction to domain
// events. A failure is logged and never fails the write that caused it.
type NotificationService struct {
	repo     *repository.NotificationRepository
	profiles *repository.ProfileRepository
	log      *slog.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, profiles *repository.ProfileRepository, log *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, profiles: profiles, log: log.With(slog.String("component", "notifications"))}
}

// Notify stores one notification per recipient.
func (s *NotificationService) Notify(ctx context.Context, recipients []string, tmpl models.Notification) {
	if len(recipients) == 0 {
		return
	}
	list := make([]*models.Notification, len(recipients))
	for i, id := range recipients {
		n := tmpl
		n.UserID = id
		list[i] = &n
	}
	if err := s.repo.Create(ctx, list...); err != nil {
		s.log.Error("create notifications failed",
			slog.String("type", string(tmpl.Type)),
			slog.Int("recipients", len(recipients)),
			slog.Any("error", err),
		)
	}
}

// everyone returns all profile ids except the excluded ones.
func (s *NotificationService) everyone(ctx context.Context, except ...string) []string {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		s.log.Error("list notification recipients failed", slog.Any("error", err))
		return nil
	}
	skip := make(map[string]struct{}, len(except))
	for _, id := range except {
		skip[id] = struct{}{}
	}
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if _, ok := skip[p.ID]; !ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (s *NotificationService) NotifyExternalMessage(ctx context.Context, c *models.Client, m *models.ExternalMessage) {
	s.Notify(ctx, s.everyone(ctx), models.Notification{
		Type:        domain.NotificationExternalMessage,
		ClientID:    &c.ID,
		MessageID:   &m.ID,
		SenderName:  m.SenderName,
		Title:       "New message from " + c.Name,
		Description: preview(m.Content),
	})
}

// NotifyInternalMessage tells every member but the sender about a ticket
// message; mentioned members also get a mention.
func (s *NotificationService) NotifyInternalMessage(ctx context.Context, t *models.Ticket, m *models.InternalMessage, sender *models.Profile) {
	base := models.Notification{
		ClientID:    &t.ClientID,
		TicketID:    &t.ID,
		MessageID:   &m.ID,
		SenderID:    &sender.ID,
		SenderName:  sender.Name,
		Description: preview(m.Content),
	}

	msg := base
	msg.Type = domain.NotificationInternalMessage
	msg.Title = sender.Name + " in " + t.Title
	s.Notify(ctx, s.everyone(ctx, sender.ID), msg)

	var mentioned []string
	for _, id := range m.Mentions {
		if id != sender.ID {
			mentioned = append(mentioned, id)
		}
	}
	mention := base
	mention.Type = domain.NotificationMention
	mention.Title = sender.Name + " mentioned you in " + t.Title
	s.Notify(ctx, mentioned, mention)
}

func (s *NotificationService) NotifyDirectMessage(ctx context.Context, m *models.DirectMessage, sender *models.Profile) {
	s.Notify(ctx, []string{m.ReceiverID}, models.Notification{
		Type:        domain.NotificationDirectMessage,
		MessageID:   &m.ID,
		SenderID:    &sender.ID,
		SenderName:  sender.Name,
		Title:       "Message from " + sender.Name,
		Description: preview(m.Content),
	})
}

func (s *NotificationService) NotifyTicketCreated(ctx context.Context, t *models.Ticket, creator *models.Profile) {
	s.Notify(ctx, s.everyone(ctx, creator.ID), models.Notification{
		Type:       domain.NotificationTicketCreated,
		ClientID:   &t.ClientID,
		TicketID:   &t.ID,
		SenderID:   &creator.ID,
		SenderName: creator.Name,
		Title:      "New ticket: " + t.Title,
	})
}

func (s *NotificationService) NotifyTicketAssigned(ctx context.Context, t *models.Ticket, actor *models.Profile) {
	if t.AssigneeID == nil || *t.AssigneeID == actor.ID {
		return
	}
	s.Notify(ctx, []string{*t.AssigneeID}, models.Notification{
		Type:       domain.NotificationTicketAssigned,
		ClientID:   &t.ClientID,
		TicketID:   &t.ID,
		SenderID:   &actor.ID,
		SenderName: actor.Name,
		Title:      "Ticket assigned to you: " + t.Title,
	})
}

func (s *NotificationService) NotifyTicketStatusChanged(ctx context.Context, t *models.Ticket, actor *models.Profile) {
	if t.AssigneeID == nil || *t.AssigneeID == actor.ID {
		return
	}
	desc := "Status is now " + string(t.Status)
	s.Notify(ctx, []string{*t.AssigneeID}, models.Notification{
		Type:        domain.NotificationTicketStatusChanged,
		ClientID:    &t.ClientID,
		TicketID:    &t.ID,
		SenderID:    &actor.ID,
		SenderName:  actor.Name,
		Title:       "Ticket updated: " + t.Title,
		Description: &desc,
	})
}

const previewLen = 140

func preview(content string) *string {
	r := []rune(content)
	if len(r) > previewLen {
		r = append(r[:previewLen], '…')
	}
	p := string(r)
	return &p
}
