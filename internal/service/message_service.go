package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"traffichub/internal/domain"
	"traffichub/internal/models"
	"traffichub/internal/repository"
	"traffichub/pkg/whatsapp"
)

// GroupSender delivers an outbound message to a client's WhatsApp group.
type GroupSender interface {
	Send(ctx context.Context, msg whatsapp.OutboundMessage) error
}

type MessageService struct {
	clients  *repository.ClientRepository
	tickets  *repository.TicketRepository
	messages *repository.MessageRepository
	profiles *repository.ProfileRepository
	notifier *NotificationService
	whatsapp GroupSender
	log      *slog.Logger
}

func NewMessageService(
	clients *repository.ClientRepository,
	tickets *repository.TicketRepository,
	messages *repository.MessageRepository,
	profiles *repository.ProfileRepository,
	notifier *NotificationService,
	wa GroupSender,
	log *slog.Logger,
) *MessageService {
	return &MessageService{
		clients:  clients,
		tickets:  tickets,
		messages: messages,
		profiles: profiles,
		notifier: notifier,
		whatsapp: wa,
		log:      log.With(slog.String("component", "messages")),
	}
}

// InboundExternal is one message received from a WhatsApp group.
type InboundExternal struct {
	GroupID    string `json:"group_id" binding:"required"`
	SenderName string `json:"sender_name" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// ReceiveExternal stores an inbound group message as unread and notifies the
// team.
func (s *MessageService) ReceiveExternal(ctx context.Context, in InboundExternal) (*models.ExternalMessage, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	c, err := s.clients.GetByWhatsAppGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	m := &models.ExternalMessage{
		ClientID:   c.ID,
		Content:    in.Content,
		SenderName: in.SenderName,
		Direction:  domain.DirectionInbound,
	}
	if err := s.messages.CreateExternal(ctx, m); err != nil {
		return nil, err
	}
	s.notifier.NotifyExternalMessage(ctx, c, m)
	return m, nil
}

// SendExternal posts content to the client's group through the webhook and
// stores it as an outbound message. Messages the team wrote are stored read.
func (s *MessageService) SendExternal(ctx context.Context, clientID string, sender *models.Profile, content string) (*models.ExternalMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.WhatsAppGroupID == nil || *c.WhatsAppGroupID == "" {
		return nil, fmt.Errorf("%w: client has no whatsapp group", ErrInvalidInput)
	}
	err = s.whatsapp.Send(ctx, whatsapp.OutboundMessage{
		Message: content,
		GroupID: *c.WhatsAppGroupID,
		Sender:  sender.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("send to whatsapp: %w", err)
	}
	m := &models.ExternalMessage{
		ClientID:   c.ID,
		Content:    content,
		SenderName: sender.Name,
		Direction:  domain.DirectionOutbound,
		IsRead:     true,
	}
	if err := s.messages.CreateExternal(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MessageService) ListExternal(ctx context.Context, clientID string, limit, offset int) ([]models.ExternalMessage, error) {
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	return s.messages.ListExternal(ctx, clientID, limit, offset)
}

// InternalInput is a new ticket message.
type InternalInput struct {
	Content                 string   `json:"content" binding:"required"`
	Mentions                []string `json:"mentions"`
	QuotedExternalMessageID *string  `json:"quoted_external_message_id"`
}

var mentionToken = regexp.MustCompile(`@(\w+)`)

// SendInternal posts a message to a ticket thread. Explicit mentions must name
// existing profiles; without them, @name tokens in the content are resolved
// against profile names.
func (s *MessageService) SendInternal(ctx context.Context, ticketID string, sender *models.Profile, in InternalInput) (*models.InternalMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	mentions, err := s.resolveMentions(ctx, content, in.Mentions)
	if err != nil {
		return nil, err
	}
	if in.QuotedExternalMessageID != nil {
		quoted, err := s.messages.GetExternal(ctx, *in.QuotedExternalMessageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: quoted message not found", ErrInvalidInput)
			}
			return nil, err
		}
		if quoted.ClientID != t.ClientID {
			return nil, fmt.Errorf("%w: quoted message belongs to another client", ErrInvalidInput)
		}
	}

	m := &models.InternalMessage{
		TicketID:                t.ID,
		SenderID:                sender.ID,
		Content:                 content,
		Mentions:                mentions,
		QuotedExternalMessageID: in.QuotedExternalMessageID,
	}
	if err := s.messages.CreateInternal(ctx, m, t.ClientID); err != nil {
		return nil, err
	}
	m.Sender = sender
	s.notifier.NotifyInternalMessage(ctx, t, m, sender)
	return m, nil
}

func (s *MessageService) resolveMentions(ctx context.Context, content string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		ids := slices.Compact(slices.Sorted(slices.Values(explicit)))
		found, err := s.profiles.ExistingIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(found) != len(ids) {
			return nil, fmt.Errorf("%w: unknown mentioned profile", ErrInvalidInput)
		}
		return ids, nil
	}

	tokens := mentionToken.FindAllStringSubmatch(content, -1)
	if len(tokens) == 0 {
		return nil, nil
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, tok := range tokens {
		name := strings.ToLower(tok[1])
		for _, p := range profiles {
			if strings.Contains(strings.ToLower(p.Name), name) {
				if !slices.Contains(ids, p.ID) {
					ids = append(ids, p.ID)
				}
				break
			}
		}
	}
	return ids, nil
}

func (s *MessageService) ListInternal(ctx context.Context, ticketID string, limit, offset int) ([]models.InternalMessage, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.messages.ListInternal(ctx, ticketID, limit, offset)
}

func (s *MessageService) LastInternal(ctx context.Context, ticketID string) (*models.InternalMessage, error) {
	return s.messages.LastInternal(ctx, ticketID)
}

// SendDirect sends a one-to-one message. The receiver must exist and differ
// from the sender.
func (s *MessageService) SendDirect(ctx context.Context, sender *models.Profile, receiverID, content string) (*models.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	if receiverID == sender.ID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}
	if _, err := s.profiles.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}
	m := &models.DirectMessage{SenderID: sender.ID, ReceiverID: receiverID, Content: content}
	if err := s.messages.CreateDirect(ctx, m); err != nil {
		return nil, err
	}
	m.Sender = sender
	s.notifier.NotifyDirectMessage(ctx, m, sender)
	return m, nil
}

func (s *MessageService) ListConversation(ctx context.Context, viewerID, partnerID string, limit, offset int) ([]models.DirectMessage, error) {
	if _, err := s.profiles.GetByID(ctx, partnerID); err != nil {
		return nil, err
	}
	return s.messages.ListConversation(ctx, viewerID, partnerID, limit, offset)
}
