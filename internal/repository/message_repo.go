package repository

import (
	"context"
	"log/slog"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
	"traffichub/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
	publisher
}

func NewMessageRepository(db *gorm.DB, feed changefeed.Publisher, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, publisher: publisher{feed: feed, log: log}}
}

func (r *MessageRepository) CreateExternal(ctx context.Context, m *models.ExternalMessage) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	r.publish(ctx, inserted(domain.TableExternalMessages, m.Row()))
	return nil
}

// ListExternal returns a client's group conversation, oldest first.
func (r *MessageRepository) ListExternal(ctx context.Context, clientID string, limit, offset int) ([]models.ExternalMessage, error) {
	var list []models.ExternalMessage
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).
		Order("created_at ASC").Scopes(paginate(limit, offset)).Find(&list).Error
	return list, err
}

func (r *MessageRepository) GetExternal(ctx context.Context, id string) (*models.ExternalMessage, error) {
	var m models.ExternalMessage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// CreateInternal stores m; clientID is the owning ticket's client and travels
// with the change event.
func (r *MessageRepository) CreateInternal(ctx context.Context, m *models.InternalMessage, clientID string) error {
	if err := r.db.WithContext(ctx).Omit("Sender", "QuotedExternalMessage").Create(m).Error; err != nil {
		return err
	}
	m.ClientID = clientID
	r.publish(ctx, inserted(domain.TableInternalMessages, m.Row()))
	return nil
}

// ListInternal returns a ticket thread, oldest first, with senders and quoted
// external messages loaded.
func (r *MessageRepository) ListInternal(ctx context.Context, ticketID string, limit, offset int) ([]models.InternalMessage, error) {
	var list []models.InternalMessage
	err := r.db.WithContext(ctx).Preload("Sender").Preload("QuotedExternalMessage").
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").Scopes(paginate(limit, offset)).Find(&list).Error
	return list, err
}

func (r *MessageRepository) LastInternal(ctx context.Context, ticketID string) (*models.InternalMessage, error) {
	var m models.InternalMessage
	err := r.db.WithContext(ctx).Preload("Sender").
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *MessageRepository) CreateDirect(ctx context.Context, m *models.DirectMessage) error {
	if err := r.db.WithContext(ctx).Omit("Sender").Create(m).Error; err != nil {
		return err
	}
	r.publish(ctx, inserted(domain.TableDirectMessages, m.Row()))
	return nil
}

// ListConversation returns the direct messages exchanged by a and b, oldest first.
func (r *MessageRepository) ListConversation(ctx context.Context, a, b string, limit, offset int) ([]models.DirectMessage, error) {
	var list []models.DirectMessage
	err := r.db.WithContext(ctx).Preload("Sender").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").Scopes(paginate(limit, offset)).Find(&list).Error
	return list, err
}
