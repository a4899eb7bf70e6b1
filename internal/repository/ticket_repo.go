package repository

import (
	"context"
	"fmt"
	"log/slog"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
	"traffichub/internal/models"

	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
	publisher
}

func NewTicketRepository(db *gorm.DB, feed changefeed.Publisher, log *slog.Logger) *TicketRepository {
	return &TicketRepository{db: db, publisher: publisher{feed: feed, log: log}}
}

func (r *TicketRepository) Create(ctx context.Context, t *models.Ticket) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return err
	}
	r.publish(ctx, inserted(domain.TableTickets, t.Row()))
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Update saves t. old is the row as read before the change, so subscribers can
// invalidate the view the ticket moved out of.
func (r *TicketRepository) Update(ctx context.Context, old, t *models.Ticket) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return err
	}
	r.publish(ctx, updated(domain.TableTickets, old.Row(), t.Row()))
	return nil
}

func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(t).Error; err != nil {
		return err
	}
	r.publish(ctx, deleted(domain.TableTickets, t.Row()))
	return nil
}

// withLiveClient drops tickets whose client was deleted.
func withLiveClient(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf(clientAlive, "tickets.client_id"))
}

// List returns non-archived tickets, newest first, optionally for one client.
func (r *TicketRepository) List(ctx context.Context, clientID string) ([]models.Ticket, error) {
	q := r.db.WithContext(ctx).Scopes(withLiveClient).Where("is_archived = ?", false)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	var list []models.Ticket
	err := q.Order("created_at DESC").Find(&list).Error
	return list, err
}

// CountNew counts non-archived tickets still in the New status.
func (r *TicketRepository) CountNew(ctx context.Context, clientID string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Ticket{}).Scopes(withLiveClient).
		Where("status = ? AND is_archived = ?", domain.TicketNew, false)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
