package repository

import (
	"context"
	"log/slog"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
	"traffichub/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
	publisher
}

func NewNotificationRepository(db *gorm.DB, feed changefeed.Publisher, log *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, publisher: publisher{feed: feed, log: log}}
}

func (r *NotificationRepository) Create(ctx context.Context, list ...*models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
		return err
	}
	events := make([]changefeed.Event, len(list))
	for i, n := range list {
		events[i] = inserted(domain.TableNotifications, n.Row())
	}
	r.publish(ctx, events...)
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Scopes(paginate(limit, offset)).Find(&list).Error
	return list, err
}
