package repository

import (
	"context"
	"log/slog"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
	"traffichub/internal/models"

	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
	publisher
}

func NewClientRepository(db *gorm.DB, feed changefeed.Publisher, log *slog.Logger) *ClientRepository {
	return &ClientRepository{db: db, publisher: publisher{feed: feed, log: log}}
}

func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return err
	}
	r.publish(ctx, inserted(domain.TableClients, domain.Row{ID: c.ID}))
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ClientRepository) GetByWhatsAppGroup(ctx context.Context, groupID string) (*models.Client, error) {
	var c models.Client
	if err := r.db.WithContext(ctx).Where("whatsapp_group_id = ?", groupID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	var list []models.Client
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

// Delete soft-deletes the client. Its messages, tickets and notifications
// become orphaned and stop counting as unread. The WhatsApp group is released
// so another client can be linked to it.
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Client{}).Where("id = ?", id).Update("whatsapp_group_id", nil).Error
		if err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Client{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.publish(ctx, deleted(domain.TableClients, domain.Row{ID: id}))
	return nil
}
