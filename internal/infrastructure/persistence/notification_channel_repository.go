package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/persistence/models"
)

// GormNotificationChannelRepository implements NotificationChannelRepository using GORM
type GormNotificationChannelRepository struct {
	db *gorm.DB
}

// NewGormNotificationChannelRepository creates a new GormNotificationChannelRepository
func NewGormNotificationChannelRepository(db *gorm.DB) *GormNotificationChannelRepository {
	return &GormNotificationChannelRepository{db: db}
}

var _ sync.NotificationChannelRepository = (*GormNotificationChannelRepository)(nil)

// FindByID finds a channel by its identifier
func (r *GormNotificationChannelRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.NotificationChannel, error) {
	var model models.NotificationChannelModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrChannelNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a channel
func (r *GormNotificationChannelRepository) Save(ctx context.Context, channel *sync.NotificationChannel) error {
	var model models.NotificationChannelModel
	model.FromDomain(channel)
	return r.db.WithContext(ctx).Save(&model).Error
}
