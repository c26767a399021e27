package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

var _ sync.IntegrationRepository = (*GormIntegrationRepository)(nil)

// FindByID finds an integration by its identifier
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, integration *sync.Integration) error {
	var model models.IntegrationModel
	model.FromDomain(integration)
	return r.db.WithContext(ctx).Save(&model).Error
}
