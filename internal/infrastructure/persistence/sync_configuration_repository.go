package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/persistence/models"
)

// GormSyncConfigurationRepository implements SyncConfigurationRepository using GORM
type GormSyncConfigurationRepository struct {
	db *gorm.DB
}

// NewGormSyncConfigurationRepository creates a new GormSyncConfigurationRepository
func NewGormSyncConfigurationRepository(db *gorm.DB) *GormSyncConfigurationRepository {
	return &GormSyncConfigurationRepository{db: db}
}

var _ sync.SyncConfigurationRepository = (*GormSyncConfigurationRepository)(nil)

// FindByID finds a configuration by its ID
func (r *GormSyncConfigurationRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncConfiguration, error) {
	var model models.SyncConfigurationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrConfigurationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllEnabled returns every enabled configuration with a schedule
func (r *GormSyncConfigurationRepository) FindAllEnabled(ctx context.Context) ([]sync.SyncConfiguration, error) {
	var configurationModels []models.SyncConfigurationModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND schedule <> ''", true).
		Order("name ASC").
		Find(&configurationModels).Error; err != nil {
		return nil, err
	}

	configurations := make([]sync.SyncConfiguration, len(configurationModels))
	for i := range configurationModels {
		configurations[i] = *configurationModels[i].ToDomain()
	}
	return configurations, nil
}

// Save creates or updates a configuration
func (r *GormSyncConfigurationRepository) Save(ctx context.Context, configuration *sync.SyncConfiguration) error {
	var model models.SyncConfigurationModel
	model.FromDomain(configuration)
	return r.db.WithContext(ctx).Save(&model).Error
}
