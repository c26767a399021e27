package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/persistence/models"
)

// GormStoreRepository implements StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

var _ sync.StoreRepository = (*GormStoreRepository)(nil)

// FindByID finds a store by its ID
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the stores with the given IDs
func (r *GormStoreRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]sync.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var storeModels []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("registration ASC").
		Find(&storeModels).Error; err != nil {
		return nil, err
	}

	stores := make([]sync.Store, len(storeModels))
	for i := range storeModels {
		stores[i] = *storeModels[i].ToDomain()
	}
	return stores, nil
}

// FindAllActive returns every store marked active
func (r *GormStoreRepository) FindAllActive(ctx context.Context) ([]sync.Store, error) {
	var storeModels []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("registration ASC").
		Find(&storeModels).Error; err != nil {
		return nil, err
	}

	stores := make([]sync.Store, len(storeModels))
	for i := range storeModels {
		stores[i] = *storeModels[i].ToDomain()
	}
	return stores, nil
}

// Save creates or updates a store
func (r *GormStoreRepository) Save(ctx context.Context, store *sync.Store) error {
	var model models.StoreModel
	model.FromDomain(store)
	return r.db.WithContext(ctx).Save(&model).Error
}
