package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/persistence/models"
)

// defaultExecutionListLimit caps List queries when the filter leaves Limit unset.
const defaultExecutionListLimit = 50

// GormExecutionRepository implements ExecutionRepository using GORM
type GormExecutionRepository struct {
	db *gorm.DB
}

// NewGormExecutionRepository creates a new GormExecutionRepository
func NewGormExecutionRepository(db *gorm.DB) *GormExecutionRepository {
	return &GormExecutionRepository{db: db}
}

var _ sync.ExecutionRepository = (*GormExecutionRepository)(nil)

// Create persists a new execution
func (r *GormExecutionRepository) Create(ctx context.Context, execution *sync.Execution) error {
	var model models.ExecutionModel
	model.FromDomain(execution)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update persists a state transition
func (r *GormExecutionRepository) Update(ctx context.Context, execution *sync.Execution) error {
	var model models.ExecutionModel
	model.FromDomain(execution)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds an execution by its ID
func (r *GormExecutionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Execution, error) {
	var model models.ExecutionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrExecutionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRunning returns executions currently in RUNNING or PENDING state
func (r *GormExecutionRepository) FindRunning(ctx context.Context) ([]sync.Execution, error) {
	var executionModels []models.ExecutionModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []sync.ExecutionStatus{sync.ExecutionStatusPending, sync.ExecutionStatusRunning}).
		Order("created_at DESC").
		Find(&executionModels).Error; err != nil {
		return nil, err
	}
	return toDomainExecutions(executionModels), nil
}

// FindRunningByConfiguration returns the in-flight execution for a
// configuration, or nil when none is active
func (r *GormExecutionRepository) FindRunningByConfiguration(ctx context.Context, configurationID uuid.UUID) (*sync.Execution, error) {
	var model models.ExecutionModel
	err := r.db.WithContext(ctx).
		Where("configuration_id = ? AND status IN ?", configurationID,
			[]sync.ExecutionStatus{sync.ExecutionStatusPending, sync.ExecutionStatusRunning}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns executions matching the filter, newest first
func (r *GormExecutionRepository) List(ctx context.Context, filter sync.ExecutionFilter) ([]sync.Execution, error) {
	query := r.db.WithContext(ctx).Model(&models.ExecutionModel{})
	if filter.ConfigurationID != nil {
		query = query.Where("configuration_id = ?", *filter.ConfigurationID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultExecutionListLimit
	}

	var executionModels []models.ExecutionModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&executionModels).Error; err != nil {
		return nil, err
	}
	return toDomainExecutions(executionModels), nil
}

func toDomainExecutions(executionModels []models.ExecutionModel) []sync.Execution {
	executions := make([]sync.Execution, len(executionModels))
	for i := range executionModels {
		executions[i] = *executionModels[i].ToDomain()
	}
	return executions
}
