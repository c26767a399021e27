package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/promosync/backend/internal/domain/sync"
)

func setupExecutionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&executionMigrationModel{}))
	return db
}

// executionMigrationModel mirrors models.ExecutionModel with SQLite-friendly
// column types.
type executionMigrationModel struct {
	ID               uuid.UUID  `gorm:"primaryKey"`
	ConfigurationID  *uuid.UUID `gorm:"index"`
	Trigger          string
	Status           string `gorm:"index"`
	StartedAt        *time.Time
	FinishedAt       *time.Time
	StoreResultsJSON string `gorm:"column:store_results"`
	TotalStores      int
	ProductsFetched  int
	ProductsSent     int
	ErrorCount       int
	Error            string
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

func (executionMigrationModel) TableName() string {
	return "sync_executions"
}

func finalizedExecution(configurationID *uuid.UUID) *sync.Execution {
	execution := sync.NewExecution(configurationID, sync.TriggerManual)
	_ = execution.Start()
	_ = execution.Finalize([]sync.StoreSyncResult{
		{StoreID: uuid.New(), StoreReg: "001", Status: sync.StoreStepStatusSuccess, Fetched: 10, Sent: 10},
		{StoreID: uuid.New(), StoreReg: "002", Status: sync.StoreStepStatusFailed, Fetched: 5, Error: "upload rejected"},
	})
	return execution
}

func TestGormExecutionRepository_CreateAndFindByID(t *testing.T) {
	repo := NewGormExecutionRepository(setupExecutionTestDB(t))
	ctx := context.Background()

	t.Run("round trips an execution with store results", func(t *testing.T) {
		configID := uuid.New()
		execution := finalizedExecution(&configID)
		require.NoError(t, repo.Create(ctx, execution))

		found, err := repo.FindByID(ctx, execution.ID)
		require.NoError(t, err)

		assert.Equal(t, execution.ID, found.ID)
		require.NotNil(t, found.ConfigurationID)
		assert.Equal(t, configID, *found.ConfigurationID)
		assert.Equal(t, sync.TriggerManual, found.Trigger)
		assert.Equal(t, sync.ExecutionStatusPartial, found.Status)
		require.Len(t, found.StoreResults, 2)
		assert.Equal(t, "001", found.StoreResults[0].StoreReg)
		assert.Equal(t, "upload rejected", found.StoreResults[1].Error)
		assert.Equal(t, 2, found.Summary.TotalStores)
		assert.Equal(t, 15, found.Summary.ProductsFetched)
		assert.Equal(t, 10, found.Summary.ProductsSent)
		assert.Equal(t, 1, found.Summary.Errors)
	})

	t.Run("unknown id maps to the domain sentinel", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, sync.ErrExecutionNotFound)
	})
}

func TestGormExecutionRepository_Update(t *testing.T) {
	repo := NewGormExecutionRepository(setupExecutionTestDB(t))
	ctx := context.Background()

	execution := sync.NewExecution(nil, sync.TriggerScheduled)
	require.NoError(t, repo.Create(ctx, execution))

	require.NoError(t, execution.Start())
	require.NoError(t, repo.Update(ctx, execution))

	found, err := repo.FindByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.ExecutionStatusRunning, found.Status)
	assert.NotNil(t, found.StartedAt)
	assert.Nil(t, found.ConfigurationID)
}

func TestGormExecutionRepository_FindRunning(t *testing.T) {
	repo := NewGormExecutionRepository(setupExecutionTestDB(t))
	ctx := context.Background()

	pending := sync.NewExecution(nil, sync.TriggerManual)
	require.NoError(t, repo.Create(ctx, pending))

	running := sync.NewExecution(nil, sync.TriggerManual)
	require.NoError(t, running.Start())
	require.NoError(t, repo.Create(ctx, running))

	finished := finalizedExecution(nil)
	require.NoError(t, repo.Create(ctx, finished))

	found, err := repo.FindRunning(ctx)
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, execution := range found {
		assert.False(t, execution.Status.IsTerminal())
	}
}

func TestGormExecutionRepository_FindRunningByConfiguration(t *testing.T) {
	repo := NewGormExecutionRepository(setupExecutionTestDB(t))
	ctx := context.Background()
	configID := uuid.New()

	t.Run("nil when nothing is in flight", func(t *testing.T) {
		found, err := repo.FindRunningByConfiguration(ctx, configID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("finds the in flight execution for the configuration", func(t *testing.T) {
		otherConfig := uuid.New()
		otherRunning := sync.NewExecution(&otherConfig, sync.TriggerManual)
		require.NoError(t, otherRunning.Start())
		require.NoError(t, repo.Create(ctx, otherRunning))

		running := sync.NewExecution(&configID, sync.TriggerScheduled)
		require.NoError(t, running.Start())
		require.NoError(t, repo.Create(ctx, running))

		found, err := repo.FindRunningByConfiguration(ctx, configID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, running.ID, found.ID)
	})

	t.Run("terminal executions do not count as in flight", func(t *testing.T) {
		finishedConfig := uuid.New()
		finished := finalizedExecution(&finishedConfig)
		require.NoError(t, repo.Create(ctx, finished))

		found, err := repo.FindRunningByConfiguration(ctx, finishedConfig)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormExecutionRepository_List(t *testing.T) {
	repo := NewGormExecutionRepository(setupExecutionTestDB(t))
	ctx := context.Background()

	configA := uuid.New()
	configB := uuid.New()
	base := time.Now().Add(-time.Hour)

	seed := func(configID *uuid.UUID, offset time.Duration, finalize bool) *sync.Execution {
		execution := sync.NewExecution(configID, sync.TriggerScheduled)
		execution.CreatedAt = base.Add(offset)
		if finalize {
			require.NoError(t, execution.Start())
			require.NoError(t, execution.Finalize(nil))
		}
		require.NoError(t, repo.Create(ctx, execution))
		return execution
	}

	oldest := seed(&configA, 0, true)
	middle := seed(&configB, time.Minute, true)
	newest := seed(&configA, 2*time.Minute, false)

	t.Run("newest first", func(t *testing.T) {
		found, err := repo.List(ctx, sync.ExecutionFilter{})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, newest.ID, found[0].ID)
		assert.Equal(t, middle.ID, found[1].ID)
		assert.Equal(t, oldest.ID, found[2].ID)
	})

	t.Run("filter by configuration", func(t *testing.T) {
		found, err := repo.List(ctx, sync.ExecutionFilter{ConfigurationID: &configA})
		require.NoError(t, err)
		require.Len(t, found, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		status := sync.ExecutionStatusSuccess
		found, err := repo.List(ctx, sync.ExecutionFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, found, 2)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		found, err := repo.List(ctx, sync.ExecutionFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, newest.ID, found[0].ID)
	})
}
