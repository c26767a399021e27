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

// storeMigrationModel mirrors models.StoreModel with SQLite-friendly column
// types.
type storeMigrationModel struct {
	ID           uuid.UUID `gorm:"primaryKey"`
	Registration string    `gorm:"uniqueIndex"`
	Name         string
	Active       bool `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (storeMigrationModel) TableName() string {
	return "stores"
}

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&storeMigrationModel{}))
	return db
}

func seedStore(registration string, active bool) *sync.Store {
	return &sync.Store{
		ID:           uuid.New(),
		Registration: registration,
		Name:         "Store " + registration,
		Active:       active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestGormStoreRepository_FindByID(t *testing.T) {
	repo := NewGormStoreRepository(setupStoreTestDB(t))
	ctx := context.Background()

	store := seedStore("001", true)
	require.NoError(t, repo.Save(ctx, store))

	t.Run("found", func(t *testing.T) {
		found, err := repo.FindByID(ctx, store.ID)
		require.NoError(t, err)
		assert.Equal(t, "001", found.Registration)
		assert.True(t, found.Active)
	})

	t.Run("unknown id maps to the domain sentinel", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, sync.ErrStoreNotFound)
	})
}

func TestGormStoreRepository_FindByIDs(t *testing.T) {
	repo := NewGormStoreRepository(setupStoreTestDB(t))
	ctx := context.Background()

	second := seedStore("002", true)
	first := seedStore("001", false)
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, first))

	t.Run("empty input returns nothing without querying", func(t *testing.T) {
		found, err := repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("returns matches ordered by registration", func(t *testing.T) {
		found, err := repo.FindByIDs(ctx, []uuid.UUID{second.ID, first.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, found, 2, "unknown ids are silently dropped")
		assert.Equal(t, "001", found[0].Registration)
		assert.Equal(t, "002", found[1].Registration)
	})
}

func TestGormStoreRepository_FindAllActive(t *testing.T) {
	repo := NewGormStoreRepository(setupStoreTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, seedStore("003", true)))
	require.NoError(t, repo.Save(ctx, seedStore("001", true)))
	require.NoError(t, repo.Save(ctx, seedStore("002", false)))

	found, err := repo.FindAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "001", found[0].Registration)
	assert.Equal(t, "003", found[1].Registration)
}
