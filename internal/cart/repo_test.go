package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quickmart-dev/quickmart-backend/pkg/db"
	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(&models.Product{}, &models.CartItem{}))
	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       "green tea",
		PriceCents: 450,
		Published:  true,
	}
	require.NoError(t, gdb.Create(product).Error)
	return product
}

func TestCreateEnforcesUserProductUniqueness(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, gdb)

	_, err := repo.Create(ctx, &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  1,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  2,
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, cartUniqueIndex))

	// Same product in another user's cart is fine.
	_, err = repo.Create(ctx, &models.CartItem{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ProductID: product.ID,
		Quantity:  1,
	})
	require.NoError(t, err)
}

func TestListByUserPreloadsProducts(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, gdb)
	_, err := repo.Create(ctx, &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  2,
	})
	require.NoError(t, err)

	items, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "green tea", items[0].Product.Name)
}

func TestClearForUserRemovesOnlyOwnLines(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	userID := uuid.New()
	otherID := uuid.New()
	first := seedProduct(t, gdb)
	second := seedProduct(t, gdb)

	for _, seed := range []struct {
		user    uuid.UUID
		product uuid.UUID
	}{
		{userID, first.ID},
		{userID, second.ID},
		{otherID, first.ID},
	} {
		_, err := repo.Create(ctx, &models.CartItem{
			ID:        uuid.New(),
			UserID:    seed.user,
			ProductID: seed.product,
			Quantity:  1,
		})
		require.NoError(t, err)
	}

	require.NoError(t, repo.ClearForUser(ctx, userID))

	mine, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := repo.ListByUser(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
