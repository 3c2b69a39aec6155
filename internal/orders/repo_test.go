package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
	"github.com/quickmart-dev/quickmart-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, status enums.PaymentStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            userID,
		PaymentMethod:     enums.PaymentMethodOnline,
		PaymentStatus:     status,
		SubtotalCents:     1000,
		TotalCents:        1000,
		DeliveryAddressID: uuid.New(),
		CreatedAt:         createdAt,
		Items: []models.OrderItem{{
			ID:             uuid.New(),
			ProductID:      uuid.New(),
			Name:           "sample",
			Quantity:       1,
			UnitPriceCents: 1000,
			SubtotalCents:  1000,
		}},
	}
	_, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return order
}

func TestMarkPaymentStatusIfPendingOnlyWinsOnce(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentStatusPending, time.Now())

	applied, err := repo.MarkPaymentStatusIfPending(ctx, order.ID, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, applied)

	// A competing callback with a different outcome matches zero rows.
	applied, err = repo.MarkPaymentStatusIfPending(ctx, order.ID, enums.PaymentStatusFailed)
	require.NoError(t, err)
	assert.False(t, applied)

	// So does a redelivery of the winning outcome.
	applied, err = repo.MarkPaymentStatusIfPending(ctx, order.ID, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
}

func TestMarkPaymentStatusIfPendingUnknownOrder(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	applied, err := repo.MarkPaymentStatusIfPending(context.Background(), uuid.New(), enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestFindByIDPreloadsItems(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	order := seedOrder(t, repo, uuid.New(), enums.PaymentStatusPending, time.Now())

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "sample", stored.Items[0].Name)
	assert.Equal(t, order.ID, stored.Items[0].OrderID)
}

func TestListByUserPagesNewestFirst(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	oldest := seedOrder(t, repo, userID, enums.PaymentStatusPending, base)
	middle := seedOrder(t, repo, userID, enums.PaymentStatusPending, base.Add(time.Minute))
	newest := seedOrder(t, repo, userID, enums.PaymentStatusPending, base.Add(2*time.Minute))
	seedOrder(t, repo, uuid.New(), enums.PaymentStatusPending, base.Add(3*time.Minute))

	page, err := repo.ListByUser(ctx, userID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)

	cursor := &pagination.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID}
	rest, err := repo.ListByUser(ctx, userID, 2, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)
}

func TestUpdateAndDeleteOrder(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentStatusPending, time.Now())

	newAddr := uuid.New()
	err := repo.Update(ctx, order.ID, map[string]any{
		"payment_status":      enums.PaymentStatusCancelled,
		"delivery_address_id": newAddr,
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCancelled, stored.PaymentStatus)
	assert.Equal(t, newAddr, stored.DeliveryAddressID)

	require.NoError(t, repo.Delete(ctx, order.ID))
	_, err = repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetGatewaySession(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentStatusPending, time.Now())

	require.NoError(t, repo.SetGatewaySession(ctx, order.ID, "sess_abc"))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewaySessionID)
	assert.Equal(t, "sess_abc", *stored.GatewaySessionID)
}
