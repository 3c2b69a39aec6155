package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
	"github.com/quickmart-dev/quickmart-backend/pkg/gateway"
	"github.com/quickmart-dev/quickmart-backend/pkg/pagination"
)

// Repository exposes persistence for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListAll(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	// MarkPaymentStatusIfPending conditionally moves a pending order to the
	// provided terminal status and reports whether a row changed.
	MarkPaymentStatusIfPending(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (bool, error)
	SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type addressChecker interface {
	GetForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

type sessionCreator interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
}
