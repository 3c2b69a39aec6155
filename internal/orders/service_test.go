package orders

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickmart-dev/quickmart-backend/internal/cart"
	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/gateway"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/pagination"
)

type stubOrderRepo struct {
	created     *models.Order
	createErr   error
	byID        map[uuid.UUID]*models.Order
	findErr     error
	markApplied bool
	markErr     error
	markedWith  enums.PaymentStatus
	sessionID   string
	sessionErr  error
	updates     map[string]any
	updateErr   error
	deleted     []uuid.UUID
	listed      []models.Order
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	order, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	return s.listed, nil
}

func (s *stubOrderRepo) ListAll(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	return s.listed, nil
}

func (s *stubOrderRepo) MarkPaymentStatusIfPending(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	s.markedWith = status
	return s.markApplied, nil
}

func (s *stubOrderRepo) SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error {
	if s.sessionErr != nil {
		return s.sessionErr
	}
	s.sessionID = sessionID
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = updates
	return nil
}

func (s *stubOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubCartRepo struct {
	items   []models.CartItem
	listErr error
	cleared []uuid.UUID
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	return item, nil
}

func (s *stubCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items, nil
}

func (s *stubCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCartRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubCartRepo) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAddressChecker struct {
	address *models.Address
	err     error
}

func (s *stubAddressChecker) GetForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.address, nil
}

type stubGateway struct {
	session *gateway.Session
	err     error
	lastReq gateway.SessionRequest
}

func (s *stubGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func cartLine(productName string, priceCents, discountCents, quantity int) models.CartItem {
	productID := uuid.New()
	return models.CartItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  quantity,
		Product: &models.Product{
			ID:            productID,
			Name:          productName,
			Images:        []string{"https://cdn.example.com/" + productName + ".jpg"},
			PriceCents:    priceCents,
			DiscountCents: discountCents,
			Published:     true,
		},
	}
}

func newTestService(t *testing.T, repo *stubOrderRepo, carts *stubCartRepo, addresses *stubAddressChecker, gw *stubGateway) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, carts, addresses, gw, testLogger())
	require.NoError(t, err)
	return svc
}

func TestPlaceCashOnDeliverySnapshotsCartAndClearsIt(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	repo := &stubOrderRepo{}
	carts := &stubCartRepo{items: []models.CartItem{
		cartLine("rice", 1200, 200, 2),
		cartLine("lentils", 500, 0, 3),
	}}
	for i := range carts.items {
		carts.items[i].UserID = userID
	}
	addresses := &stubAddressChecker{address: &models.Address{ID: addressID, UserID: userID}}
	svc := newTestService(t, repo, carts, addresses, &stubGateway{})

	order, err := svc.PlaceCashOnDelivery(context.Background(), PlaceOrderInput{
		UserID:            userID,
		DeliveryAddressID: addressID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentMethodCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	// (1200-200)*2 + 500*3
	assert.Equal(t, 3500, order.SubtotalCents)
	assert.Equal(t, 3500, order.TotalCents)
	assert.Equal(t, addressID, order.DeliveryAddressID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "rice", order.Items[0].Name)
	assert.Equal(t, 1000, order.Items[0].UnitPriceCents)
	assert.Equal(t, 2000, order.Items[0].SubtotalCents)
	require.NotNil(t, order.Items[0].ImageURL)

	require.NotNil(t, repo.created)
	assert.Equal(t, []uuid.UUID{userID}, carts.cleared)
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	addresses := &stubAddressChecker{address: &models.Address{ID: addressID, UserID: userID}}
	svc := newTestService(t, &stubOrderRepo{}, &stubCartRepo{}, addresses, &stubGateway{})

	_, err := svc.PlaceCashOnDelivery(context.Background(), PlaceOrderInput{
		UserID:            userID,
		DeliveryAddressID: addressID,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "cart is empty", typed.Message())
}

func TestPlaceOrderRejectsUnownedAddress(t *testing.T) {
	addresses := &stubAddressChecker{err: pkgerrors.New(pkgerrors.CodeNotFound, "address not found")}
	svc := newTestService(t, &stubOrderRepo{}, &stubCartRepo{}, addresses, &stubGateway{})

	_, err := svc.PlaceCashOnDelivery(context.Background(), PlaceOrderInput{
		UserID:            uuid.New(),
		DeliveryAddressID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestPlaceOrderRejectsCartWithMissingProduct(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	repo := &stubOrderRepo{}
	line := cartLine("ghost", 100, 0, 1)
	line.Product = nil
	carts := &stubCartRepo{items: []models.CartItem{line}}
	addresses := &stubAddressChecker{address: &models.Address{ID: addressID, UserID: userID}}
	svc := newTestService(t, repo, carts, addresses, &stubGateway{})

	_, err := svc.PlaceCashOnDelivery(context.Background(), PlaceOrderInput{
		UserID:            userID,
		DeliveryAddressID: addressID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Nil(t, repo.created)
	assert.Empty(t, carts.cleared)
}

func TestInitiateOnlinePaymentReturnsRedirect(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	repo := &stubOrderRepo{}
	carts := &stubCartRepo{items: []models.CartItem{cartLine("tea", 750, 0, 4)}}
	addresses := &stubAddressChecker{address: &models.Address{ID: addressID, UserID: userID}}
	gw := &stubGateway{session: &gateway.Session{
		ID:          "sess_123",
		RedirectURL: "https://gateway.example.com/pay/sess_123",
	}}
	svc := newTestService(t, repo, carts, addresses, gw)

	result, err := svc.InitiateOnlinePayment(context.Background(), PlaceOrderInput{
		UserID:            userID,
		DeliveryAddressID: addressID,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com/pay/sess_123", result.RedirectURL)
	assert.Equal(t, enums.PaymentMethodOnline, result.Order.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPending, result.Order.PaymentStatus)
	assert.Equal(t, 3000, gw.lastReq.AmountCents)
	assert.Equal(t, result.Order.ID, gw.lastReq.OrderID)
	assert.Equal(t, "sess_123", repo.sessionID)
	require.NotNil(t, result.Order.GatewaySessionID)
	assert.Equal(t, "sess_123", *result.Order.GatewaySessionID)
}

func TestInitiateOnlinePaymentLeavesOrderPendingOnGatewayFailure(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	repo := &stubOrderRepo{}
	carts := &stubCartRepo{items: []models.CartItem{cartLine("tea", 750, 0, 1)}}
	addresses := &stubAddressChecker{address: &models.Address{ID: addressID, UserID: userID}}
	gw := &stubGateway{err: pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected session")}
	svc := newTestService(t, repo, carts, addresses, gw)

	_, err := svc.InitiateOnlinePayment(context.Background(), PlaceOrderInput{
		UserID:            userID,
		DeliveryAddressID: addressID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())

	// Order persisted and untouched afterwards; fail/cancel callbacks or an
	// admin override settle it later.
	require.NotNil(t, repo.created)
	assert.Equal(t, enums.PaymentStatusPending, repo.created.PaymentStatus)
	assert.Empty(t, repo.sessionID)
	assert.Equal(t, enums.PaymentStatus(""), repo.markedWith)
}

func TestReconcileAppliesFirstTerminalOutcome(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{markApplied: true}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	result, err := svc.Reconcile(context.Background(), ReconcileInput{
		OrderID: orderID,
		Outcome: enums.PaymentStatusPaid,
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, enums.PaymentStatusPaid, result.Status)
	assert.Equal(t, orderID, result.OrderID)
	assert.Equal(t, enums.PaymentStatusPaid, repo.markedWith)
}

func TestReconcileDuplicateOutcomeIsNoOpSuccess(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{byID: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, PaymentStatus: enums.PaymentStatusPaid},
	}}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	result, err := svc.Reconcile(context.Background(), ReconcileInput{
		OrderID: orderID,
		Outcome: enums.PaymentStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, enums.PaymentStatusPaid, result.Status)
}

func TestReconcileConflictingOutcomeRejectedWithoutWrite(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{byID: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, PaymentStatus: enums.PaymentStatusPaid},
	}}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		OrderID: orderID,
		Outcome: enums.PaymentStatusFailed,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	// The recorded outcome survives.
	assert.Equal(t, enums.PaymentStatusPaid, repo.byID[orderID].PaymentStatus)
}

func TestReconcileUnknownOrderIsNotFound(t *testing.T) {
	svc := newTestService(t, &stubOrderRepo{}, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		OrderID: uuid.New(),
		Outcome: enums.PaymentStatusCancelled,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReconcileRejectsNonTerminalOutcome(t *testing.T) {
	svc := newTestService(t, &stubOrderRepo{}, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		OrderID: uuid.New(),
		Outcome: enums.PaymentStatusPending,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReconcileWrapsRepositoryFailure(t *testing.T) {
	repo := &stubOrderRepo{markErr: errors.New("connection reset")}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		OrderID: uuid.New(),
		Outcome: enums.PaymentStatusPaid,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestGetForUserHidesForeignOrders(t *testing.T) {
	orderID := uuid.New()
	owner := uuid.New()
	repo := &stubOrderRepo{byID: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, UserID: owner},
	}}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	_, err := svc.GetForUser(context.Background(), uuid.New(), orderID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	got, err := svc.GetForUser(context.Background(), owner, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, got.ID)
}

func TestAdminUpdateOverridesPaymentStatus(t *testing.T) {
	orderID := uuid.New()
	owner := uuid.New()
	repo := &stubOrderRepo{byID: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, UserID: owner, PaymentStatus: enums.PaymentStatusPending},
	}}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	status := enums.PaymentStatusCancelled
	updated, err := svc.AdminUpdate(context.Background(), orderID, AdminUpdateInput{PaymentStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCancelled, updated.PaymentStatus)
	assert.Equal(t, enums.PaymentStatusCancelled, repo.updates["payment_status"])
}

func TestAdminUpdateValidatesDeliveryAddressOwnership(t *testing.T) {
	orderID := uuid.New()
	owner := uuid.New()
	repo := &stubOrderRepo{byID: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, UserID: owner},
	}}
	addresses := &stubAddressChecker{err: pkgerrors.New(pkgerrors.CodeNotFound, "address not found")}
	svc := newTestService(t, repo, &stubCartRepo{}, addresses, &stubGateway{})

	newAddr := uuid.New()
	_, err := svc.AdminUpdate(context.Background(), orderID, AdminUpdateInput{DeliveryAddressID: &newAddr})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Nil(t, repo.updates)
}

func TestAdminUpdateNoChangesSkipsWrite(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrderRepo{byID: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, PaymentStatus: enums.PaymentStatusPaid},
	}}
	svc := newTestService(t, repo, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	status := enums.PaymentStatusPaid
	updated, err := svc.AdminUpdate(context.Background(), orderID, AdminUpdateInput{PaymentStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	assert.Nil(t, repo.updates)
}

func TestAdminDeleteUnknownOrder(t *testing.T) {
	svc := newTestService(t, &stubOrderRepo{}, &stubCartRepo{}, &stubAddressChecker{}, &stubGateway{})

	err := svc.AdminDelete(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
