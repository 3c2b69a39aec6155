package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordersvc "github.com/quickmart-dev/quickmart-backend/internal/orders"
	"github.com/quickmart-dev/quickmart-backend/internal/payments"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/pagination"
)

type stubOrdersService struct {
	reconcileResult *ordersvc.ReconcileResult
	reconcileErr    error
	reconcileCalls  []ordersvc.ReconcileInput
}

func (s *stubOrdersService) PlaceCashOnDelivery(ctx context.Context, input ordersvc.PlaceOrderInput) (*ordersvc.OrderDTO, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrdersService) InitiateOnlinePayment(ctx context.Context, input ordersvc.PlaceOrderInput) (*ordersvc.OnlinePaymentResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrdersService) Reconcile(ctx context.Context, input ordersvc.ReconcileInput) (*ordersvc.ReconcileResult, error) {
	s.reconcileCalls = append(s.reconcileCalls, input)
	if s.reconcileErr != nil {
		return nil, s.reconcileErr
	}
	if s.reconcileResult != nil {
		return s.reconcileResult, nil
	}
	return &ordersvc.ReconcileResult{OrderID: input.OrderID, Status: input.Outcome, Applied: true}, nil
}

func (s *stubOrdersService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ordersvc.Page, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrdersService) ListAll(ctx context.Context, params pagination.Params) (*ordersvc.Page, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrdersService) AdminUpdate(ctx context.Context, orderID uuid.UUID, input ordersvc.AdminUpdateInput) (*ordersvc.OrderDTO, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrdersService) AdminDelete(ctx context.Context, orderID uuid.UUID) error {
	return errors.New("not implemented")
}

// memoryStore is an in-memory stand-in for the Redis idempotency store.
type memoryStore struct {
	mu     sync.Mutex
	keys   map[string]bool
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]bool{}}
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idemp:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key]
}

type envelope struct {
	Success bool            `json:"success"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newGuard(t *testing.T, store *memoryStore) *payments.CallbackGuard {
	t.Helper()
	guard, err := payments.NewCallbackGuard(store, time.Hour, "payment_callback")
	require.NoError(t, err)
	return guard
}

func postForm(t *testing.T, handler http.HandlerFunc, values url.Values) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/order/payment-success", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestPaymentSuccessCallbackApplies(t *testing.T) {
	svc := &stubOrdersService{}
	handler := PaymentSuccess(svc, newGuard(t, newMemoryStore()), testLogger())

	orderID := uuid.New()
	rec, body := postForm(t, handler, url.Values{"tran_id": {orderID.String()}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.False(t, body.Error)
	assert.Equal(t, "Payment status recorded", body.Message)

	require.Len(t, svc.reconcileCalls, 1)
	assert.Equal(t, orderID, svc.reconcileCalls[0].OrderID)
	assert.Equal(t, enums.PaymentStatusPaid, svc.reconcileCalls[0].Outcome)
}

func TestPaymentCallbackRedeliveryShortCircuits(t *testing.T) {
	svc := &stubOrdersService{}
	store := newMemoryStore()
	handler := PaymentFail(svc, newGuard(t, store), testLogger())

	orderID := uuid.New()
	_, first := postForm(t, handler, url.Values{"tran_id": {orderID.String()}})
	assert.Equal(t, "Payment status recorded", first.Message)

	rec, second := postForm(t, handler, url.Values{"tran_id": {orderID.String()}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, second.Success)
	assert.Equal(t, "Callback already processed", second.Message)

	// The redelivery never reached the service.
	assert.Len(t, svc.reconcileCalls, 1)
}

func TestPaymentCallbackDuplicateOutcomeAcknowledged(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{reconcileResult: &ordersvc.ReconcileResult{
		OrderID: orderID,
		Status:  enums.PaymentStatusPaid,
		Applied: false,
	}}
	handler := PaymentSuccess(svc, newGuard(t, newMemoryStore()), testLogger())

	rec, body := postForm(t, handler, url.Values{"tran_id": {orderID.String()}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "Callback already processed", body.Message)
}

func TestPaymentCallbackConflictReleasesGuard(t *testing.T) {
	svc := &stubOrdersService{
		reconcileErr: pkgerrors.New(pkgerrors.CodeStateConflict, "payment already settled with a different outcome"),
	}
	store := newMemoryStore()
	handler := PaymentCancel(svc, newGuard(t, store), testLogger())

	orderID := uuid.New()
	rec, body := postForm(t, handler, url.Values{"tran_id": {orderID.String()}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, body.Success)
	assert.True(t, body.Error)
	assert.Equal(t, "payment already settled with a different outcome", body.Message)

	// The mark was released so the gateway can retry.
	key := store.IdempotencyKey("payment_callback", orderID.String()+":"+string(enums.PaymentStatusCancelled))
	assert.False(t, store.has(key))
}

func TestPaymentCallbackAcceptsJSONOrderIDAlias(t *testing.T) {
	svc := &stubOrdersService{}
	handler := PaymentSuccess(svc, newGuard(t, newMemoryStore()), testLogger())

	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/order/payment-success",
		strings.NewReader(`{"order_id":"`+orderID.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.reconcileCalls, 1)
	assert.Equal(t, orderID, svc.reconcileCalls[0].OrderID)
}

func TestPaymentCallbackMissingOrderID(t *testing.T) {
	svc := &stubOrdersService{}
	handler := PaymentSuccess(svc, newGuard(t, newMemoryStore()), testLogger())

	rec, body := postForm(t, handler, url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, body.Error)
	assert.Equal(t, "tran_id is required", body.Message)
	assert.Empty(t, svc.reconcileCalls)
}

func TestPaymentCallbackProcessedWhenGuardUnavailable(t *testing.T) {
	svc := &stubOrdersService{}
	store := newMemoryStore()
	store.setErr = errors.New("redis down")
	handler := PaymentSuccess(svc, newGuard(t, store), testLogger())

	orderID := uuid.New()
	rec, body := postForm(t, handler, url.Values{"tran_id": {orderID.String()}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	require.Len(t, svc.reconcileCalls, 1)
}
