package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmart-dev/quickmart-backend/api/middleware"
	cartsvc "github.com/quickmart-dev/quickmart-backend/internal/cart"
	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
)

type stubCartService struct {
	addResult *models.CartItem
	addErr    error
	addCalls  []cartsvc.AddInput
	items     []models.CartItem
}

func (s *stubCartService) Add(ctx context.Context, userID uuid.UUID, input cartsvc.AddInput) (*models.CartItem, error) {
	s.addCalls = append(s.addCalls, input)
	if s.addErr != nil {
		return nil, s.addErr
	}
	return s.addResult, nil
}

func (s *stubCartService) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.items, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCartService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return errors.New("not implemented")
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	return req.WithContext(ctx)
}

func TestCartAddCreatesItem(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{addResult: &models.CartItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  2,
		Product:   &models.Product{ID: productID, Name: "olive oil", PriceCents: 1500},
	}}
	handler := CartAdd(svc, testLogger())

	req := authedRequest(http.MethodPost, "/api/cart/add-to-cart",
		`{"product_id":"`+productID.String()+`","quantity":2}`)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Item added to cart", body.Message)

	require.Len(t, svc.addCalls, 1)
	assert.Equal(t, productID, svc.addCalls[0].ProductID)
	assert.Equal(t, 2, svc.addCalls[0].Quantity)
}

func TestCartAddDuplicateReturnsConflictEnvelope(t *testing.T) {
	svc := &stubCartService{addErr: pkgerrors.New(pkgerrors.CodeConflict, "This item is already added to cart")}
	handler := CartAdd(svc, testLogger())

	req := authedRequest(http.MethodPost, "/api/cart/add-to-cart",
		`{"product_id":"`+uuid.NewString()+`"}`)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.True(t, body.Error)
	assert.Equal(t, "This item is already added to cart", body.Message)
}

func TestCartAddWithoutIdentityIsUnauthorized(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAdd(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cart/add-to-cart",
		strings.NewReader(`{"product_id":"`+uuid.NewString()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.addCalls)
}

func TestCartAddRejectsUnknownFields(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAdd(svc, testLogger())

	req := authedRequest(http.MethodPost, "/api/cart/add-to-cart",
		`{"product_id":"`+uuid.NewString()+`","bogus":true}`)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.addCalls)
}

func TestCartListReturnsItems(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{items: []models.CartItem{{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  1,
		Product:   &models.Product{ID: productID, Name: "green tea", PriceCents: 450},
	}}}
	handler := CartList(svc, testLogger())

	req := authedRequest(http.MethodGet, "/api/cart/get-cart-items", "")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Cart fetched", body.Message)

	var items []cartItemResponse
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "green tea", items[0].Product.Name)
}
