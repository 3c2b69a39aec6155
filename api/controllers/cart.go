package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quickmart-dev/quickmart-backend/api/responses"
	"github.com/quickmart-dev/quickmart-backend/api/validators"
	cartsvc "github.com/quickmart-dev/quickmart-backend/internal/cart"
	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
)

type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// CartAdd puts one product into the caller's cart.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addToCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Add(r.Context(), userID, cartsvc.AddInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "Item added to cart", newCartItemResponse(item))
	}
}

// CartList returns the caller's cart lines with product details.
func CartList(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]cartItemResponse, 0, len(items))
		for i := range items {
			out = append(out, newCartItemResponse(&items[i]))
		}
		responses.WriteSuccess(w, "Cart fetched", out)
	}
}

// CartUpdateQuantity changes the quantity on one cart line.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateQuantity(r.Context(), userID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "Cart updated", newCartItemResponse(item))
	}
}

// CartRemove deletes one cart line.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "Item removed from cart", nil)
	}
}

type cartItemResponse struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	Product   *cartProductResponse `json:"product,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type cartProductResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Images        []string  `json:"images,omitempty"`
	PriceCents    int       `json:"price_cents"`
	DiscountCents int       `json:"discount_cents"`
	Unit          *string   `json:"unit,omitempty"`
	Stock         int       `json:"stock"`
}

func newCartItemResponse(item *models.CartItem) cartItemResponse {
	resp := cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Product != nil {
		resp.Product = &cartProductResponse{
			ID:            item.Product.ID,
			Name:          item.Product.Name,
			Images:        item.Product.Images,
			PriceCents:    item.Product.PriceCents,
			DiscountCents: item.Product.DiscountCents,
			Unit:          item.Product.Unit,
			Stock:         item.Product.Stock,
		}
	}
	return resp
}
