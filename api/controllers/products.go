package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickmart-dev/quickmart-backend/api/responses"
	"github.com/quickmart-dev/quickmart-backend/api/validators"
	productsvc "github.com/quickmart-dev/quickmart-backend/internal/products"
	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/pagination"
)

type createProductRequest struct {
	Name          string     `json:"name" validate:"required"`
	Description   *string    `json:"description"`
	Images        []string   `json:"images"`
	CategoryID    *uuid.UUID `json:"category_id"`
	SubCategoryID *uuid.UUID `json:"sub_category_id"`
	Unit          *string    `json:"unit"`
	Stock         int        `json:"stock" validate:"min=0"`
	PriceCents    int        `json:"price_cents" validate:"required,min=1"`
	DiscountCents int        `json:"discount_cents" validate:"min=0"`
	Published     bool       `json:"published"`
}

type updateProductRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	Images        []string   `json:"images"`
	CategoryID    *uuid.UUID `json:"category_id"`
	SubCategoryID *uuid.UUID `json:"sub_category_id"`
	Unit          *string    `json:"unit"`
	Stock         *int       `json:"stock"`
	PriceCents    *int       `json:"price_cents"`
	DiscountCents *int       `json:"discount_cents"`
	Published     *bool      `json:"published"`
}

// ProductList returns a cursor page of published products.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subCategoryID, err := validators.ParseQueryUUID(r, "sub_category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := productsvc.ListFilter{
			CategoryID:    categoryID,
			SubCategoryID: subCategoryID,
			Search:        strings.TrimSpace(r.URL.Query().Get("search")),
			PublishedOnly: true,
		}
		page, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]productResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newProductResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, "Products fetched", map[string]any{
			"items":       items,
			"next_cursor": page.NextCursor,
		})
	}
}

// ProductGet returns a single product by id.
func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "Product fetched", newProductResponse(product))
	}
}

// ProductCreate is the admin listing creation endpoint.
func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), productsvc.CreateInput{
			Name:          payload.Name,
			Description:   payload.Description,
			Images:        payload.Images,
			CategoryID:    payload.CategoryID,
			SubCategoryID: payload.SubCategoryID,
			Unit:          payload.Unit,
			Stock:         payload.Stock,
			PriceCents:    payload.PriceCents,
			DiscountCents: payload.DiscountCents,
			Published:     payload.Published,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "Product created", newProductResponse(product))
	}
}

// ProductUpdate is the admin listing update endpoint.
func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, productsvc.UpdateInput{
			Name:          payload.Name,
			Description:   payload.Description,
			Images:        payload.Images,
			CategoryID:    payload.CategoryID,
			SubCategoryID: payload.SubCategoryID,
			Unit:          payload.Unit,
			Stock:         payload.Stock,
			PriceCents:    payload.PriceCents,
			DiscountCents: payload.DiscountCents,
			Published:     payload.Published,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "Product updated", newProductResponse(product))
	}
}

// ProductDelete is the admin listing delete endpoint.
func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "Product deleted", nil)
	}
}

type productResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description,omitempty"`
	Images        []string   `json:"images,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	SubCategoryID *uuid.UUID `json:"sub_category_id,omitempty"`
	Unit          *string    `json:"unit,omitempty"`
	Stock         int        `json:"stock"`
	PriceCents    int        `json:"price_cents"`
	DiscountCents int        `json:"discount_cents"`
	Published     bool       `json:"published"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newProductResponse(product *models.Product) productResponse {
	return productResponse{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Images:        product.Images,
		CategoryID:    product.CategoryID,
		SubCategoryID: product.SubCategoryID,
		Unit:          product.Unit,
		Stock:         product.Stock,
		PriceCents:    product.PriceCents,
		DiscountCents: product.DiscountCents,
		Published:     product.Published,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}
