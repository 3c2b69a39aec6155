package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
)

// PlaceOrderInput captures the data needed to convert a cart into an order.
type PlaceOrderInput struct {
	UserID            uuid.UUID
	DeliveryAddressID uuid.UUID
}

// OnlinePaymentResult pairs the created order with the gateway redirect.
type OnlinePaymentResult struct {
	Order       *OrderDTO `json:"order"`
	RedirectURL string    `json:"redirect_url"`
}

// ReconcileInput is one settlement callback from the payment gateway.
type ReconcileInput struct {
	OrderID uuid.UUID
	Outcome enums.PaymentStatus
}

// ReconcileResult reports what the callback did to the order.
type ReconcileResult struct {
	OrderID uuid.UUID           `json:"order_id"`
	Status  enums.PaymentStatus `json:"status"`
	// Applied is false when the callback was a duplicate of an already
	// recorded outcome.
	Applied bool `json:"applied"`
}

// AdminUpdateInput carries the mutable fields an administrator may override.
type AdminUpdateInput struct {
	PaymentStatus     *enums.PaymentStatus
	DeliveryAddressID *uuid.UUID
}

// Page is one cursor page of orders.
type Page struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// OrderDTO is the outward-facing order shape.
type OrderDTO struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user_id"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
	SubtotalCents     int                 `json:"subtotal_cents"`
	TotalCents        int                 `json:"total_cents"`
	DeliveryAddressID uuid.UUID           `json:"delivery_address_id"`
	GatewaySessionID  *string             `json:"gateway_session_id,omitempty"`
	Items             []OrderItemDTO      `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// OrderItemDTO is one snapshotted line.
type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	SubtotalCents  int       `json:"subtotal_cents"`
}

// NewOrderDTO maps a persisted order to its API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			ImageURL:       item.ImageURL,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  item.SubtotalCents,
		})
	}
	return &OrderDTO{
		ID:                order.ID,
		UserID:            order.UserID,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		SubtotalCents:     order.SubtotalCents,
		TotalCents:        order.TotalCents,
		DeliveryAddressID: order.DeliveryAddressID,
		GatewaySessionID:  order.GatewaySessionID,
		Items:             items,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

// NewOrderPage maps a buffered repository page to DTOs.
func NewOrderPage(orders []models.Order, limit int, nextCursorFn func(last models.Order) string) *Page {
	page := &Page{Items: make([]OrderDTO, 0, len(orders))}

	window := orders
	if len(orders) > limit {
		window = orders[:limit]
		page.NextCursor = nextCursorFn(window[limit-1])
	}
	for i := range window {
		page.Items = append(page.Items, *NewOrderDTO(&window[i]))
	}
	return page
}
