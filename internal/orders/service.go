package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickmart-dev/quickmart-backend/internal/cart"
	"github.com/quickmart-dev/quickmart-backend/pkg/db/models"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/gateway"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/metrics"
	"github.com/quickmart-dev/quickmart-backend/pkg/pagination"
)

// Service defines order lifecycle operations.
type Service interface {
	PlaceCashOnDelivery(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	InitiateOnlinePayment(ctx context.Context, input PlaceOrderInput) (*OnlinePaymentResult, error)
	Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
	ListAll(ctx context.Context, params pagination.Params) (*Page, error)
	AdminUpdate(ctx context.Context, orderID uuid.UUID, input AdminUpdateInput) (*OrderDTO, error)
	AdminDelete(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	carts     cart.Repository
	addresses addressChecker
	gateway   sessionCreator
	logg      *logger.Logger
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, carts cart.Repository, addresses addressChecker, gw sessionCreator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address loader required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		carts:     carts,
		addresses: addresses,
		gateway:   gw,
		logg:      logg,
	}, nil
}

// PlaceCashOnDelivery converts the user's cart into a pending
// cash-on-delivery order and clears the cart in the same transaction.
func (s *service) PlaceCashOnDelivery(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	order, err := s.placeOrder(ctx, input, enums.PaymentMethodCashOnDelivery)
	if err != nil {
		return nil, err
	}

	metrics.OrdersPlaced.WithLabelValues(string(enums.PaymentMethodCashOnDelivery)).Inc()
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "cash on delivery order placed")

	return NewOrderDTO(order), nil
}

// InitiateOnlinePayment places a pending order, registers a checkout session
// with the gateway and returns the redirect URL. When the gateway rejects the
// session the order stays pending so the shopper can retry or cancel; the
// fail/cancel callbacks settle it either way.
func (s *service) InitiateOnlinePayment(ctx context.Context, input PlaceOrderInput) (*OnlinePaymentResult, error) {
	order, err := s.placeOrder(ctx, input, enums.PaymentMethodOnline)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
	})
	if err != nil {
		s.logg.Error(ctx, "gateway session creation failed, order left pending", err)
		return nil, err
	}

	if session.ID != "" {
		if err := s.repo.SetGatewaySession(ctx, order.ID, session.ID); err != nil {
			s.logg.Warn(ctx, "failed to record gateway session id")
		} else {
			sessionID := session.ID
			order.GatewaySessionID = &sessionID
		}
	}

	metrics.OrdersPlaced.WithLabelValues(string(enums.PaymentMethodOnline)).Inc()
	s.logg.Info(ctx, "online payment initiated")

	return &OnlinePaymentResult{
		Order:       NewOrderDTO(order),
		RedirectURL: session.RedirectURL,
	}, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput, method enums.PaymentMethod) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.DeliveryAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address id is required")
	}

	address, err := s.addresses.GetForUser(ctx, input.UserID, input.DeliveryAddressID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)

		cartItems, err := carts.ListByUser(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(cartItems) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		orderID := uuid.New()
		items := make([]models.OrderItem, 0, len(cartItems))
		subtotal := 0
		for _, line := range cartItems {
			if line.Product == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart contains an unavailable product")
			}
			unitPrice := line.Product.EffectivePriceCents()
			lineSubtotal := unitPrice * line.Quantity
			subtotal += lineSubtotal

			var imageURL *string
			if len(line.Product.Images) > 0 {
				first := line.Product.Images[0]
				imageURL = &first
			}

			items = append(items, models.OrderItem{
				ID:             uuid.New(),
				OrderID:        orderID,
				ProductID:      line.ProductID,
				Name:           line.Product.Name,
				ImageURL:       imageURL,
				Quantity:       line.Quantity,
				UnitPriceCents: unitPrice,
				SubtotalCents:  lineSubtotal,
			})
		}

		order = &models.Order{
			ID:                orderID,
			UserID:            input.UserID,
			PaymentMethod:     method,
			PaymentStatus:     enums.PaymentStatusPending,
			SubtotalCents:     subtotal,
			TotalCents:        subtotal,
			DeliveryAddressID: address.ID,
			Items:             items,
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := carts.ClearForUser(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Reconcile applies one gateway settlement callback. The transition is a
// single conditional update so concurrent callbacks cannot both win; repeats
// of the recorded outcome are acknowledged as no-ops and a different terminal
// outcome is rejected without touching the stored status.
func (s *service) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Outcome.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be a terminal payment status")
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	outcome := string(input.Outcome)

	applied, err := s.repo.MarkPaymentStatusIfPending(ctx, input.OrderID, input.Outcome)
	if err != nil {
		metrics.PaymentCallbacks.WithLabelValues(outcome, "error").Inc()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	if applied {
		metrics.PaymentCallbacks.WithLabelValues(outcome, "applied").Inc()
		s.logg.Info(s.logg.WithField(ctx, "payment_status", outcome), "payment status recorded")
		return &ReconcileResult{OrderID: input.OrderID, Status: input.Outcome, Applied: true}, nil
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PaymentCallbacks.WithLabelValues(outcome, "not_found").Inc()
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		metrics.PaymentCallbacks.WithLabelValues(outcome, "error").Inc()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.PaymentStatus == input.Outcome {
		metrics.PaymentCallbacks.WithLabelValues(outcome, "duplicate").Inc()
		s.logg.Info(ctx, "duplicate payment callback ignored")
		return &ReconcileResult{OrderID: order.ID, Status: order.PaymentStatus, Applied: false}, nil
	}

	metrics.PaymentCallbacks.WithLabelValues(outcome, "conflict").Inc()
	conflictCtx := s.logg.WithFields(ctx, map[string]any{
		"recorded_status": string(order.PaymentStatus),
		"callback_status": outcome,
	})
	s.logg.Warn(conflictCtx, "conflicting payment callback rejected")
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already settled with a different outcome")
}

// GetForUser loads one order and verifies ownership. Orders belonging to
// someone else read as not found.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	orders, err := s.repo.ListByUser(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return NewOrderPage(orders, limit, encodeOrderCursor), nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	orders, err := s.repo.ListAll(ctx, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return NewOrderPage(orders, limit, encodeOrderCursor), nil
}

// AdminUpdate is the operator override for an order. Unlike Reconcile it may
// leave or re-enter any state, so every status change is logged with both
// sides of the transition.
func (s *service) AdminUpdate(ctx context.Context, orderID uuid.UUID, input AdminUpdateInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	updates := map[string]any{}
	if input.PaymentStatus != nil {
		if !input.PaymentStatus.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
		}
		if *input.PaymentStatus != order.PaymentStatus {
			updates["payment_status"] = *input.PaymentStatus
		}
	}
	if input.DeliveryAddressID != nil {
		if *input.DeliveryAddressID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address id cannot be empty")
		}
		if _, err := s.addresses.GetForUser(ctx, order.UserID, *input.DeliveryAddressID); err != nil {
			return nil, err
		}
		if *input.DeliveryAddressID != order.DeliveryAddressID {
			updates["delivery_address_id"] = *input.DeliveryAddressID
		}
	}

	if len(updates) == 0 {
		return NewOrderDTO(order), nil
	}

	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}

	if status, ok := updates["payment_status"]; ok {
		ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"from_status": string(order.PaymentStatus),
			"to_status":   string(status.(enums.PaymentStatus)),
		})
		s.logg.Info(ctx, "order payment status overridden by admin")
		order.PaymentStatus = status.(enums.PaymentStatus)
	}
	if addr, ok := updates["delivery_address_id"]; ok {
		order.DeliveryAddressID = addr.(uuid.UUID)
	}

	return NewOrderDTO(order), nil
}

func (s *service) AdminDelete(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	if _, err := s.repo.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if err := s.repo.Delete(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order deleted by admin")
	return nil
}

func encodeOrderCursor(last models.Order) string {
	return pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: last.CreatedAt,
		ID:        last.ID,
	})
}
