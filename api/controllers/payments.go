package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quickmart-dev/quickmart-backend/api/responses"
	ordersvc "github.com/quickmart-dev/quickmart-backend/internal/orders"
	"github.com/quickmart-dev/quickmart-backend/internal/payments"
	"github.com/quickmart-dev/quickmart-backend/pkg/enums"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
)

const callbackBodyReadLimit int64 = 64 * 1024

// PaymentSuccess handles the gateway's settlement-succeeded callback.
func PaymentSuccess(svc ordersvc.Service, guard *payments.CallbackGuard, logg *logger.Logger) http.HandlerFunc {
	return paymentCallback(svc, guard, logg, enums.PaymentStatusPaid)
}

// PaymentFail handles the gateway's settlement-failed callback.
func PaymentFail(svc ordersvc.Service, guard *payments.CallbackGuard, logg *logger.Logger) http.HandlerFunc {
	return paymentCallback(svc, guard, logg, enums.PaymentStatusFailed)
}

// PaymentCancel handles the gateway's shopper-cancelled callback.
func PaymentCancel(svc ordersvc.Service, guard *payments.CallbackGuard, logg *logger.Logger) http.HandlerFunc {
	return paymentCallback(svc, guard, logg, enums.PaymentStatusCancelled)
}

// paymentCallback is the shared handler for the three callback outcomes. Each
// route binds one fixed terminal status; the gateway identifies the order via
// the tran_id it was handed at session creation.
func paymentCallback(svc ordersvc.Service, guard *payments.CallbackGuard, logg *logger.Logger, outcome enums.PaymentStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := callbackOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if guard != nil {
			seen, err := guard.CheckAndMark(r.Context(), orderID.String(), string(outcome))
			if err != nil {
				// Redis being down must not drop callbacks; the conditional
				// update downstream still guarantees idempotency.
				if logg != nil {
					logg.Warn(r.Context(), "callback idempotency guard unavailable")
				}
			} else if seen {
				responses.WriteSuccess(w, "Callback already processed", nil)
				return
			}
		}

		result, err := svc.Reconcile(r.Context(), ordersvc.ReconcileInput{
			OrderID: orderID,
			Outcome: outcome,
		})
		if err != nil {
			if guard != nil {
				if relErr := guard.Release(r.Context(), orderID.String(), string(outcome)); relErr != nil && logg != nil {
					logg.Warn(r.Context(), "failed to release callback idempotency mark")
				}
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg := "Payment status recorded"
		if !result.Applied {
			msg = "Callback already processed"
		}
		responses.WriteSuccess(w, msg, result)
	}
}

type callbackPayload struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"tran_id"`
}

// callbackOrderID extracts the order id from either a form post or a JSON
// body, matching how hosted-checkout gateways deliver callbacks. The gateway
// echoes the order id back as tran_id; order_id is accepted as an alias.
func callbackOrderID(r *http.Request) (uuid.UUID, error) {
	contentType := r.Header.Get("Content-Type")

	var raw string
	if strings.HasPrefix(contentType, "application/json") {
		var payload callbackPayload
		body, err := io.ReadAll(io.LimitReader(r.Body, callbackBodyReadLimit))
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read callback body")
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body")
		}
		raw = payload.TransactionID
		if raw == "" {
			raw = payload.OrderID
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback form")
		}
		raw = r.Form.Get("tran_id")
		if raw == "" {
			raw = r.Form.Get("order_id")
		}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tran_id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tran_id must be a valid uuid")
	}
	return orderID, nil
}
