package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentCallbacks counts gateway callback deliveries by outcome and result.
// Result is one of: applied, duplicate, conflict, not_found, error.
var PaymentCallbacks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "quickmart",
		Subsystem: "payments",
		Name:      "callbacks_total",
		Help:      "Payment gateway callbacks processed, by outcome and result.",
	},
	[]string{"outcome", "result"},
)

// OrdersPlaced counts orders created, by payment method.
var OrdersPlaced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "quickmart",
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Orders placed, by payment method.",
	},
	[]string{"payment_method"},
)
