package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickmart-dev/quickmart-backend/api/controllers"
	"github.com/quickmart-dev/quickmart-backend/api/middleware"
	addresssvc "github.com/quickmart-dev/quickmart-backend/internal/addresses"
	authsvc "github.com/quickmart-dev/quickmart-backend/internal/auth"
	cartsvc "github.com/quickmart-dev/quickmart-backend/internal/cart"
	categorysvc "github.com/quickmart-dev/quickmart-backend/internal/categories"
	ordersvc "github.com/quickmart-dev/quickmart-backend/internal/orders"
	"github.com/quickmart-dev/quickmart-backend/internal/payments"
	productsvc "github.com/quickmart-dev/quickmart-backend/internal/products"
	"github.com/quickmart-dev/quickmart-backend/pkg/config"
	"github.com/quickmart-dev/quickmart-backend/pkg/db"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/redis"
)

// Dependencies bundles everything the router needs.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redis.Pinger
	Auth          authsvc.Service
	Cart          cartsvc.Service
	Products      productsvc.Service
	Categories    categorysvc.Service
	Addresses     addresssvc.Service
	Orders        ordersvc.Service
	CallbackGuard *payments.CallbackGuard
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.Register(deps.Auth, logg))
			r.Post("/login", controllers.Login(deps.Auth, logg))
		})

		r.Route("/product", func(r chi.Router) {
			r.Get("/get-products", controllers.ProductList(deps.Products, logg))
			r.Get("/get-product/{productID}", controllers.ProductGet(deps.Products, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(deps.Config.JWT, logg))
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/create-product", controllers.ProductCreate(deps.Products, logg))
				r.Put("/update-product/{productID}", controllers.ProductUpdate(deps.Products, logg))
				r.Delete("/delete-product/{productID}", controllers.ProductDelete(deps.Products, logg))
			})
		})

		r.Route("/category", func(r chi.Router) {
			r.Get("/get-categories", controllers.CategoryList(deps.Categories, logg))
			r.Get("/get-sub-categories", controllers.SubCategoryList(deps.Categories, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(deps.Config.JWT, logg))
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/create-category", controllers.CategoryCreate(deps.Categories, logg))
				r.Post("/create-sub-category", controllers.SubCategoryCreate(deps.Categories, logg))
				r.Delete("/delete-category/{categoryID}", controllers.CategoryDelete(deps.Categories, logg))
				r.Delete("/delete-sub-category/{subCategoryID}", controllers.SubCategoryDelete(deps.Categories, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, logg))
			r.Post("/add-to-cart", controllers.CartAdd(deps.Cart, logg))
			r.Get("/get-cart-items", controllers.CartList(deps.Cart, logg))
			r.Put("/update-cart-item/{itemID}", controllers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/remove-cart-item/{itemID}", controllers.CartRemove(deps.Cart, logg))
		})

		r.Route("/address", func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, logg))
			r.Post("/add-address", controllers.AddressCreate(deps.Addresses, logg))
			r.Get("/get-addresses", controllers.AddressList(deps.Addresses, logg))
			r.Delete("/delete-address/{addressID}", controllers.AddressDelete(deps.Addresses, logg))
		})

		r.Route("/order", func(r chi.Router) {
			// Gateway callbacks are server-to-server and carry no user
			// credentials; correlation is by order id plus the idempotency
			// guard.
			r.Post("/payment-success", controllers.PaymentSuccess(deps.Orders, deps.CallbackGuard, logg))
			r.Post("/payment-fail", controllers.PaymentFail(deps.Orders, deps.CallbackGuard, logg))
			r.Post("/payment-cancel", controllers.PaymentCancel(deps.Orders, deps.CallbackGuard, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(deps.Config.JWT, logg))
				r.Post("/cash-on-delivery", controllers.OrderCashOnDelivery(deps.Orders, logg))
				r.Post("/online-payment", controllers.OrderOnlinePayment(deps.Orders, logg))
				r.Get("/get-order-details", controllers.OrderListForUser(deps.Orders, logg))
				r.Get("/get-order-details/{orderID}", controllers.OrderGetForUser(deps.Orders, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin(logg))
					r.Get("/get-admin-orders-details", controllers.AdminOrderList(deps.Orders, logg))
					r.Put("/update-admin-order/{orderID}", controllers.AdminOrderUpdate(deps.Orders, logg))
					r.Delete("/delete-admin-order/{orderID}", controllers.AdminOrderDelete(deps.Orders, logg))
				})
			})
		})
	})

	return r
}
