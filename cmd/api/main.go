package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/quickmart-dev/quickmart-backend/api/routes"
	addresssvc "github.com/quickmart-dev/quickmart-backend/internal/addresses"
	authsvc "github.com/quickmart-dev/quickmart-backend/internal/auth"
	cartsvc "github.com/quickmart-dev/quickmart-backend/internal/cart"
	categorysvc "github.com/quickmart-dev/quickmart-backend/internal/categories"
	ordersvc "github.com/quickmart-dev/quickmart-backend/internal/orders"
	"github.com/quickmart-dev/quickmart-backend/internal/payments"
	productsvc "github.com/quickmart-dev/quickmart-backend/internal/products"
	"github.com/quickmart-dev/quickmart-backend/internal/users"
	"github.com/quickmart-dev/quickmart-backend/pkg/config"
	"github.com/quickmart-dev/quickmart-backend/pkg/db"
	"github.com/quickmart-dev/quickmart-backend/pkg/gateway"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/migrate"
	"github.com/quickmart-dev/quickmart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	productsRepo := productsvc.NewRepository(dbClient.DB())
	categoriesRepo := categorysvc.NewRepository(dbClient.DB())
	addressesRepo := addresssvc.NewRepository(dbClient.DB())
	ordersRepo := ordersvc.NewRepository(dbClient.DB())

	authService, err := authsvc.NewService(usersRepo, redisClient, cfg.JWT, cfg.Password, cfg.AuthRateLimit, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productsService, err := productsvc.NewService(productsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	categoriesService, err := categorysvc.NewService(categoriesRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create categories service", err)
		os.Exit(1)
	}

	addressesService, err := addresssvc.NewService(addressesRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create addresses service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, productsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := ordersvc.NewService(ordersRepo, dbClient, cartRepo, addressesService, gatewayClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	callbackGuard, err := payments.NewCallbackGuard(redisClient, cfg.Gateway.CallbackTTL, "payment_callback")
	if err != nil {
		logg.Error(context.Background(), "failed to create callback guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Auth:          authService,
			Cart:          cartService,
			Products:      productsService,
			Categories:    categoriesService,
			Addresses:     addressesService,
			Orders:        ordersService,
			CallbackGuard: callbackGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
