package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ariefcatur/go-marketplace.git/internal/auth"
	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace.git/internal/config"
	"github.com/ariefcatur/go-marketplace.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/payment"
	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/ariefcatur/go-marketplace.git/internal/telemetry"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	telemetry.InitLogger(cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		fatal("tracer setup", err)
	}

	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		fatal("migrate", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		fatal("db connect", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	// Repos
	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	carts := cart.NewService(&cart.Repo{DB: db}, cart.NewRedisCache(rdb), cfg.CartTTL)

	// Order core
	statusCache := orders.NewStatusCache(rdb)
	listeners := orders.Listeners{
		orders.NewEventPublisher(prod, cfg.ServiceName),
		statusCache,
	}
	factory := orders.NewFactory(orderRepo, catalog.NewGuarded(catalogRepo), &users.Repo{DB: db},
		orders.WithCartInvalidator(carts),
		orders.WithFactoryListener(listeners),
	)
	machine := orders.NewMachine(orderRepo, listeners)
	reconciler := orders.NewReconciler(orderRepo, listeners)

	gateway := payment.NewBreakerGateway(payment.NewStubGateway(cfg.PaymentDeclineAbove), cfg.PaymentTimeout)
	payments := payment.NewProcessor(orderRepo, gateway, reconciler, payment.NewRedisIdempotency(rdb))

	api := &httpx.API{
		Auth:       auth.New(cfg.JWTSecret),
		Accounts:   &users.Repo{DB: db},
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Cart:       carts,
		Factory:    factory,
		Machine:    machine,
		Orders:     orderRepo,
		Status:     statusCache,
		Payments:   payments,
		Catalog:    catalogRepo,
	}
	router := httpx.NewRouter(httpx.RouterConfig{CORSOrigins: cfg.CORSOrigins, Timeout: cfg.RequestTimeout})
	api.Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // flush queued events
	prod.WaitClosed() // writer closed
	if err := shutdownTracer(ctx2); err != nil {
		slog.Warn("tracer shutdown", "error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
