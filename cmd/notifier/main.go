package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-marketplace.git/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace.git/internal/notify"
	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/ariefcatur/go-marketplace.git/internal/telemetry"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-notifier"
	telemetry.InitLogger(service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, service, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("tracer setup", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		slog.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:  rdb,
		Users:  &users.Repo{DB: db},
		Mailer: notify.LogMailer{},
		From:   cfg.MailFrom,
		Name:   "notifier",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderCreated, cfg.NotifierWorkers)
	slog.Info("notifier consumer started",
		"group", cfg.NotifierGroup, "topic", orders.TopicOrderCreated, "workers", cfg.NotifierWorkers)
	if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
		slog.Error("consumer exit", "error", err)
		os.Exit(1)
	}
	slog.Info("notifier stopped")
}
