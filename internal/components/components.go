package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"stayalive/internal/api"
	"stayalive/internal/config"
	"stayalive/internal/dispatch"
	"stayalive/internal/events"
	"stayalive/internal/metrics"
	"stayalive/internal/service"
	"stayalive/internal/storage/postgres"
	"stayalive/internal/storage/redis"
	"stayalive/internal/ws"
	"stayalive/pkg/logger"
)

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Postgres   *postgres.Postgres
	Redis      *redis.Redis
	Bus        *events.Bus
	Manager    *ws.Manager
	Notifier   *dispatch.Notifier
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	logger.Info("Initializing Postgres")

	storage, err := postgres.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to init postgres",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	logger.Info("Initializing Redis")
	redisClient, err := redis.NewRedis(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	positionStore := redis.NewPositionStore(redisClient, cfg.Position.TTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	bus := events.NewBus(cfg.Dispatch.EventBuffer)
	manager := ws.NewManager(ctx, logger, positionStore)
	notifier := dispatch.NewNotifier(logger, manager, bus, collector)

	emergencySvc := service.NewEmergencyService(storage.Emergencies, storage.Accounts, positionStore, bus, logger, collector)
	positionSvc := service.NewPositionService(positionStore, logger)
	statsSvc := service.NewStatsService(storage.Stat)

	srv := service.NewService(emergencySvc, positionSvc, statsSvc)

	httpServer := api.NewServer(cfg, logger, srv, manager, registry)
	logger.Info("Initialized server")

	return &Components{
		logger:     logger,
		HttpServer: httpServer,
		Postgres:   storage,
		Redis:      redisClient,
		Bus:        bus,
		Manager:    manager,
		Notifier:   notifier,
	}, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Завершение работы компонентов началось")

	c.Bus.Close()
	c.Manager.Shutdown()
	c.Postgres.Pool.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("Все компоненты успешно завершили работу",
		slog.Duration("latency", time.Since(start)))
}
