package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stayalive/internal/api/handlers/http/callcenter"
	"stayalive/internal/api/handlers/http/rescuer"
	"stayalive/internal/api/handlers/http/system"
	"stayalive/internal/config"
	"stayalive/internal/middleware"
	"stayalive/internal/service"
	"stayalive/internal/ws"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

func NewServer(cfg *config.Config, logger *slog.Logger, svc *service.Service, manager *ws.Manager, registry *prometheus.Registry) *Server {
	callCenterHandler := callcenter.NewHandler(logger, svc.EmergencyService, svc.StatsService, manager)
	rescuerHandler := rescuer.NewHandler(logger, svc.EmergencyService, svc.PositionService, manager, cfg.Position.FeedInterval)
	systemHandler := system.NewHandler(logger)

	r := InitRouter(callCenterHandler, rescuerHandler, systemHandler, logger, registry)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
	}
}

func InitRouter(callCenterHandler *callcenter.Handler, rescuerHandler *rescuer.Handler, systemHandler *system.Handler, logger *slog.Logger, registry *prometheus.Registry) *chi.Mux {
	r := chi.NewMux()

	// чтобы request_id попал в лог chi.Logger
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)

	r.Route("/api/v1", func(api chi.Router) {
		// CALL CENTER
		api.Route("/call-center", func(cr chi.Router) {
			cr.Use(middleware.Identity)
			cr.Use(middleware.Limit(10, 20, 10*time.Minute, logger))

			cr.Get("/ws", callCenterHandler.Websocket)
			cr.Get("/stats", callCenterHandler.Stats)

			cr.Route("/emergency", func(er chi.Router) {
				er.Post("/", callCenterHandler.CreateEmergency)
				er.Get("/", callCenterHandler.ListEmergencies)

				er.Route("/{id}", func(rr chi.Router) {
					rr.Post("/ask", callCenterHandler.AskAssign)
					rr.Post("/cancel", callCenterHandler.CancelEmergency)
				})
			})
		})

		// RESCUER
		api.Route("/rescuer", func(rc chi.Router) {
			rc.Use(middleware.Identity)
			rc.Use(middleware.Limit(10, 20, 10*time.Minute, logger))

			rc.Get("/ws", rescuerHandler.Websocket)
			rc.Get("/emergency/history", rescuerHandler.History)

			rc.Route("/emergency/{id}", func(er chi.Router) {
				er.Post("/accept", rescuerHandler.AcceptEmergency)
				er.Post("/refuse", rescuerHandler.RefuseEmergency)
				er.Post("/terminate", rescuerHandler.TerminateEmergency)
			})

			rc.Route("/position", func(pr chi.Router) {
				pr.Get("/", rescuerHandler.GetPosition)
				pr.Post("/", rescuerHandler.SetPosition)
				pr.Delete("/", rescuerHandler.DeletePosition)
				pr.Get("/all", rescuerHandler.AllPositions)
				pr.Post("/nearest", rescuerHandler.NearestPosition)
				pr.Get("/feed", rescuerHandler.PositionFeed)
			})
		})

		// SYSTEM
		api.Get("/health", systemHandler.SystemHealth)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("🚀 Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("🛑 Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
