// Пакет server — HTTP-сервер Shopsim с graceful shutdown.
// Без TLS — сервис предназначен для работы за reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/shopsim/internal/api/handlers"
	"github.com/bigkaa/shopsim/internal/api/middleware"
	"github.com/bigkaa/shopsim/internal/config"
)

// Server — HTTP-сервер Shopsim.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handler, health *handlers.HealthHandler) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.Metrics)

	// API v1
	router.Route("/api/v1", func(r chi.Router) {
		// Обобщённые CRUD-маршруты ресурсов
		for _, res := range handlers.Resources() {
			r.Route("/"+res.Name, func(r chi.Router) {
				r.Get("/", h.List(res))
				r.Post("/", h.Create(res))
				r.Post("/search", h.Search(res))
				r.Get("/{id}", h.Get(res))
				r.Put("/{id}", h.Update(res))
				r.Delete("/{id}", h.Delete(res))
				if res.ToggleColumn != "" {
					r.Patch("/{id}/"+res.ToggleColumn, h.Toggle(res))
				}
			})
		}

		// Покупки: создание и чтение составные, остальное обобщённое
		purchases := handlers.PurchasesResource()
		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.List(purchases))
			r.Post("/", h.CreatePurchase)
			r.Post("/search", h.Search(purchases))
			r.Get("/{id}", h.GetPurchase)
			r.Delete("/{id}", h.Delete(purchases))
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
