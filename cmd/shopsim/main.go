// Точка входа Shopsim — сервис предпросмотра операций над
// интернет-магазином. Каждая мутация выполняется в симулируемой
// транзакции и откатывается до возврата ответа: состояние БД
// между вызовами не меняется.
// Загружает конфигурацию, применяет миграции, открывает SQLite,
// создаёт слой store и HTTP-контроллеры, запускает сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigkaa/shopsim/internal/api/handlers"
	"github.com/bigkaa/shopsim/internal/config"
	"github.com/bigkaa/shopsim/internal/database"
	"github.com/bigkaa/shopsim/internal/server"
	"github.com/bigkaa/shopsim/internal/store"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Shopsim запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("db_path", cfg.DBPath),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к SQLite
	ctx := context.Background()
	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к SQLite", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// 5. Слой доступа к данным
	st := store.New(db)

	// 6. Readiness checker и handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(db))
	apiHandler := handlers.NewHandler(st, logger)

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, healthHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Shopsim остановлен")
}
