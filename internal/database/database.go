// Пакет database — подключение к SQLite через modernc.org/sqlite,
// применение миграций (golang-migrate) и проверка готовности.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/bigkaa/shopsim/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open открывает пул соединений SQLite и проверяет доступность БД.
// Прагмы (foreign_keys, busy_timeout) применяются через DSN
// к каждому соединению пула.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	// Проверяем подключение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к SQLite: %w", err)
	}

	logger.Info("Подключение к SQLite установлено",
		slog.String("path", cfg.DBPath),
	)

	return db, nil
}

// Migrate применяет SQL-миграции из embedded FS к базе данных.
// Использует golang-migrate с драйвером sqlite (modernc).
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	// Создаём источник миграций из embedded FS
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	dbURL := fmt.Sprintf("sqlite://%s", cfg.DBPath)

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	// Применяем все миграции
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// ReadinessChecker — проверка готовности SQLite для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	db *sql.DB
}

// NewReadinessChecker создаёт проверку готовности SQLite.
func NewReadinessChecker(db *sql.DB) *ReadinessChecker {
	return &ReadinessChecker{db: db}
}

// CheckReady проверяет подключение к SQLite через ping.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return "fail", fmt.Sprintf("SQLite недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
