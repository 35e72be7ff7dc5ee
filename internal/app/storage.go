package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Freeeeeet/slot_booking_bot/internal/config"
	"github.com/Freeeeeet/slot_booking_bot/internal/repository/postgres"
	"github.com/Freeeeeet/slot_booking_bot/internal/repository/sqlite"
	"github.com/Freeeeeet/slot_booking_bot/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage открытое хранилище: журнал записей и настройки
type Storage struct {
	Bookings service.Ledger
	Settings service.SettingsStore

	closeFn func() error
}

// Close освобождает соединения хранилища
func (s *Storage) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// OpenStorage применяет миграции и открывает хранилище выбранного драйвера
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return openSQLite(ctx, cfg.SQLitePath, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.DBDSN, logger)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func openSQLite(ctx context.Context, path string, logger *zap.Logger) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	// goose работает с *sql.DB, поэтому миграции идут через драйвер modernc
	// до открытия основного пула
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite for migrations: %w", err)
	}
	if err := migrate(ctx, db, config.DriverSQLite, logger); err != nil {
		return nil, err
	}

	pool, err := sqlite.Open(sqlite.Config{Path: path, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Storage{
		Bookings: sqlite.NewBookingRepository(pool, logger),
		Settings: sqlite.NewSettingsRepository(pool),
		closeFn:  pool.Close,
	}, nil
}

func openPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("Connected to PostgreSQL")

	// Goose работает с *sql.DB, поэтому создаём его из пула
	if err := migrate(ctx, stdlib.OpenDBFromPool(pool), config.DriverPostgres, logger); err != nil {
		pool.Close()
		return nil, err
	}

	return &Storage{
		Bookings: postgres.NewBookingRepository(pool, logger),
		Settings: postgres.NewSettingsRepository(pool),
		closeFn: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

func migrate(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	migrator, err := NewMigrator(db, driver, logger)
	if err != nil {
		db.Close()
		return err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	version, err := migrator.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info("Database schema ready", zap.String("driver", driver), zap.Int64("version", version))
	return nil
}
