// Package sqlite хранит записи и настройки в одном файле SQLite.
//
// Пул построен на zombiezen.com/go/sqlite: каждая операция берёт своё
// соединение через Take и возвращает его через Put. Запись в слот
// выполняется в BEGIN IMMEDIATE транзакции, поэтому две конкурирующие
// записи сериализуются на уровне файла базы.
package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const defaultPoolSize = 4

// Config параметры пула соединений
type Config struct {
	Path     string
	PoolSize int
	Logger   *zap.Logger
}

// Pool пул соединений с одинаковыми pragma на каждом соединении
type Pool struct {
	inner  *sqlitex.Pool
	logger *zap.Logger
	path   string
}

// Open открывает пул. Файл базы создаётся если его нет,
// соединения инициализируются лениво при первом Take.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	logger.Info("SQLite pool opened",
		zap.String("path", cfg.Path),
		zap.Int("pool_size", poolSize),
	)

	return &Pool{inner: inner, logger: logger, path: cfg.Path}, nil
}

// Take берёт соединение из пула, блокируется пока нет свободного
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: take: %w", err)
	}
	return conn, nil
}

// Put возвращает соединение в пул
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close закрывает все соединения, дожидаясь возврата занятых
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("Failed to close SQLite pool", zap.String("path", p.path), zap.Error(err))
		return fmt.Errorf("sqlite: close %s: %w", p.path, err)
	}
	p.logger.Info("SQLite pool closed", zap.String("path", p.path))
	return nil
}

// prepareConnection применяет pragma к новому соединению.
// busy_timeout ограничивает ожидание блокировки записи.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}
