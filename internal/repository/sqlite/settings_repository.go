package sqlite

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type SettingsRepository struct {
	pool *Pool
}

func NewSettingsRepository(pool *Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get возвращает значение настройки, ok=false если ключа нет
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	defer r.pool.Put(conn)

	return getSetting(conn, key)
}

// List возвращает все настройки, ключи с префиксом prefix (пустой префикс - все)
func (r *SettingsRepository) List(ctx context.Context, prefix string) (map[string]string, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer r.pool.Put(conn)

	settings := make(map[string]string)
	err = sqlitex.Execute(conn, `SELECT key, value FROM settings WHERE substr(key, 1, length(?)) = ?`, &sqlitex.ExecOptions{
		Args: []any{prefix, prefix},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			settings[stmt.ColumnText(0)] = stmt.ColumnText(1)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	return settings, nil
}

// Set записывает настройку (используется админкой и тестами, не путём записи)
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, &sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}


func getSetting(conn *sqlite.Conn, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := sqlitex.Execute(conn, `SELECT value FROM settings WHERE key = ?`, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, found, nil
}
