package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/Freeeeeet/slot_booking_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsRepository struct {
	*base.Repository
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{Repository: base.NewRepository(pool)}
}

// Get возвращает значение настройки, ok=false если ключа нет
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if base.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// List возвращает настройки с ключами, начинающимися с prefix
func (r *SettingsRepository) List(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := r.Query(ctx, `SELECT key, value FROM settings WHERE left(key, length($1)) = $1`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	return settings, nil
}

// Set записывает настройку
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.ExecAffected(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func readCapacity(ctx context.Context, tx pgx.Tx, service string) (int, error) {
	var raw string
	err := tx.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, model.CapacitySettingKey(service)).Scan(&raw)
	if err != nil {
		if base.IsNotFound(err) {
			return 0, fmt.Errorf("%w: %s", model.ErrUnknownService, service)
		}
		return 0, fmt.Errorf("read capacity: %w", err)
	}

	capacity, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse capacity of %s: %w", service, err)
	}
	return capacity, nil
}
