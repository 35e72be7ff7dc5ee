package service

import (
	"context"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
)

// Ledger журнал записей, единственный источник правды о занятости слотов.
// CreateBooking атомарно проверяет вместимость и вставляет запись.
type Ledger interface {
	CreateBooking(ctx context.Context, nb model.NewBooking) (int64, error)
	// CancelBooking возвращает changed=false, если запись уже была отменена
	CancelBooking(ctx context.Context, id int64) (booking *model.Booking, changed bool, err error)
	CountActive(ctx context.Context, key model.SlotKey) (int, error)
	CountActiveByTime(ctx context.Context, service, date string) (map[string]int, error)
	ActiveBookingsForSlot(ctx context.Context, key model.SlotKey) ([]*model.Booking, error)
	AttachEventID(ctx context.Context, key model.SlotKey, eventID string) (int64, error)
	ClearEventID(ctx context.Context, key model.SlotKey) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Booking, error)
	ListActiveByUser(ctx context.Context, tgUserID string) ([]*model.Booking, error)
	SlotsPendingSync(ctx context.Context, limit int) ([]model.SlotKey, error)
}

// SettingsStore хранилище настроек ключ-значение
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	List(ctx context.Context, prefix string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}
