// Package postgres реализует журнал записей и настройки поверх PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/Freeeeeet/slot_booking_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const bookingColumns = `id, created_at, status, service, "date", "time", name, phone, tg_user_id, calendar_event_id`

type BookingRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewBookingRepository(pool *pgxpool.Pool, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// CreateBooking создаёт запись, если в слоте есть место.
// Advisory-блокировка по ключу слота сериализует только записи в один слот.
func (r *BookingRepository) CreateBooking(ctx context.Context, nb model.NewBooking) (int64, error) {
	if err := nb.Validate(); err != nil {
		return 0, err
	}

	key := nb.Slot()
	var id int64

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
			return fmt.Errorf("lock slot %s: %w", key, err)
		}

		capacity, err := readCapacity(ctx, tx, nb.Service)
		if err != nil {
			return err
		}

		var used int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM bookings
			WHERE service = $1 AND "date" = $2 AND "time" = $3 AND status = 'active'
		`, key.Service, key.Date, key.Time).Scan(&used)
		if err != nil {
			return fmt.Errorf("count active %s: %w", key, err)
		}
		if used >= capacity {
			return model.ErrSlotFull
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO bookings (status, service, "date", "time", name, phone, tg_user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`,
			model.BookingStatusActive,
			nb.Service,
			nb.Date,
			nb.Time,
			nb.Name,
			nb.Phone,
			nb.TgUserID,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		r.logger.Debug("Booking inserted",
			zap.Int64("booking_id", id),
			zap.String("slot", key.String()),
			zap.Int("used", used+1),
			zap.Int("capacity", capacity),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// CancelBooking переводит запись в cancelled. Повторная отмена ничего не меняет.
func (r *BookingRepository) CancelBooking(ctx context.Context, id int64) (*model.Booking, bool, error) {
	var (
		booking *model.Booking
		changed bool
	)

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
		b, err := scanBooking(row)
		if err != nil {
			if base.IsNotFound(err) {
				return model.ErrBookingNotFound
			}
			return fmt.Errorf("get booking %d: %w", id, err)
		}

		if b.IsActive() {
			_, err = tx.Exec(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`, model.BookingStatusCancelled, id)
			if err != nil {
				return fmt.Errorf("cancel booking %d: %w", id, err)
			}
			b.Status = model.BookingStatusCancelled
			changed = true
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return booking, changed, nil
}

// CountActive количество активных записей слота
func (r *BookingRepository) CountActive(ctx context.Context, key model.SlotKey) (int, error) {
	var count int
	err := r.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE service = $1 AND "date" = $2 AND "time" = $3 AND status = 'active'
	`, key.Service, key.Date, key.Time).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active %s: %w", key, err)
	}
	return count, nil
}

// CountActiveByTime количество активных записей по времени за день
func (r *BookingRepository) CountActiveByTime(ctx context.Context, service, date string) (map[string]int, error) {
	rows, err := r.Query(ctx, `
		SELECT "time", COUNT(*)
		FROM bookings
		WHERE service = $1 AND "date" = $2 AND status = 'active'
		GROUP BY "time"
	`, service, date)
	if err != nil {
		return nil, fmt.Errorf("count active by time: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			slotTime string
			count    int
		)
		if err := rows.Scan(&slotTime, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[slotTime] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count active by time: %w", err)
	}

	return counts, nil
}

// ActiveBookingsForSlot активные записи слота по возрастанию id
func (r *BookingRepository) ActiveBookingsForSlot(ctx context.Context, key model.SlotKey) ([]*model.Booking, error) {
	return r.list(ctx, "active bookings for slot", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE service = $1 AND "date" = $2 AND "time" = $3 AND status = 'active'
		ORDER BY id
	`, key.Service, key.Date, key.Time)
}

// AttachEventID проставляет id события всем активным записям слота
func (r *BookingRepository) AttachEventID(ctx context.Context, key model.SlotKey, eventID string) (int64, error) {
	n, err := r.ExecAffected(ctx, `
		UPDATE bookings SET calendar_event_id = $1
		WHERE service = $2 AND "date" = $3 AND "time" = $4 AND status = 'active'
	`, eventID, key.Service, key.Date, key.Time)
	if err != nil {
		return 0, fmt.Errorf("attach event id: %w", err)
	}
	return n, nil
}

// ClearEventID снимает id события со всех записей слота
func (r *BookingRepository) ClearEventID(ctx context.Context, key model.SlotKey) (int64, error) {
	n, err := r.ExecAffected(ctx, `
		UPDATE bookings SET calendar_event_id = NULL
		WHERE service = $1 AND "date" = $2 AND "time" = $3 AND calendar_event_id IS NOT NULL
	`, key.Service, key.Date, key.Time)
	if err != nil {
		return 0, fmt.Errorf("clear event id: %w", err)
	}
	return n, nil
}

// GetByID получает запись по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := scanBooking(r.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, model.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

// ListRecent последние записи, новые первыми
func (r *BookingRepository) ListRecent(ctx context.Context, limit int) ([]*model.Booking, error) {
	return r.list(ctx, "list recent bookings", `
		SELECT `+bookingColumns+`
		FROM bookings
		ORDER BY id DESC
		LIMIT $1
	`, limit)
}

// ListActiveByUser активные записи пользователя Telegram
func (r *BookingRepository) ListActiveByUser(ctx context.Context, tgUserID string) ([]*model.Booking, error) {
	return r.list(ctx, "list bookings by user", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tg_user_id = $1 AND status = 'active'
		ORDER BY id
	`, tgUserID)
}

// SlotsPendingSync слоты, у которых календарь отстаёт от журнала
func (r *BookingRepository) SlotsPendingSync(ctx context.Context, limit int) ([]model.SlotKey, error) {
	rows, err := r.Query(ctx, `
		SELECT service, "date", "time"
		FROM bookings
		GROUP BY service, "date", "time"
		HAVING SUM(CASE WHEN status = 'active' AND calendar_event_id IS NULL THEN 1 ELSE 0 END) > 0
		    OR (SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END) = 0
		        AND SUM(CASE WHEN calendar_event_id IS NOT NULL THEN 1 ELSE 0 END) > 0)
		ORDER BY MIN(id)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("slots pending sync: %w", err)
	}
	defer rows.Close()

	var keys []model.SlotKey
	for rows.Next() {
		var key model.SlotKey
		if err := rows.Scan(&key.Service, &key.Date, &key.Time); err != nil {
			return nil, fmt.Errorf("scan slot key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("slots pending sync: %w", err)
	}

	return keys, nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.CreatedAt,
		&booking.Status,
		&booking.Service,
		&booking.Date,
		&booking.Time,
		&booking.Name,
		&booking.Phone,
		&booking.TgUserID,
		&booking.CalendarEventID,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
