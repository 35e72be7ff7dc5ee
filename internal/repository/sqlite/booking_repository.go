package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const bookingColumns = `id, created_at, status, service, date, time, name, phone, tg_user_id, calendar_event_id`

type BookingRepository struct {
	pool   *Pool
	logger *zap.Logger
}

func NewBookingRepository(pool *Pool, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{pool: pool, logger: logger}
}

// CreateBooking создаёт запись, если в слоте есть место.
// Чтение вместимости, подсчёт и вставка идут в одной BEGIN IMMEDIATE транзакции.
func (r *BookingRepository) CreateBooking(ctx context.Context, nb model.NewBooking) (id int64, err error) {
	if err := nb.Validate(); err != nil {
		return 0, err
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("create booking: %w", err)
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("create booking: begin: %w", err)
	}
	defer endFn(&err)

	capacity, err := readCapacity(conn, nb.Service)
	if err != nil {
		return 0, err
	}

	used, err := countActive(conn, nb.Slot())
	if err != nil {
		return 0, fmt.Errorf("create booking: %w", err)
	}
	if used >= capacity {
		return 0, model.ErrSlotFull
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO bookings (created_at, status, service, date, time, name, phone, tg_user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, &sqlitex.ExecOptions{
		Args: []any{
			time.Now().UTC().Format(time.RFC3339Nano),
			string(model.BookingStatusActive),
			nb.Service,
			nb.Date,
			nb.Time,
			nb.Name,
			nb.Phone,
			nullString(nb.TgUserID),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	id = conn.LastInsertRowID()
	r.logger.Debug("Booking inserted",
		zap.Int64("booking_id", id),
		zap.String("slot", nb.Slot().String()),
		zap.Int("used", used+1),
		zap.Int("capacity", capacity),
	)

	return id, nil
}

// CancelBooking переводит запись в cancelled. Повторная отмена ничего не меняет.
func (r *BookingRepository) CancelBooking(ctx context.Context, id int64) (booking *model.Booking, changed bool, err error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("cancel booking: %w", err)
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, false, fmt.Errorf("cancel booking: begin: %w", err)
	}
	defer endFn(&err)

	booking, err = getBooking(conn, id)
	if err != nil {
		return nil, false, err
	}
	if !booking.IsActive() {
		return booking, false, nil
	}

	err = sqlitex.Execute(conn, `UPDATE bookings SET status = ? WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{string(model.BookingStatusCancelled), id},
	})
	if err != nil {
		return nil, false, fmt.Errorf("cancel booking %d: %w", id, err)
	}

	booking.Status = model.BookingStatusCancelled
	return booking, true, nil
}

// CountActive количество активных записей слота
func (r *BookingRepository) CountActive(ctx context.Context, key model.SlotKey) (int, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	defer r.pool.Put(conn)

	return countActive(conn, key)
}

// CountActiveByTime количество активных записей по времени за день одним запросом
func (r *BookingRepository) CountActiveByTime(ctx context.Context, service, date string) (map[string]int, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active by time: %w", err)
	}
	defer r.pool.Put(conn)

	counts := make(map[string]int)
	err = sqlitex.Execute(conn, `
		SELECT time, COUNT(*)
		FROM bookings
		WHERE service = ? AND date = ? AND status = 'active'
		GROUP BY time
	`, &sqlitex.ExecOptions{
		Args: []any{service, date},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			counts[stmt.ColumnText(0)] = stmt.ColumnInt(1)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("count active by time: %w", err)
	}

	return counts, nil
}

// ActiveBookingsForSlot активные записи слота по возрастанию id
func (r *BookingRepository) ActiveBookingsForSlot(ctx context.Context, key model.SlotKey) ([]*model.Booking, error) {
	return r.list(ctx, "active bookings for slot", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE service = ? AND date = ? AND time = ? AND status = 'active'
		ORDER BY id
	`, key.Service, key.Date, key.Time)
}

// AttachEventID проставляет id события всем активным записям слота
func (r *BookingRepository) AttachEventID(ctx context.Context, key model.SlotKey, eventID string) (int64, error) {
	return r.exec(ctx, "attach event id", `
		UPDATE bookings SET calendar_event_id = ?
		WHERE service = ? AND date = ? AND time = ? AND status = 'active'
	`, eventID, key.Service, key.Date, key.Time)
}

// ClearEventID снимает id события со всех записей слота
func (r *BookingRepository) ClearEventID(ctx context.Context, key model.SlotKey) (int64, error) {
	return r.exec(ctx, "clear event id", `
		UPDATE bookings SET calendar_event_id = NULL
		WHERE service = ? AND date = ? AND time = ? AND calendar_event_id IS NOT NULL
	`, key.Service, key.Date, key.Time)
}

// GetByID получает запись по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	defer r.pool.Put(conn)

	return getBooking(conn, id)
}

// ListRecent последние записи, новые первыми
func (r *BookingRepository) ListRecent(ctx context.Context, limit int) ([]*model.Booking, error) {
	return r.list(ctx, "list recent bookings", `
		SELECT `+bookingColumns+`
		FROM bookings
		ORDER BY id DESC
		LIMIT ?
	`, limit)
}

// ListActiveByUser активные записи пользователя Telegram
func (r *BookingRepository) ListActiveByUser(ctx context.Context, tgUserID string) ([]*model.Booking, error) {
	return r.list(ctx, "list bookings by user", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tg_user_id = ? AND status = 'active'
		ORDER BY id
	`, tgUserID)
}

// SlotsPendingSync слоты, у которых календарь отстаёт от журнала
func (r *BookingRepository) SlotsPendingSync(ctx context.Context, limit int) ([]model.SlotKey, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("slots pending sync: %w", err)
	}
	defer r.pool.Put(conn)

	var keys []model.SlotKey
	err = sqlitex.Execute(conn, `
		SELECT service, date, time
		FROM bookings
		GROUP BY service, date, time
		HAVING SUM(CASE WHEN status = 'active' AND calendar_event_id IS NULL THEN 1 ELSE 0 END) > 0
		    OR (SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END) = 0
		        AND SUM(CASE WHEN calendar_event_id IS NOT NULL THEN 1 ELSE 0 END) > 0)
		ORDER BY MIN(id)
		LIMIT ?
	`, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			keys = append(keys, model.SlotKey{
				Service: stmt.ColumnText(0),
				Date:    stmt.ColumnText(1),
				Time:    stmt.ColumnText(2),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("slots pending sync: %w", err)
	}

	return keys, nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer r.pool.Put(conn)

	var bookings []*model.Booking
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			booking, err := scanBooking(stmt)
			if err != nil {
				return err
			}
			bookings = append(bookings, booking)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func (r *BookingRepository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int64(conn.Changes()), nil
}

func readCapacity(conn *sqlite.Conn, service string) (int, error) {
	raw, ok, err := getSetting(conn, model.CapacitySettingKey(service))
	if err != nil {
		return 0, fmt.Errorf("read capacity: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", model.ErrUnknownService, service)
	}

	capacity, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse capacity of %s: %w", service, err)
	}
	return capacity, nil
}

func countActive(conn *sqlite.Conn, key model.SlotKey) (int, error) {
	var count int
	err := sqlitex.Execute(conn, `
		SELECT COUNT(*)
		FROM bookings
		WHERE service = ? AND date = ? AND time = ? AND status = 'active'
	`, &sqlitex.ExecOptions{
		Args: []any{key.Service, key.Date, key.Time},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count active %s: %w", key, err)
	}
	return count, nil
}

func getBooking(conn *sqlite.Conn, id int64) (*model.Booking, error) {
	var booking *model.Booking
	err := sqlitex.Execute(conn, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var err error
			booking, err = scanBooking(stmt)
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	if booking == nil {
		return nil, model.ErrBookingNotFound
	}
	return booking, nil
}

func scanBooking(stmt *sqlite.Stmt) (*model.Booking, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(1))
	if err != nil {
		return nil, fmt.Errorf("scan booking created_at: %w", err)
	}

	return &model.Booking{
		ID:              stmt.ColumnInt64(0),
		CreatedAt:       createdAt,
		Status:          model.BookingStatus(stmt.ColumnText(2)),
		Service:         stmt.ColumnText(3),
		Date:            stmt.ColumnText(4),
		Time:            stmt.ColumnText(5),
		Name:            stmt.ColumnText(6),
		Phone:           stmt.ColumnText(7),
		TgUserID:        columnNullText(stmt, 8),
		CalendarEventID: columnNullText(stmt, 9),
	}, nil
}

func columnNullText(stmt *sqlite.Stmt, col int) *string {
	if stmt.ColumnType(col) == sqlite.TypeNull {
		return nil
	}
	s := stmt.ColumnText(col)
	return &s
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
