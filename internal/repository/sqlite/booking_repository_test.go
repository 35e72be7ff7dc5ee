package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Freeeeeet/slot_booking_bot/internal/app"
	"github.com/Freeeeeet/slot_booking_bot/internal/config"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStorage(t *testing.T) *app.Storage {
	t.Helper()

	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "bookings.db"),
	}

	storage, err := app.OpenStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func newBooking(service, date, slotTime, name string) model.NewBooking {
	return model.NewBooking{
		Service: service,
		Date:    date,
		Time:    slotTime,
		Name:    name,
		Phone:   "+375291234567",
	}
}

func TestSeededSettings(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	caps, err := storage.Settings.List(ctx, model.CapacityKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"cap_padel_group": "3",
		"cap_padel_ind":   "1",
		"cap_fitness":     "10",
	}, caps)

	value, ok, err := storage.Settings.Get(ctx, model.SettingSlotMinutes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "60", value)

	_, ok, err = storage.Settings.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateBookingRespectsCapacity(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	id, err := storage.Bookings.CreateBooking(ctx, newBooking("padel-ind", "18.02.2026", "10:00", "Анна"))
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = storage.Bookings.CreateBooking(ctx, newBooking("padel-ind", "18.02.2026", "10:00", "Борис"))
	assert.ErrorIs(t, err, model.ErrSlotFull)

	// Другое время того же дня не затронуто
	_, err = storage.Bookings.CreateBooking(ctx, newBooking("padel-ind", "18.02.2026", "11:00", "Борис"))
	require.NoError(t, err)

	count, err := storage.Bookings.CountActive(ctx, model.SlotKey{Service: "padel-ind", Date: "18.02.2026", Time: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateBookingRejectsInput(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	_, err := storage.Bookings.CreateBooking(ctx, newBooking("yoga", "18.02.2026", "10:00", "Анна"))
	assert.ErrorIs(t, err, model.ErrUnknownService)

	_, err = storage.Bookings.CreateBooking(ctx, newBooking("fitness", "2026-02-18", "10:00", "Анна"))
	assert.ErrorIs(t, err, model.ErrInvalidSlot)

	_, err = storage.Bookings.CreateBooking(ctx, newBooking("fitness", "18.02.2026", "10:00", " "))
	assert.ErrorIs(t, err, model.ErrInvalidBooking)

	recent, err := storage.Bookings.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestCreateBookingConcurrent(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	const capacity = 3
	require.NoError(t, storage.Settings.Set(ctx, model.CapacitySettingKey("fitness"), fmt.Sprint(capacity)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		full      int
		other     []error
	)

	for i := 0; i < capacity+5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := storage.Bookings.CreateBooking(ctx, newBooking("fitness", "20.02.2026", "18:00", fmt.Sprintf("Клиент %d", i)))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, model.ErrSlotFull):
				full++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, capacity, successes)
	assert.Equal(t, 5, full)

	count, err := storage.Bookings.CountActive(ctx, model.SlotKey{Service: "fitness", Date: "20.02.2026", Time: "18:00"})
	require.NoError(t, err)
	assert.Equal(t, capacity, count)
}

func TestCancelBookingFreesCapacity(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	id, err := storage.Bookings.CreateBooking(ctx, newBooking("padel-ind", "18.02.2026", "12:00", "Анна"))
	require.NoError(t, err)

	cancelled, changed, err := storage.Bookings.CancelBooking(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	again, changed, err := storage.Bookings.CancelBooking(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.BookingStatusCancelled, again.Status)

	_, err = storage.Bookings.CreateBooking(ctx, newBooking("padel-ind", "18.02.2026", "12:00", "Борис"))
	require.NoError(t, err)

	_, _, err = storage.Bookings.CancelBooking(ctx, 9999)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestCountActiveByTime(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	for _, slotTime := range []string{"10:00", "10:00", "12:00"} {
		_, err := storage.Bookings.CreateBooking(ctx, newBooking("padel-group", "18.02.2026", slotTime, "Анна"))
		require.NoError(t, err)
	}
	_, err := storage.Bookings.CreateBooking(ctx, newBooking("padel-group", "19.02.2026", "10:00", "Анна"))
	require.NoError(t, err)

	counts, err := storage.Bookings.CountActiveByTime(ctx, "padel-group", "18.02.2026")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"10:00": 2, "12:00": 1}, counts)
}

func TestEventIDLifecycle(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()
	key := model.SlotKey{Service: "padel-group", Date: "18.02.2026", Time: "10:00"}

	first, err := storage.Bookings.CreateBooking(ctx, newBooking(key.Service, key.Date, key.Time, "Анна"))
	require.NoError(t, err)
	_, err = storage.Bookings.CreateBooking(ctx, newBooking(key.Service, key.Date, key.Time, "Борис"))
	require.NoError(t, err)

	pending, err := storage.Bookings.SlotsPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.SlotKey{key}, pending)

	n, err := storage.Bookings.AttachEventID(ctx, key, "evt-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	active, err := storage.Bookings.ActiveBookingsForSlot(ctx, key)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first, active[0].ID)
	for _, b := range active {
		require.NotNil(t, b.CalendarEventID)
		assert.Equal(t, "evt-1", *b.CalendarEventID)
	}

	pending, err = storage.Bookings.SlotsPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Все записи отменены, а событие ещё числится - слот снова требует синхронизации
	for _, b := range active {
		_, _, err := storage.Bookings.CancelBooking(ctx, b.ID)
		require.NoError(t, err)
	}
	pending, err = storage.Bookings.SlotsPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.SlotKey{key}, pending)

	n, err = storage.Bookings.ClearEventID(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	pending, err = storage.Bookings.SlotsPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListActiveByUser(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	userID := "424242"
	nb := newBooking("fitness", "18.02.2026", "10:00", "Анна")
	nb.TgUserID = &userID

	id, err := storage.Bookings.CreateBooking(ctx, nb)
	require.NoError(t, err)
	_, err = storage.Bookings.CreateBooking(ctx, newBooking("fitness", "18.02.2026", "11:00", "Гость"))
	require.NoError(t, err)

	mine, err := storage.Bookings.ListActiveByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].ID)
	require.NotNil(t, mine[0].TgUserID)
	assert.Equal(t, userID, *mine[0].TgUserID)
	assert.Nil(t, mine[0].CalendarEventID)
	assert.False(t, mine[0].CreatedAt.IsZero())

	got, err := storage.Bookings.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Анна", got.Name)

	_, err = storage.Bookings.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}
