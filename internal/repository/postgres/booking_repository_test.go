package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/Freeeeeet/slot_booking_bot/internal/app"
	"github.com/Freeeeeet/slot_booking_bot/internal/config"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Тесты идут только против живой базы: TEST_PG_DSN=postgres://...
func openTestStorage(t *testing.T) *app.Storage {
	t.Helper()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN is not set")
	}

	cfg := &config.Config{DBDriver: config.DriverPostgres, DBDSN: dsn}
	storage, err := app.OpenStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

// uniqueService регистрирует отдельную услугу, чтобы прогоны не мешали друг другу
func uniqueService(t *testing.T, storage *app.Storage, capacity string) string {
	t.Helper()

	service := "test-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	require.NoError(t, storage.Settings.Set(context.Background(), model.CapacitySettingKey(service), capacity))
	return service
}

func TestPostgresCreateBookingConcurrent(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()
	service := uniqueService(t, storage, "2")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		full      int
	)
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.Bookings.CreateBooking(ctx, model.NewBooking{
				Service: service, Date: "18.02.2026", Time: "10:00", Name: "Анна", Phone: "+375291234567",
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, model.ErrSlotFull) {
				full++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, successes)
	assert.Equal(t, 5, full)
}

func TestPostgresCancelAndEventID(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()
	service := uniqueService(t, storage, "1")
	key := model.SlotKey{Service: service, Date: "18.02.2026", Time: "11:00"}

	id, err := storage.Bookings.CreateBooking(ctx, model.NewBooking{
		Service: key.Service, Date: key.Date, Time: key.Time, Name: "Анна", Phone: "+375291234567",
	})
	require.NoError(t, err)

	n, err := storage.Bookings.AttachEventID(ctx, key, "evt-pg")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	booking, changed, err := storage.Bookings.CancelBooking(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.BookingStatusCancelled, booking.Status)
	require.NotNil(t, booking.CalendarEventID)

	count, err := storage.Bookings.CountActive(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err = storage.Bookings.ClearEventID(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = storage.Bookings.GetByID(ctx, -1)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}
