package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/slot_booking_bot/internal/app"
	"github.com/Freeeeeet/slot_booking_bot/internal/calendar"
	"github.com/Freeeeeet/slot_booking_bot/internal/config"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/Freeeeeet/slot_booking_bot/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCalendarID = "bookings@test"

// recordingNotifier запоминает уведомления
type recordingNotifier struct {
	mu        sync.Mutex
	created   []*model.Booking
	cancelled []*model.Booking
	failures  []*service.MirrorSyncError
}

func (n *recordingNotifier) BookingCreated(_ context.Context, b *model.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, b)
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, b *model.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b)
}

func (n *recordingNotifier) MirrorFailed(_ context.Context, err *service.MirrorSyncError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
}

func (n *recordingNotifier) Cancelled() []*model.Booking {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*model.Booking(nil), n.cancelled...)
}

func (n *recordingNotifier) Failures() []*service.MirrorSyncError {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*service.MirrorSyncError(nil), n.failures...)
}

type fixture struct {
	storage      *app.Storage
	calendar     *calendar.MemoryClient
	notifier     *recordingNotifier
	policy       *service.CapacityPolicy
	availability *service.AvailabilityService
	sync         *service.CalendarSync
	reservations *service.ReservationService
	location     *time.Location
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithClient(t, calendar.NewMemoryClient(), time.Second)
}

func newFixtureWithClient(t *testing.T, client calendar.Client, timeout time.Duration) *fixture {
	t.Helper()

	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "bookings.db"),
	}
	storage, err := app.OpenStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	loc, err := time.LoadLocation("Europe/Minsk")
	require.NoError(t, err)

	logger := zap.NewNop()
	notifier := &recordingNotifier{}
	policy := service.NewCapacityPolicy(storage.Settings)
	availability := service.NewAvailabilityService(policy, storage.Bookings)
	calendarSync := service.NewCalendarSync(client, storage.Bookings, policy, service.CalendarSyncConfig{
		CalendarID: testCalendarID,
		Location:   loc,
		Timeout:    timeout,
	}, logger)

	f := &fixture{
		storage:      storage,
		notifier:     notifier,
		policy:       policy,
		availability: availability,
		sync:         calendarSync,
		reservations: service.NewReservationService(storage.Bookings, policy, availability, calendarSync, notifier, logger),
		location:     loc,
	}
	if mem, ok := client.(*calendar.MemoryClient); ok {
		f.calendar = mem
	}
	return f
}

func (f *fixture) setCapacity(t *testing.T, service string, capacity string) {
	t.Helper()
	require.NoError(t, f.storage.Settings.Set(context.Background(), model.CapacitySettingKey(service), capacity))
}

func booking(service, date, slotTime, name, phone string) model.NewBooking {
	return model.NewBooking{Service: service, Date: date, Time: slotTime, Name: name, Phone: phone}
}
