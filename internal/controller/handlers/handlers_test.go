package handlers

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/slot_booking_bot/internal/app"
	"github.com/Freeeeeet/slot_booking_bot/internal/calendar"
	"github.com/Freeeeeet/slot_booking_bot/internal/config"
	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/Freeeeeet/slot_booking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	clientID int64 = 100
	otherID  int64 = 200
	adminID  int64 = 900
)

type sentMessage struct {
	Text   string
	Markup *models.InlineKeyboardMarkup
	Edit   bool
}

// fakeSender запоминает всё, что бот отправил бы в Telegram
type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	answers  []*bot.AnswerCallbackQueryParams
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	markup, _ := params.ReplyMarkup.(*models.InlineKeyboardMarkup)
	s.messages = append(s.messages, sentMessage{Text: params.Text, Markup: markup})
	return &models.Message{ID: len(s.messages)}, nil
}

func (s *fakeSender) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	markup, _ := params.ReplyMarkup.(*models.InlineKeyboardMarkup)
	s.messages = append(s.messages, sentMessage{Text: params.Text, Markup: markup, Edit: true})
	return &models.Message{ID: params.MessageID}, nil
}

func (s *fakeSender) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, params)
	return true, nil
}

func (s *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages)
	return s.messages[len(s.messages)-1]
}

func (s *fakeSender) lastAnswer(t *testing.T) *bot.AnswerCallbackQueryParams {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.answers)
	return s.answers[len(s.answers)-1]
}

func callbacks(markup *models.InlineKeyboardMarkup) []string {
	if markup == nil {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, button := range row {
			out = append(out, button.CallbackData)
		}
	}
	return out
}

// slowCalendar держит запись в работе, пока приходят повторные нажатия
type slowCalendar struct {
	*calendar.MemoryClient
	delay time.Duration
}

func (c *slowCalendar) ListEventsInWindow(ctx context.Context, calendarID string, start, end time.Time) ([]calendar.Event, error) {
	time.Sleep(c.delay)
	return c.MemoryClient.ListEventsInWindow(ctx, calendarID, start, end)
}

type fakeReconciler struct{ calls int }

func (r *fakeReconciler) ReconcileOnce(context.Context) int {
	r.calls++
	return 2
}

type botFixture struct {
	handlers     *Handlers
	sender       *fakeSender
	reservations *service.ReservationService
	reconciler   *fakeReconciler
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	return newBotFixtureWithCalendar(t, calendar.NewMemoryClient())
}

func newBotFixtureWithCalendar(t *testing.T, client calendar.Client) *botFixture {
	t.Helper()

	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "bookings.db"),
	}
	logger := zap.NewNop()
	storage, err := app.OpenStorage(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	loc, err := time.LoadLocation("Europe/Minsk")
	require.NoError(t, err)

	policy := service.NewCapacityPolicy(storage.Settings)
	availability := service.NewAvailabilityService(policy, storage.Bookings)
	calendarSync := service.NewCalendarSync(client, storage.Bookings, policy, service.CalendarSyncConfig{
		CalendarID: "bot@test",
		Location:   loc,
		Timeout:    time.Second,
	}, logger)
	reservations := service.NewReservationService(
		storage.Bookings, policy, availability, calendarSync, service.NewLogNotifier(logger), logger,
	)

	reconciler := &fakeReconciler{}
	h := NewHandlers(reservations, reconciler, state.NewManager(), func(id int64) bool { return id == adminID }, loc, logger)
	h.now = func() time.Time { return time.Date(2026, 2, 17, 12, 30, 0, 0, loc) }

	return &botFixture{handlers: h, sender: &fakeSender{}, reservations: reservations, reconciler: reconciler}
}

func (f *botFixture) text(userID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   1,
		From: &models.User{ID: userID, FirstName: "Анна"},
		Chat: models.Chat{ID: userID},
		Text: text,
	}}
}

func (f *botFixture) press(userID int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-" + data,
		From: models.User{ID: userID},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 10, Chat: models.Chat{ID: userID}},
		},
	}}
}

func (f *botFixture) command(t *testing.T, userID int64, text string) {
	t.Helper()
	ctx := context.Background()
	update := f.text(userID, text)
	switch text {
	case "/book":
		f.handlers.HandleBook(ctx, f.sender, update)
	case "/mybookings":
		f.handlers.HandleMyBookings(ctx, f.sender, update)
	case "/cancel":
		f.handlers.HandleCancel(ctx, f.sender, update)
	case "/admin":
		f.handlers.HandleAdmin(ctx, f.sender, update)
	case "/resync":
		f.handlers.HandleResync(ctx, f.sender, update)
	default:
		f.handlers.HandleTextMessage(ctx, f.sender, update)
	}
}

func (f *botFixture) click(userID int64, data string) {
	f.handlers.HandleCallbackQuery(context.Background(), f.sender, f.press(userID, data))
}

func (f *botFixture) reserve(t *testing.T, userID int64, slotTime string) int64 {
	t.Helper()
	tg := strconv.FormatInt(userID, 10)
	outcome, err := f.reservations.Reserve(context.Background(), model.NewBooking{
		Service: "padel-group", Date: "18.02.2026", Time: slotTime,
		Name: "Гость", Phone: "+375290000000", TgUserID: &tg,
	})
	require.NoError(t, err)
	require.True(t, outcome.Booked())
	return outcome.BookingID
}

func TestBookingDialogueWithFullSlot(t *testing.T) {
	f := newBotFixture(t)
	sm := f.handlers.stateManager

	f.command(t, clientID, "/book")
	assert.Contains(t, callbacks(f.sender.last(t).Markup), CallbackService+"padel-group")
	assert.Equal(t, state.StateBookingService, sm.GetState(clientID))

	f.click(clientID, CallbackService+"padel-group")
	assert.Equal(t, askDate, f.sender.last(t).Text)

	f.click(clientID, CallbackDate+DateTomorrow)
	times := callbacks(f.sender.last(t).Markup)
	assert.Contains(t, times, CallbackTime+"10:00")
	assert.Contains(t, times, CallbackTime+"22:00")
	assert.Equal(t, state.StateBookingTime, sm.GetState(clientID))

	f.click(clientID, CallbackTime+"10:00")
	assert.Contains(t, f.sender.last(t).Text, askName)

	f.command(t, clientID, "А")
	assert.Equal(t, state.StateBookingName, sm.GetState(clientID))

	f.command(t, clientID, "Анна")
	assert.Equal(t, askPhone, f.sender.last(t).Text)

	f.command(t, clientID, "12-34")
	assert.Equal(t, state.StateBookingPhone, sm.GetState(clientID))

	f.command(t, clientID, "+375 29 123-45-67")
	assert.Contains(t, f.sender.last(t).Text, "Анна")
	assert.Equal(t, state.StateBookingConfirm, sm.GetState(clientID))

	// Пока клиент думал, слот заняли
	for i := 0; i < 3; i++ {
		f.reserve(t, otherID, "10:00")
	}

	f.click(clientID, CallbackConfirm+ConfirmYes)
	full := f.sender.last(t)
	assert.Contains(t, full.Text, "мест больше нет")
	assert.NotContains(t, callbacks(full.Markup), CallbackTime+"10:00")
	assert.Contains(t, callbacks(full.Markup), CallbackTime+"11:00")
	assert.Equal(t, state.StateBookingTime, sm.GetState(clientID))

	// Контакты уже есть, сразу подтверждение
	f.click(clientID, CallbackTime+"11:00")
	assert.Equal(t, state.StateBookingConfirm, sm.GetState(clientID))

	f.click(clientID, CallbackConfirm+ConfirmYes)
	assert.Contains(t, f.sender.last(t).Text, "Вы записаны")
	assert.Equal(t, state.StateNone, sm.GetState(clientID))

	mine, err := f.reservations.UserBookings(context.Background(), strconv.FormatInt(clientID, 10))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "11:00", mine[0].Time)
	assert.Equal(t, "+375 29 123-45-67", mine[0].Phone)
}

func TestManualDateInput(t *testing.T) {
	f := newBotFixture(t)

	f.command(t, clientID, "/book")
	f.click(clientID, CallbackService+"fitness")
	f.click(clientID, CallbackDate+DatePick)
	assert.Equal(t, askDateRaw, f.sender.last(t).Text)

	f.command(t, clientID, "2026-02-18")
	assert.Contains(t, f.sender.last(t).Text, "ДД.ММ.ГГГГ")

	f.command(t, clientID, "16.02.2026")
	assert.Contains(t, f.sender.last(t).Text, "уже прошла")
	assert.Equal(t, state.StateBookingDate, f.handlers.stateManager.GetState(clientID))

	f.command(t, clientID, "17.02.2026")
	times := callbacks(f.sender.last(t).Markup)
	assert.NotContains(t, times, CallbackTime+"12:00")
	assert.Contains(t, times, CallbackTime+"13:00")
	assert.Equal(t, state.StateBookingTime, f.handlers.stateManager.GetState(clientID))
}

func TestStaleButtonsAreRejected(t *testing.T) {
	f := newBotFixture(t)

	f.click(clientID, CallbackTime+"10:00")
	answer := f.sender.lastAnswer(t)
	assert.True(t, answer.ShowAlert)
	assert.Equal(t, restartHint, answer.Text)
	assert.Equal(t, state.StateNone, f.handlers.stateManager.GetState(clientID))

	f.click(clientID, CallbackConfirm+ConfirmYes)
	assert.True(t, f.sender.lastAnswer(t).ShowAlert)
}

func TestCancelCommandClearsDialogue(t *testing.T) {
	f := newBotFixture(t)

	f.command(t, clientID, "/cancel")
	assert.Contains(t, f.sender.last(t).Text, "Нет активных операций")

	f.command(t, clientID, "/book")
	f.command(t, clientID, "/cancel")
	assert.Contains(t, f.sender.last(t).Text, "Операция отменена")
	assert.Equal(t, state.StateNone, f.handlers.stateManager.GetState(clientID))
}

func TestMyBookingsAndCancel(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.command(t, clientID, "/mybookings")
	assert.Contains(t, f.sender.last(t).Text, "нет активных записей")

	id := f.reserve(t, clientID, "10:00")
	cancelData := CallbackCancelBooking + strconv.FormatInt(id, 10)
	confirmData := CallbackConfirmCancel + strconv.FormatInt(id, 10)

	f.command(t, clientID, "/mybookings")
	assert.Contains(t, callbacks(f.sender.last(t).Markup), cancelData)

	// Чужую запись отменить нельзя
	f.click(otherID, confirmData)
	assert.Equal(t, "❌ Бронирование не найдено", f.sender.lastAnswer(t).Text)
	booking, err := f.reservations.Booking(ctx, id)
	require.NoError(t, err)
	assert.True(t, booking.IsActive())

	f.click(clientID, cancelData)
	assert.Contains(t, callbacks(f.sender.last(t).Markup), confirmData)

	f.click(clientID, confirmData)
	assert.Contains(t, f.sender.last(t).Text, "Запись отменена")

	booking, err = f.reservations.Booking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, booking.Status)

	f.click(clientID, cancelData)
	assert.Equal(t, "Запись уже отменена.", f.sender.lastAnswer(t).Text)
}

func TestAdminCommands(t *testing.T) {
	f := newBotFixture(t)
	f.reserve(t, clientID, "10:00")

	f.command(t, clientID, "/admin")
	assert.Contains(t, f.sender.last(t).Text, "нет доступа")

	f.command(t, adminID, "/admin")
	overview := f.sender.last(t).Text
	assert.Contains(t, overview, "Падел (групповая) (вместимость: 3)")
	assert.Contains(t, overview, "padel-group 18.02.2026 10:00")

	f.command(t, clientID, "/resync")
	assert.Equal(t, 0, f.reconciler.calls)

	f.command(t, adminID, "/resync")
	assert.Equal(t, 1, f.reconciler.calls)
	assert.Contains(t, f.sender.last(t).Text, "Обновлено слотов: 2")
}

func TestDoubleConfirmBooksOnce(t *testing.T) {
	f := newBotFixtureWithCalendar(t, &slowCalendar{MemoryClient: calendar.NewMemoryClient(), delay: 300 * time.Millisecond})
	sm := f.handlers.stateManager

	f.command(t, clientID, "/book")
	f.click(clientID, CallbackService+"padel-group")
	f.click(clientID, CallbackDate+DateTomorrow)
	f.click(clientID, CallbackTime+"10:00")
	f.command(t, clientID, "Анна")
	f.command(t, clientID, "+375291234567")
	require.Equal(t, state.StateBookingConfirm, sm.GetState(clientID))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.click(clientID, CallbackConfirm+ConfirmYes)
		}()
	}
	wg.Wait()

	mine, err := f.reservations.UserBookings(context.Background(), strconv.FormatInt(clientID, 10))
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, state.StateNone, sm.GetState(clientID))

	times, err := f.reservations.AvailableTimes(context.Background(), "padel-group", "18.02.2026")
	require.NoError(t, err)
	assert.Contains(t, times, "10:00")
}
