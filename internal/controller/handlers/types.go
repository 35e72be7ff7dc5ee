package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender часть API бота, которой пользуются обработчики. *bot.Bot её реализует.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Reservations операции сервиса записи, доступные боту
type Reservations interface {
	Services(ctx context.Context) ([]model.Service, error)
	AvailableTimes(ctx context.Context, service, date string) ([]string, error)
	Reserve(ctx context.Context, nb model.NewBooking) (*model.Outcome, error)
	Booking(ctx context.Context, id int64) (*model.Booking, error)
	Cancel(ctx context.Context, id int64) (*model.Booking, error)
	RecentBookings(ctx context.Context, limit int) ([]*model.Booking, error)
	UserBookings(ctx context.Context, tgUserID string) ([]*model.Booking, error)
}

// Reconciler ручной запуск сверки календаря (/resync)
type Reconciler interface {
	ReconcileOnce(ctx context.Context) int
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	reservations Reservations
	reconciler   Reconciler
	stateManager *state.Manager
	isAdmin      func(telegramID int64) bool
	location     *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	reservations Reservations,
	reconciler Reconciler,
	stateManager *state.Manager,
	isAdmin func(telegramID int64) bool,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		reservations: reservations,
		reconciler:   reconciler,
		stateManager: stateManager,
		isAdmin:      isAdmin,
		location:     location,
		now:          time.Now,
		logger:       logger,
	}
}

// HandlerFunc обработчик, не завязанный на конкретный *bot.Bot
type HandlerFunc func(ctx context.Context, b Sender, update *models.Update)

// Adapt приводит HandlerFunc к сигнатуре go-telegram/bot
func Adapt(fn HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		fn(ctx, b, update)
	}
}
