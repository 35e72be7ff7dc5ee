package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	h.logger.Info("HandleStart called", zap.Int64("telegram_id", update.Message.From.ID))

	text := "👋 Привет, " + update.Message.From.FirstName + "!\n\n" +
		"Здесь можно записаться на тренировку: падел или фитнес.\n\n" +
		"/book - Записаться\n" +
		"/mybookings - Мои записи\n" +
		"/help - Справка"

	h.sendMessage(ctx, b, update.Message.Chat.ID, text, startKeyboard())
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/book - Записаться на тренировку\n" +
		"/mybookings - Мои записи и отмена\n" +
		"/cancel - Прервать текущую запись\n" +
		"/help - Показать эту справку"

	if h.IsAdmin(update.Message.From.ID) {
		helpText += "\n\nДля администраторов:\n" +
			"/admin - Услуги и последние записи\n" +
			"/resync - Сверить календарь с журналом записей"
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleBook обрабатывает команду /book - начало диалога записи
func (h *Handlers) HandleBook(ctx context.Context, b Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	h.startBooking(ctx, b, update.Message.Chat.ID, update.Message.From.ID, nil)
}

// HandleMyBookings обрабатывает команду /mybookings
func (h *Handlers) HandleMyBookings(ctx context.Context, b Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	bookings, err := h.reservations.UserBookings(ctx, strconv.FormatInt(telegramID, 10))
	if err != nil {
		h.logger.Error("Failed to list user bookings", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	if len(bookings) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 У вас нет активных записей.\n\nЗаписаться: /book", nil)
		return
	}

	parts := make([]string, 0, len(bookings))
	for _, booking := range bookings {
		parts = append(parts, FormatBooking(booking))
	}
	text := "📅 Ваши записи:\n\n" + strings.Join(parts, "\n\n")

	h.sendMessage(ctx, b, update.Message.Chat.ID, text, myBookingsKeyboard(bookings))
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	h.logger.Debug("HandleTextMessage called",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	switch currentState {
	case state.StateNone:
		return
	case state.StateBookingDate:
		h.handleDateText(ctx, b, update)
	case state.StateBookingName:
		h.handleNameText(ctx, b, update)
	case state.StateBookingPhone:
		h.handlePhoneText(ctx, b, update)
	default:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "👆 Выберите вариант кнопкой выше или прервите запись: /cancel", nil)
	}
}
