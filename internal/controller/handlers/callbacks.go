package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Шаг диалога, на котором допустима каждая кнопка
var callbackStates = map[string]state.UserState{
	CallbackService: state.StateBookingService,
	CallbackTime:    state.StateBookingTime,
}

// HandleCallbackQuery главный обработчик нажатий на inline кнопки
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b Sender, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	callback := update.CallbackQuery
	data := callback.Data

	h.logger.Debug("Callback received",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID))

	msg := callbackMessage(callback)
	if msg == nil {
		h.answer(ctx, b, callback.ID, "❌ Ошибка", false)
		return
	}

	switch {
	case data == CallbackNoop:
		h.answer(ctx, b, callback.ID, "", false)

	case data == CallbackBook:
		h.answer(ctx, b, callback.ID, "", false)
		h.startBooking(ctx, b, msg.Chat.ID, callback.From.ID, msg)

	case data == CallbackAbort:
		h.stateManager.ClearState(callback.From.ID)
		h.answer(ctx, b, callback.ID, "", false)
		h.editMessage(ctx, b, msg, "❌ Отменено", nil)

	case strings.HasPrefix(data, CallbackService):
		if h.expectState(ctx, b, callback, CallbackService) {
			h.handleServicePick(ctx, b, callback, msg, strings.TrimPrefix(data, CallbackService))
		}

	case strings.HasPrefix(data, CallbackDate):
		// Дату можно менять и со шага выбора времени
		current := h.stateManager.GetState(callback.From.ID)
		if current != state.StateBookingDate && current != state.StateBookingTime {
			h.answer(ctx, b, callback.ID, restartHint, true)
			return
		}
		h.handleDatePick(ctx, b, callback, msg, strings.TrimPrefix(data, CallbackDate))

	case strings.HasPrefix(data, CallbackTime):
		if h.expectState(ctx, b, callback, CallbackTime) {
			h.handleTimePick(ctx, b, callback, msg, strings.TrimPrefix(data, CallbackTime))
		}

	case strings.HasPrefix(data, CallbackConfirm):
		// Шаг проверяет и захватывает сам handleConfirm
		h.handleConfirm(ctx, b, callback, msg, strings.TrimPrefix(data, CallbackConfirm))

	case strings.HasPrefix(data, CallbackCancelBooking):
		if id, ok := h.parseID(ctx, b, callback, CallbackCancelBooking); ok {
			h.handleCancelBookingPick(ctx, b, callback, msg, id)
		}

	case strings.HasPrefix(data, CallbackConfirmCancel):
		if id, ok := h.parseID(ctx, b, callback, CallbackConfirmCancel); ok {
			h.handleConfirmCancel(ctx, b, callback, msg, id)
		}

	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		h.answer(ctx, b, callback.ID, "", false)
	}
}

// expectState отсекает нажатия на кнопки из старых сообщений
func (h *Handlers) expectState(ctx context.Context, b Sender, callback *models.CallbackQuery, prefix string) bool {
	if h.stateManager.GetState(callback.From.ID) == callbackStates[prefix] {
		return true
	}
	h.answer(ctx, b, callback.ID, restartHint, true)
	return false
}

// parseID извлекает ID из callback data, например "cancel_booking:123" -> 123
func (h *Handlers) parseID(ctx context.Context, b Sender, callback *models.CallbackQuery, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(callback.Data, prefix), 10, 64)
	if err != nil || id <= 0 {
		h.answer(ctx, b, callback.ID, "❌ Неверный формат данных", true)
		return 0, false
	}
	return id, true
}
