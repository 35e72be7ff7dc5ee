package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	askService = "Выберите услугу:"
	askDate    = "Выберите дату:"
	askDateRaw = "Введите дату в формате ДД.ММ.ГГГГ (например 18.02.2026):"
	askTime    = "Выберите время:"
	askName    = "Как вас зовут?"
	askPhone   = "Оставьте номер телефона для связи:"

	restartHint = "Начните запись заново: /book"
)

// reply редактирует сообщение с кнопками, если оно есть, иначе отправляет новое
func (h *Handlers) reply(ctx context.Context, b Sender, chatID int64, msg *models.Message, text string, kb *models.InlineKeyboardMarkup) {
	if msg != nil {
		h.editMessage(ctx, b, msg, text, kb)
		return
	}
	h.sendMessage(ctx, b, chatID, text, kb)
}

// startBooking шаг 1: выбор услуги
func (h *Handlers) startBooking(ctx context.Context, b Sender, chatID, telegramID int64, msg *models.Message) {
	services, err := h.reservations.Services(ctx)
	if err != nil {
		h.logger.Error("Failed to list services", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}
	if len(services) == 0 {
		h.reply(ctx, b, chatID, msg, "😔 Запись временно недоступна.", nil)
		return
	}

	h.stateManager.Start(telegramID, state.StateBookingService)
	h.logger.Info("Booking dialogue started", zap.Int64("telegram_id", telegramID))

	h.reply(ctx, b, chatID, msg, askService, servicesKeyboard(services))
}

// handleServicePick шаг 2: услуга выбрана, спрашиваем дату
func (h *Handlers) handleServicePick(ctx context.Context, b Sender, callback *models.CallbackQuery, msg *models.Message, service string) {
	services, err := h.reservations.Services(ctx)
	if err != nil {
		h.logger.Error("Failed to list services", zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте позже.", true)
		return
	}
	known := slices.ContainsFunc(services, func(s model.Service) bool { return s.Key == service })
	if !known {
		h.answer(ctx, b, callback.ID, "Не понял услугу. Выберите из списка.", false)
		return
	}

	h.stateManager.Advance(callback.From.ID, state.StateBookingDate, func(d *state.Draft) {
		d.Service = service
	})
	h.answer(ctx, b, callback.ID, "", false)
	h.editMessage(ctx, b, msg, askDate, dateKeyboard())
}

// handleDatePick кнопки сегодня/завтра/выбрать дату
func (h *Handlers) handleDatePick(ctx context.Context, b Sender, callback *models.CallbackQuery, msg *models.Message, choice string) {
	if choice == DatePick {
		h.stateManager.Advance(callback.From.ID, state.StateBookingDate, nil)
		h.answer(ctx, b, callback.ID, "", false)
		h.editMessage(ctx, b, msg, askDateRaw, nil)
		return
	}

	date, ok := ResolveDate(choice, h.now(), h.location)
	if !ok {
		h.answer(ctx, b, callback.ID, "Неизвестный выбор даты.", false)
		return
	}

	h.answer(ctx, b, callback.ID, "", false)
	h.offerTimes(ctx, b, msg.Chat.ID, callback.From.ID, msg, date, "")
}

// handleDateText ручной ввод даты
func (h *Handlers) handleDateText(ctx context.Context, b Sender, update *models.Update) {
	chatID := update.Message.Chat.ID

	date, err := ParseDate(update.Message.Text, h.now(), h.location)
	switch {
	case errors.Is(err, errDateInPast):
		h.sendError(ctx, b, chatID, "Эта дата уже прошла. Введите другую дату:")
		return
	case err != nil:
		h.sendError(ctx, b, chatID, "Формат даты должен быть ДД.ММ.ГГГГ. Попробуйте ещё раз:")
		return
	}

	h.offerTimes(ctx, b, chatID, update.Message.From.ID, nil, date, "")
}

// offerTimes шаг 3: клавиатура из реально свободных времён.
// prefix добавляется перед вопросом, например после заполненного слота.
func (h *Handlers) offerTimes(ctx context.Context, b Sender, chatID, telegramID int64, msg *models.Message, date, prefix string) {
	session := h.stateManager.Get(telegramID)
	if session.Draft.Service == "" {
		h.stateManager.ClearState(telegramID)
		h.reply(ctx, b, chatID, msg, restartHint, nil)
		return
	}

	times, err := h.reservations.AvailableTimes(ctx, session.Draft.Service, date)
	if err != nil {
		h.logger.Error("Failed to compute available times",
			zap.String("service", session.Draft.Service),
			zap.String("date", date),
			zap.Error(err))
		h.stateManager.ClearState(telegramID)
		h.reply(ctx, b, chatID, msg, "❌ Не удалось получить расписание. "+restartHint, nil)
		return
	}
	times = FilterPastTimes(date, times, h.now(), h.location)

	if len(times) == 0 {
		h.stateManager.Advance(telegramID, state.StateBookingDate, nil)
		h.reply(ctx, b, chatID, msg, prefix+"😔 На "+date+" свободных мест нет. "+askDate, dateKeyboard())
		return
	}

	h.stateManager.Advance(telegramID, state.StateBookingTime, func(d *state.Draft) {
		d.Date = date
		d.Time = ""
	})
	h.reply(ctx, b, chatID, msg, prefix+"📅 "+date+"\n"+askTime, timeKeyboard(times))
}

// handleTimePick шаг 4: время выбрано. Если контакты уже есть, сразу к подтверждению.
func (h *Handlers) handleTimePick(ctx context.Context, b Sender, callback *models.CallbackQuery, msg *models.Message, slotTime string) {
	if _, err := time.Parse(model.TimeLayout, slotTime); err != nil {
		h.answer(ctx, b, callback.ID, "Неизвестное время.", false)
		return
	}

	telegramID := callback.From.ID
	draft := h.stateManager.Get(telegramID).Draft

	h.answer(ctx, b, callback.ID, "", false)
	if draft.HasContacts() {
		session := h.stateManager.Advance(telegramID, state.StateBookingConfirm, func(d *state.Draft) {
			d.Time = slotTime
		})
		h.editMessage(ctx, b, msg, FormatConfirm(session.Draft), confirmKeyboard())
		return
	}

	h.stateManager.Advance(telegramID, state.StateBookingName, func(d *state.Draft) {
		d.Time = slotTime
	})
	h.editMessage(ctx, b, msg, fmt.Sprintf("⏰ %s %s\n\n%s", draft.Date, slotTime, askName), nil)
}

// handleNameText шаг 5: имя
func (h *Handlers) handleNameText(ctx context.Context, b Sender, update *models.Update) {
	name, err := ValidateName(update.Message.Text)
	if errors.Is(err, errNameTooLong) {
		h.sendError(ctx, b, update.Message.Chat.ID, fmt.Sprintf("Имя не длиннее %d символов, попробуйте ещё раз:", NameMaxLength))
		return
	}
	if err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "Слишком коротко. Напишите имя чуть понятнее 🙂")
		return
	}

	h.stateManager.Advance(update.Message.From.ID, state.StateBookingPhone, func(d *state.Draft) {
		d.Name = name
	})
	h.sendMessage(ctx, b, update.Message.Chat.ID, askPhone, nil)
}

// handlePhoneText шаг 6: телефон, затем подтверждение
func (h *Handlers) handlePhoneText(ctx context.Context, b Sender, update *models.Update) {
	phone, err := ValidatePhone(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "Похоже, номер некорректный. Введите телефон ещё раз:")
		return
	}

	session := h.stateManager.Advance(update.Message.From.ID, state.StateBookingConfirm, func(d *state.Draft) {
		d.Phone = phone
	})
	h.sendMessage(ctx, b, update.Message.Chat.ID, FormatConfirm(session.Draft), confirmKeyboard())
}

// handleConfirm шаг 7: запись в журнал. Заполненный слот возвращает к выбору времени.
func (h *Handlers) handleConfirm(ctx context.Context, b Sender, callback *models.CallbackQuery, msg *models.Message, choice string) {
	telegramID := callback.From.ID

	// Повторное нажатие, пока первая запись в работе, сюда не пройдёт
	session, ok := h.stateManager.Transition(telegramID, state.StateBookingConfirm, state.StateBookingSubmit)
	if !ok {
		h.answer(ctx, b, callback.ID, restartHint, true)
		return
	}

	if choice != ConfirmYes {
		h.stateManager.ClearState(telegramID)
		h.answer(ctx, b, callback.ID, "", false)
		h.editMessage(ctx, b, msg, "❌ Запись отменена.", nil)
		return
	}

	draft := session.Draft
	outcome, err := h.reservations.Reserve(ctx, draft.NewBooking(strconv.FormatInt(telegramID, 10)))
	if err != nil {
		if isInputError(err) {
			h.logger.Warn("Booking rejected", zap.Int64("telegram_id", telegramID), zap.Error(err))
			h.stateManager.ClearState(telegramID)
			h.answer(ctx, b, callback.ID, "", false)
			h.editMessage(ctx, b, msg, "❌ Не удалось записаться: проверьте данные. "+restartHint, nil)
			return
		}
		h.logger.Error("Failed to reserve", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.stateManager.Transition(telegramID, state.StateBookingSubmit, state.StateBookingConfirm)
		h.answer(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте ещё раз.", true)
		return
	}

	h.answer(ctx, b, callback.ID, "", false)

	if !outcome.Booked() {
		h.logger.Info("Slot full on confirm",
			zap.Int64("telegram_id", telegramID),
			zap.String("slot", draft.NewBooking("").Slot().String()))
		h.offerTimes(ctx, b, msg.Chat.ID, telegramID, msg, draft.Date, "😔 На "+draft.Time+" мест больше нет.\n")
		return
	}

	h.stateManager.ClearState(telegramID)
	h.editMessage(ctx, b, msg, fmt.Sprintf(
		"✅ Вы записаны!\n\n"+
			"🏷 %s\n"+
			"📅 %s ⏰ %s\n\n"+
			"Номер записи: #%d\n"+
			"Отменить запись можно в /mybookings",
		ServiceLabel(draft.Service), draft.Date, draft.Time, outcome.BookingID,
	), nil)
}

// handleCancelBookingPick спрашивает подтверждение отмены записи
func (h *Handlers) handleCancelBookingPick(ctx context.Context, b Sender, callback *models.CallbackQuery, msg *models.Message, id int64) {
	booking, ok := h.ownBooking(ctx, b, callback, id)
	if !ok {
		return
	}
	if !booking.IsActive() {
		h.answer(ctx, b, callback.ID, "Запись уже отменена.", false)
		return
	}

	h.answer(ctx, b, callback.ID, "", false)
	h.editMessage(ctx, b, msg, "Отменить запись?\n\n"+FormatBooking(booking), confirmCancelKeyboard(id))
}

// handleConfirmCancel отменяет запись клиента
func (h *Handlers) handleConfirmCancel(ctx context.Context, b Sender, callback *models.CallbackQuery, msg *models.Message, id int64) {
	if _, ok := h.ownBooking(ctx, b, callback, id); !ok {
		return
	}

	booking, err := h.reservations.Cancel(ctx, id)
	if err != nil {
		h.logger.Error("Failed to cancel booking", zap.Int64("booking_id", id), zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Не удалось отменить запись.", true)
		return
	}

	h.answer(ctx, b, callback.ID, "", false)
	h.editMessage(ctx, b, msg, "✅ Запись отменена.\n\n"+FormatBooking(booking), nil)
}

// ownBooking загружает запись и проверяет что она принадлежит нажавшему кнопку
func (h *Handlers) ownBooking(ctx context.Context, b Sender, callback *models.CallbackQuery, id int64) (*model.Booking, bool) {
	booking, err := h.reservations.Booking(ctx, id)
	if err != nil && !errors.Is(err, model.ErrBookingNotFound) {
		h.logger.Error("Failed to get booking", zap.Int64("booking_id", id), zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте позже.", true)
		return nil, false
	}

	owner := strconv.FormatInt(callback.From.ID, 10)
	if err != nil || booking.TgUserID == nil || *booking.TgUserID != owner {
		h.answer(ctx, b, callback.ID, "❌ Бронирование не найдено", true)
		return nil, false
	}
	return booking, true
}

func isInputError(err error) bool {
	return errors.Is(err, model.ErrUnknownService) ||
		errors.Is(err, model.ErrInvalidSlot) ||
		errors.Is(err, model.ErrInvalidBooking)
}
