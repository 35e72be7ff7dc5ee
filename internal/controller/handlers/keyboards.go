package handlers

import (
	"fmt"
	"strconv"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/keyboard"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

func abortButton() models.InlineKeyboardButton {
	return keyboard.Button("❌ Отмена", CallbackAbort)
}

func startKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(keyboard.Button("📅 Записаться на тренировку", CallbackBook)).
		Build()
}

func servicesKeyboard(services []model.Service) *models.InlineKeyboardMarkup {
	kb := keyboard.NewBuilder()
	for _, s := range services {
		kb.Row(keyboard.Button(ServiceLabel(s.Key), CallbackService+s.Key))
	}
	return kb.Row(abortButton()).Build()
}

func dateKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(
			keyboard.Button("Сегодня", CallbackDate+DateToday),
			keyboard.Button("Завтра", CallbackDate+DateTomorrow),
		).
		Row(keyboard.Button("Выбрать дату", CallbackDate+DatePick)).
		Row(abortButton()).
		Build()
}

func timeKeyboard(times []string) *models.InlineKeyboardMarkup {
	buttons := make([]models.InlineKeyboardButton, 0, len(times))
	for _, t := range times {
		buttons = append(buttons, keyboard.Button(t, CallbackTime+t))
	}
	return keyboard.NewBuilder().
		Grid(3, buttons...).
		Row(keyboard.Button("📅 Другая дата", CallbackDate+DatePick)).
		Row(abortButton()).
		Build()
}

func confirmKeyboard() *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(
			keyboard.Button("✅ Подтвердить", CallbackConfirm+ConfirmYes),
			keyboard.Button("❌ Отменить", CallbackConfirm+ConfirmNo),
		).
		Build()
}

func myBookingsKeyboard(bookings []*model.Booking) *models.InlineKeyboardMarkup {
	kb := keyboard.NewBuilder()
	for _, b := range bookings {
		kb.Row(keyboard.Button(
			fmt.Sprintf("❌ Отменить #%d (%s %s)", b.ID, b.Date, b.Time),
			CallbackCancelBooking+strconv.FormatInt(b.ID, 10),
		))
	}
	return kb.Build()
}

func confirmCancelKeyboard(id int64) *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(
			keyboard.Button("✅ Да, отменить", CallbackConfirmCancel+strconv.FormatInt(id, 10)),
			keyboard.Button("↩️ Нет", CallbackAbort),
		).
		Build()
}
