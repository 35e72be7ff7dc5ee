package handlers

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
)

var serviceLabels = map[string]string{
	"padel-group": "🏓 Падел (групповая)",
	"padel-ind":   "🏓 Падел (индивидуальная)",
	"fitness":     "🏋️ Фитнес",
}

// ServiceLabel человекочитаемое название услуги, для неизвестных ключей сам ключ
func ServiceLabel(service string) string {
	if label, ok := serviceLabels[service]; ok {
		return label
	}
	return service
}

// BookingStatusDisplay содержит emoji и текст для отображения статуса
type BookingStatusDisplay struct {
	Emoji string
	Text  string
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса записи
func GetBookingStatusDisplay(status model.BookingStatus) BookingStatusDisplay {
	switch status {
	case model.BookingStatusActive:
		return BookingStatusDisplay{"✅", "Активна"}
	case model.BookingStatusCancelled:
		return BookingStatusDisplay{"❌", "Отменена"}
	default:
		return BookingStatusDisplay{"❓", "Неизвестно"}
	}
}

// FormatBooking форматирует запись для клиента
func FormatBooking(booking *model.Booking) string {
	display := GetBookingStatusDisplay(booking.Status)

	return fmt.Sprintf(
		"%s Запись #%d\n"+
			"🏷 %s\n"+
			"📅 %s ⏰ %s\n"+
			"📊 Статус: %s",
		display.Emoji,
		booking.ID,
		ServiceLabel(booking.Service),
		booking.Date,
		booking.Time,
		display.Text,
	)
}

// FormatAdminBooking форматирует запись для администратора, с контактами
func FormatAdminBooking(booking *model.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆔 ID записи: %d\n", booking.ID)
	fmt.Fprintf(&sb, "🏷 Услуга: %s\n", ServiceLabel(booking.Service))
	fmt.Fprintf(&sb, "📅 Дата: %s\n", booking.Date)
	fmt.Fprintf(&sb, "⏰ Время: %s\n", booking.Time)
	fmt.Fprintf(&sb, "👤 Имя: %s\n", booking.Name)
	fmt.Fprintf(&sb, "📞 Телефон: %s", booking.Phone)
	if booking.TgUserID != nil {
		fmt.Fprintf(&sb, "\n👤 TG user_id: %s", *booking.TgUserID)
	}
	return sb.String()
}

// FormatConfirm текст шага подтверждения
func FormatConfirm(draft state.Draft) string {
	return fmt.Sprintf(
		"Проверьте запись:\n\n"+
			"🏷 Услуга: %s\n"+
			"📅 Дата: %s\n"+
			"⏰ Время: %s\n"+
			"👤 Имя: %s\n"+
			"📞 Телефон: %s\n\n"+
			"Всё верно?",
		ServiceLabel(draft.Service),
		draft.Date,
		draft.Time,
		draft.Name,
		draft.Phone,
	)
}

// FormatAdminOverview сводка для /admin
func FormatAdminOverview(services []model.Service, recent []*model.Booking) string {
	var sb strings.Builder

	sb.WriteString("🔧 Админ-панель\n\n⚙️ Услуги:\n")
	if len(services) == 0 {
		sb.WriteString("Услуги не настроены\n")
	}
	for _, s := range services {
		fmt.Fprintf(&sb, "• %s (вместимость: %d)\n", ServiceLabel(s.Key), s.Capacity)
	}

	fmt.Fprintf(&sb, "\n📋 Последние записи: %d\n\n", len(recent))
	for _, b := range recent {
		display := GetBookingStatusDisplay(b.Status)
		fmt.Fprintf(&sb, "%s ID %d: %s (%s)\n", display.Emoji, b.ID, b.Name, b.Phone)
		fmt.Fprintf(&sb, "  %s %s %s\n", b.Service, b.Date, b.Time)
	}

	return strings.TrimRight(sb.String(), "\n")
}
