package state

import "github.com/Freeeeeet/slot_booking_bot/internal/model"

// UserState представляет текущий шаг пользователя в диалоге записи
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	StateBookingService UserState = "booking_service"
	StateBookingDate    UserState = "booking_date" // Кнопки или ручной ввод ДД.ММ.ГГГГ
	StateBookingTime    UserState = "booking_time"
	StateBookingName    UserState = "booking_name"
	StateBookingPhone   UserState = "booking_phone"
	StateBookingConfirm UserState = "booking_confirm"
	StateBookingSubmit  UserState = "booking_submit" // Запись уже отправлена в журнал
)

// Draft накопленные ответы диалога записи
type Draft struct {
	Service string
	Date    string
	Time    string
	Name    string
	Phone   string
}

// HasContacts проверяет что имя и телефон уже введены
func (d Draft) HasContacts() bool {
	return d.Name != "" && d.Phone != ""
}

// NewBooking превращает черновик в запрос на запись
func (d Draft) NewBooking(tgUserID string) model.NewBooking {
	return model.NewBooking{
		Service:  d.Service,
		Date:     d.Date,
		Time:     d.Time,
		Name:     d.Name,
		Phone:    d.Phone,
		TgUserID: &tgUserID,
	}
}

// Session состояние диалога одного пользователя
type Session struct {
	State UserState
	Draft Draft
}
