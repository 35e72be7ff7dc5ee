package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"    // Занимает место в слоте
	BookingStatusCancelled BookingStatus = "cancelled" // Отменена, место освобождено
)

type Booking struct {
	ID              int64         `json:"id"`
	Status          BookingStatus `json:"status"`
	Service         string        `json:"service"`
	Date            string        `json:"date"` // ДД.ММ.ГГГГ
	Time            string        `json:"time"` // ЧЧ:ММ
	Name            string        `json:"name"`
	Phone           string        `json:"phone"`
	TgUserID        *string       `json:"tg_user_id"`        // nil для записей не из Telegram
	CalendarEventID *string       `json:"calendar_event_id"` // общий для всех записей слота
	CreatedAt       time.Time     `json:"created_at"`
}

// Slot возвращает ключ слота записи
func (b *Booking) Slot() SlotKey {
	return SlotKey{Service: b.Service, Date: b.Date, Time: b.Time}
}

// IsActive проверяет что запись занимает место
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusActive
}

// NewBooking входные данные для создания записи
type NewBooking struct {
	Service  string
	Date     string
	Time     string
	Name     string
	Phone    string
	TgUserID *string
}

// Slot возвращает ключ слота
func (n NewBooking) Slot() SlotKey {
	return SlotKey{Service: n.Service, Date: n.Date, Time: n.Time}
}

// Validate проверяет формат слота и контактные поля
func (n NewBooking) Validate() error {
	if err := n.Slot().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(n.Name) == "" {
		return ErrInvalidBooking
	}
	if strings.TrimSpace(n.Phone) == "" {
		return ErrInvalidBooking
	}
	return nil
}
