package model

import "errors"

// Ошибки ядра бронирования
var (
	ErrUnknownService  = errors.New("unknown service")
	ErrUnsupportedGrid = errors.New("unsupported slot grid")
	ErrSlotFull        = errors.New("slot is full")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidBooking  = errors.New("name and phone are required")
	ErrInvalidSlot     = errors.New("invalid slot")
)
