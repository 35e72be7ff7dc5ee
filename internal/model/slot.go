package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"
)

// SlotKey идентифицирует одну единицу вместимости: услуга + дата + время
type SlotKey struct {
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// String используется как ключ advisory-блокировки и в логах
func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s %s", k.Service, k.Date, k.Time)
}

// Validate проверяет фиксированный формат даты и времени
func (k SlotKey) Validate() error {
	if strings.TrimSpace(k.Service) == "" {
		return ErrUnknownService
	}
	if _, err := time.Parse(DateLayout, k.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidSlot, k.Date)
	}
	if _, err := time.Parse(TimeLayout, k.Time); err != nil {
		return fmt.Errorf("%w: time %q", ErrInvalidSlot, k.Time)
	}
	return nil
}

// Start возвращает начало слота в указанной таймзоне
func (k SlotKey) Start(loc *time.Location) (time.Time, error) {
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, k.Date+" "+k.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %s", ErrInvalidSlot, k.Date, k.Time)
	}
	return start, nil
}

// SlotGrid параметры рабочей сетки слотов
type SlotGrid struct {
	StartHour   int `json:"start_hour"`
	EndHour     int `json:"end_hour"`
	SlotMinutes int `json:"slot_minutes"`
}

// SlotDuration длительность одного слота
func (g SlotGrid) SlotDuration() time.Duration {
	return time.Duration(g.SlotMinutes) * time.Minute
}

// Times возвращает все времена сетки по возрастанию.
// Последний слот начинается ровно в EndHour:00.
func (g SlotGrid) Times() []string {
	if g.SlotMinutes <= 0 {
		return nil
	}

	var times []string
	last := g.EndHour * 60
	for m := g.StartHour * 60; m <= last; m += g.SlotMinutes {
		times = append(times, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return times
}

// Contains проверяет что время лежит на сетке
func (g SlotGrid) Contains(t string) bool {
	for _, candidate := range g.Times() {
		if candidate == t {
			return true
		}
	}
	return false
}
