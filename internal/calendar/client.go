// Package calendar содержит клиентов внешнего календаря, в котором
// зеркалируется занятость слотов.
package calendar

import (
	"context"
	"time"
)

// Event событие календаря в том виде, в каком его видит синхронизатор
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// Client операции над календарём, которые нужны синхронизатору
type Client interface {
	// ListEventsInWindow возвращает события, пересекающие [start, end), по возрастанию начала
	ListEventsInWindow(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, calendarID string, event Event) (string, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, event Event) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
