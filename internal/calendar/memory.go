package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryClient календарь в памяти. Используется когда внешний календарь
// не настроен, и в тестах.
type MemoryClient struct {
	mu     sync.Mutex
	events map[string]map[string]storedEvent // calendarID -> eventID -> event
	seq    int
	err    error

	creates int
	updates int
	deletes int
}

// storedEvent хранит порядок вставки, им разрешаются равные времена начала
type storedEvent struct {
	Event
	order int
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{events: make(map[string]map[string]storedEvent)}
}

// SetError заставляет все последующие вызовы возвращать err (nil снимает сбой)
func (m *MemoryClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Writes количество создания, обновления и удаления событий
func (m *MemoryClient) Writes() (creates, updates, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.updates, m.deletes
}

// Events все события календаря по возрастанию начала
func (m *MemoryClient) Events(calendarID string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(calendarID, func(Event) bool { return true })
}

// Put кладёт событие как есть, например созданное вручную человеком
func (m *MemoryClient) Put(calendarID string, event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.calendar(calendarID)[event.ID] = storedEvent{Event: event, order: m.seq}
}

func (m *MemoryClient) ListEventsInWindow(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return nil, err
	}

	return m.sorted(calendarID, func(e Event) bool {
		return e.Start.Before(end) && e.End.After(start)
	}), nil
}

func (m *MemoryClient) CreateEvent(ctx context.Context, calendarID string, event Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return "", err
	}

	m.seq++
	event.ID = fmt.Sprintf("mem-%d", m.seq)
	m.calendar(calendarID)[event.ID] = storedEvent{Event: event, order: m.seq}
	m.creates++

	return event.ID, nil
}

func (m *MemoryClient) UpdateEvent(ctx context.Context, calendarID, eventID string, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return err
	}

	events := m.calendar(calendarID)
	stored, ok := events[eventID]
	if !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	event.ID = eventID
	events[eventID] = storedEvent{Event: event, order: stored.order}
	m.updates++

	return nil
}

func (m *MemoryClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return err
	}

	events := m.calendar(calendarID)
	if _, ok := events[eventID]; !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	delete(events, eventID)
	m.deletes++

	return nil
}

func (m *MemoryClient) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}

func (m *MemoryClient) calendar(calendarID string) map[string]storedEvent {
	events, ok := m.events[calendarID]
	if !ok {
		events = make(map[string]storedEvent)
		m.events[calendarID] = events
	}
	return events
}

func (m *MemoryClient) sorted(calendarID string, keep func(Event) bool) []Event {
	var matched []storedEvent
	for _, e := range m.events[calendarID] {
		if keep(e.Event) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Start.Equal(matched[j].Start) {
			return matched[i].order < matched[j].order
		}
		return matched[i].Start.Before(matched[j].Start)
	})

	out := make([]Event, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.Event)
	}
	return out
}
