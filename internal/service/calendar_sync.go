package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/calendar"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"go.uber.org/zap"
)

// EventMarker первая строка описания каждого витринного события.
// Формат описания не меняется, иначе события старых версий перестанут находиться.
const EventMarker = "[RKBOOK]"

const slotLockStripes = 64

// MirrorSyncError сбой внешнего календаря при синхронизации слота
type MirrorSyncError struct {
	Op   string
	Slot model.SlotKey
	Err  error
}

func (e *MirrorSyncError) Error() string {
	return fmt.Sprintf("calendar %s for %s: %v", e.Op, e.Slot, e.Err)
}

func (e *MirrorSyncError) Unwrap() error {
	return e.Err
}

// CalendarSyncConfig параметры синхронизатора
type CalendarSyncConfig struct {
	CalendarID string
	Location   *time.Location
	Timeout    time.Duration // на каждый внешний вызов
}

// CalendarSync держит одно витринное событие на слот в соответствии с журналом
type CalendarSync struct {
	client calendar.Client
	ledger Ledger
	policy *CapacityPolicy
	cfg    CalendarSyncConfig
	logger *zap.Logger

	// Сверка одного слота не идёт параллельно, иначе два вызова
	// создадут два события
	locks [slotLockStripes]sync.Mutex
}

func NewCalendarSync(client calendar.Client, ledger Ledger, policy *CapacityPolicy, cfg CalendarSyncConfig, logger *zap.Logger) *CalendarSync {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CalendarSync{
		client: client,
		ledger: ledger,
		policy: policy,
		cfg:    cfg,
		logger: logger,
	}
}

// ReconcileSlot приводит событие слота к текущему состоянию журнала.
// Возвращает id события или пустую строку, если события нет.
// Делает не больше одной записи в календарь за вызов.
func (s *CalendarSync) ReconcileSlot(ctx context.Context, key model.SlotKey) (string, error) {
	lock := s.slotLock(key)
	lock.Lock()
	defer lock.Unlock()

	return s.reconcile(ctx, key)
}

// SyncSlot как ReconcileSlot, но id события записывается в журнал
// под той же блокировкой слота
func (s *CalendarSync) SyncSlot(ctx context.Context, key model.SlotKey) (string, error) {
	lock := s.slotLock(key)
	lock.Lock()
	defer lock.Unlock()

	eventID, err := s.reconcile(ctx, key)
	if err != nil {
		return "", err
	}

	if eventID == "" {
		if _, err := s.ledger.ClearEventID(ctx, key); err != nil {
			return "", fmt.Errorf("clear event id: %w", err)
		}
		return "", nil
	}

	if _, err := s.ledger.AttachEventID(ctx, key, eventID); err != nil {
		return "", fmt.Errorf("attach event id: %w", err)
	}
	return eventID, nil
}

func (s *CalendarSync) reconcile(ctx context.Context, key model.SlotKey) (string, error) {
	capacity, err := s.policy.Capacity(ctx, key.Service)
	if err != nil {
		return "", fmt.Errorf("reconcile slot: %w", err)
	}

	grid, err := s.policy.SlotGrid(ctx)
	if err != nil {
		return "", fmt.Errorf("reconcile slot: %w", err)
	}

	bookings, err := s.ledger.ActiveBookingsForSlot(ctx, key)
	if err != nil {
		return "", fmt.Errorf("reconcile slot: %w", err)
	}

	start, err := key.Start(s.cfg.Location)
	if err != nil {
		return "", fmt.Errorf("reconcile slot: %w", err)
	}
	end := start.Add(grid.SlotDuration())

	used := len(bookings)
	event := calendar.Event{
		Summary:     EventSummary(key, used, capacity),
		Description: EventDescription(key, used, capacity, bookings),
		Start:       start,
		End:         end,
		TimeZone:    s.cfg.Location.String(),
	}

	var existing []calendar.Event
	err = s.call(ctx, func(ctx context.Context) error {
		existing, err = s.client.ListEventsInWindow(ctx, s.cfg.CalendarID, start, end)
		return err
	})
	if err != nil {
		return "", &MirrorSyncError{Op: "list", Slot: key, Err: err}
	}

	target := FindSlotEvent(existing, key)

	switch {
	case used == 0 && target == nil:
		return "", nil

	case used == 0:
		err = s.call(ctx, func(ctx context.Context) error {
			return s.client.DeleteEvent(ctx, s.cfg.CalendarID, target.ID)
		})
		if err != nil {
			return "", &MirrorSyncError{Op: "delete", Slot: key, Err: err}
		}
		s.logger.Info("Calendar event deleted", zap.String("slot", key.String()), zap.String("event_id", target.ID))
		return "", nil

	case target != nil:
		err = s.call(ctx, func(ctx context.Context) error {
			return s.client.UpdateEvent(ctx, s.cfg.CalendarID, target.ID, event)
		})
		if err != nil {
			return "", &MirrorSyncError{Op: "update", Slot: key, Err: err}
		}
		s.logger.Info("Calendar event updated",
			zap.String("slot", key.String()),
			zap.String("event_id", target.ID),
			zap.String("summary", event.Summary),
		)
		return target.ID, nil

	default:
		var eventID string
		err = s.call(ctx, func(ctx context.Context) error {
			eventID, err = s.client.CreateEvent(ctx, s.cfg.CalendarID, event)
			return err
		})
		if err != nil {
			return "", &MirrorSyncError{Op: "create", Slot: key, Err: err}
		}
		s.logger.Info("Calendar event created",
			zap.String("slot", key.String()),
			zap.String("event_id", eventID),
			zap.String("summary", event.Summary),
		)
		return eventID, nil
	}
}

func (s *CalendarSync) slotLock(key model.SlotKey) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return &s.locks[h.Sum32()%slotLockStripes]
}

// call ограничивает внешний вызов таймаутом
func (s *CalendarSync) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return fn(callCtx)
}

// EventSummary заголовок витринного события: "padel-group 2/3"
func EventSummary(key model.SlotKey, used, capacity int) string {
	return fmt.Sprintf("%s %d/%d", key.Service, used, capacity)
}

// EventDescription описание витринного события с маркером и списком участников
func EventDescription(key model.SlotKey, used, capacity int, bookings []*model.Booking) string {
	var b strings.Builder
	b.WriteString(EventMarker + "\n")
	fmt.Fprintf(&b, "Service: %s\n", key.Service)
	fmt.Fprintf(&b, "Slot: %s %s\n", key.Date, key.Time)
	fmt.Fprintf(&b, "Used: %d/%d\n\n", used, capacity)
	b.WriteString("Participants:\n")
	for _, booking := range bookings {
		fmt.Fprintf(&b, "- %s (%s)\n", booking.Name, booking.Phone)
	}
	return b.String()
}

// FindSlotEvent первое событие окна, принадлежащее слоту.
// Услуга сравнивается по целой строке, чтобы "padel" не совпал с "padel-group".
func FindSlotEvent(events []calendar.Event, key model.SlotKey) *calendar.Event {
	serviceLine := "\nService: " + key.Service + "\n"
	slotLine := "\nSlot: " + key.Date + " " + key.Time + "\n"

	for i := range events {
		desc := events[i].Description
		if !strings.HasPrefix(desc, EventMarker) {
			continue
		}
		if strings.Contains(desc, serviceLine) && strings.Contains(desc, slotLine) {
			return &events[i]
		}
	}
	return nil
}
