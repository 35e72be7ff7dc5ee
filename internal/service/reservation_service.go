package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"go.uber.org/zap"
)

// SlotMirror приводит внешнее представление слота к журналу
// и записывает id события в журнал
type SlotMirror interface {
	SyncSlot(ctx context.Context, key model.SlotKey) (string, error)
}

// ReservationService точка входа для всех фронтендов.
// Журнал пишется первым и синхронно, календарь обновляется после фиксации
// и его сбой не отменяет запись.
type ReservationService struct {
	ledger       Ledger
	policy       *CapacityPolicy
	availability *AvailabilityService
	mirror       SlotMirror
	notifier     Notifier
	logger       *zap.Logger
}

func NewReservationService(
	ledger Ledger,
	policy *CapacityPolicy,
	availability *AvailabilityService,
	mirror SlotMirror,
	notifier Notifier,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		ledger:       ledger,
		policy:       policy,
		availability: availability,
		mirror:       mirror,
		notifier:     notifier,
		logger:       logger,
	}
}

// Reserve записывает клиента в слот.
// Заполненный слот возвращается как Outcome со статусом full и свободными временами того же дня.
func (s *ReservationService) Reserve(ctx context.Context, nb model.NewBooking) (*model.Outcome, error) {
	key := nb.Slot()

	id, err := s.ledger.CreateBooking(ctx, nb)
	if err != nil {
		if errors.Is(err, model.ErrSlotFull) {
			s.logger.Info("Slot is full", zap.String("slot", key.String()))
			return &model.Outcome{
				Status:       model.OutcomeFull,
				Alternatives: s.alternatives(ctx, nb.Service, nb.Date),
			}, nil
		}
		return nil, fmt.Errorf("reserve: %w", err)
	}

	s.logger.Info("Booking reserved",
		zap.Int64("booking_id", id),
		zap.String("slot", key.String()),
	)

	outcome := &model.Outcome{Status: model.OutcomeBooked, BookingID: id}

	eventID, err := s.syncSlot(ctx, key)
	if err != nil {
		s.reportSyncFailure(ctx, key, err)
	} else {
		outcome.EventID = eventID
	}

	s.notifier.BookingCreated(ctx, &model.Booking{
		ID:        id,
		Status:    model.BookingStatusActive,
		Service:   nb.Service,
		Date:      nb.Date,
		Time:      nb.Time,
		Name:      nb.Name,
		Phone:     nb.Phone,
		TgUserID:  nb.TgUserID,
		CreatedAt: time.Now().UTC(),
	})

	return outcome, nil
}

// Cancel отменяет запись и обновляет событие слота.
// Повторная отмена снова сверяет слот, но уведомление уходит только один раз.
func (s *ReservationService) Cancel(ctx context.Context, id int64) (*model.Booking, error) {
	booking, changed, err := s.ledger.CancelBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	if changed {
		s.logger.Info("Booking cancelled",
			zap.Int64("booking_id", id),
			zap.String("slot", booking.Slot().String()),
		)
	}

	if _, err := s.syncSlot(ctx, booking.Slot()); err != nil {
		s.reportSyncFailure(ctx, booking.Slot(), err)
	}

	if changed {
		s.notifier.BookingCancelled(ctx, booking)
	}

	return booking, nil
}

// Resync явная синхронизация слота (админ, фоновый сверщик). Ошибки возвращаются.
func (s *ReservationService) Resync(ctx context.Context, key model.SlotKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return s.syncSlot(ctx, key)
}

// AvailableTimes свободные времена услуги на дату
func (s *ReservationService) AvailableTimes(ctx context.Context, service, date string) ([]string, error) {
	return s.availability.AvailableTimes(ctx, service, date)
}

// Services известные услуги с вместимостью
func (s *ReservationService) Services(ctx context.Context) ([]model.Service, error) {
	return s.policy.Services(ctx)
}

// Booking получает запись по ID
func (s *ReservationService) Booking(ctx context.Context, id int64) (*model.Booking, error) {
	return s.ledger.GetByID(ctx, id)
}

// RecentBookings последние записи для администратора
func (s *ReservationService) RecentBookings(ctx context.Context, limit int) ([]*model.Booking, error) {
	return s.ledger.ListRecent(ctx, limit)
}

// UserBookings активные записи пользователя Telegram
func (s *ReservationService) UserBookings(ctx context.Context, tgUserID string) ([]*model.Booking, error) {
	return s.ledger.ListActiveByUser(ctx, tgUserID)
}

// PendingSlots слоты, которые календарь ещё не отражает
func (s *ReservationService) PendingSlots(ctx context.Context, limit int) ([]model.SlotKey, error) {
	return s.ledger.SlotsPendingSync(ctx, limit)
}

func (s *ReservationService) syncSlot(ctx context.Context, key model.SlotKey) (string, error) {
	return s.mirror.SyncSlot(ctx, key)
}

func (s *ReservationService) reportSyncFailure(ctx context.Context, key model.SlotKey, err error) {
	s.logger.Warn("Slot calendar sync failed, will retry in background",
		zap.String("slot", key.String()),
		zap.Error(err),
	)

	var syncErr *MirrorSyncError
	if !errors.As(err, &syncErr) {
		syncErr = &MirrorSyncError{Op: "ledger", Slot: key, Err: err}
	}
	s.notifier.MirrorFailed(ctx, syncErr)
}

func (s *ReservationService) alternatives(ctx context.Context, service, date string) []string {
	times, err := s.availability.AvailableTimes(ctx, service, date)
	if err != nil {
		s.logger.Warn("Failed to compute alternatives",
			zap.String("service", service),
			zap.String("date", date),
			zap.Error(err),
		)
		return nil
	}
	return times
}
