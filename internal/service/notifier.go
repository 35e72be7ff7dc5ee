package service

import (
	"context"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"go.uber.org/zap"
)

// Notifier операционный канал. Реализации сами обрабатывают свои ошибки:
// уведомление никогда не влияет на результат записи.
type Notifier interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
	MirrorFailed(ctx context.Context, err *MirrorSyncError)
}

// LogNotifier пишет события в лог
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) BookingCreated(_ context.Context, booking *model.Booking) {
	n.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("slot", booking.Slot().String()),
	)
}

func (n *LogNotifier) BookingCancelled(_ context.Context, booking *model.Booking) {
	n.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.String("slot", booking.Slot().String()),
	)
}

func (n *LogNotifier) MirrorFailed(_ context.Context, err *MirrorSyncError) {
	n.logger.Warn("Calendar sync failed",
		zap.String("op", err.Op),
		zap.String("slot", err.Slot.String()),
		zap.Error(err.Err),
	)
}

// MultiNotifier рассылает события всем получателям по очереди
type MultiNotifier []Notifier

func (m MultiNotifier) BookingCreated(ctx context.Context, booking *model.Booking) {
	for _, n := range m {
		n.BookingCreated(ctx, booking)
	}
}

func (m MultiNotifier) BookingCancelled(ctx context.Context, booking *model.Booking) {
	for _, n := range m {
		n.BookingCancelled(ctx, booking)
	}
}

func (m MultiNotifier) MirrorFailed(ctx context.Context, err *MirrorSyncError) {
	for _, n := range m {
		n.MirrorFailed(ctx, err)
	}
}
