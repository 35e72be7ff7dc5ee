package events

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/Freeeeeet/slot_booking_bot/internal/service"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// JSONPublisher то, что нужно уведомителю от брокера
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// BookingEvent тело booking.created и booking.cancelled
type BookingEvent struct {
	BookingID int64               `json:"booking_id"`
	Status    model.BookingStatus `json:"status"`
	Service   string              `json:"service"`
	Date      string              `json:"date"`
	Time      string              `json:"time"`
	TgUserID  *string             `json:"tg_user_id,omitempty"`
}

// SyncFailedEvent тело calendar.sync_failed
type SyncFailedEvent struct {
	Op      string `json:"op"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Error   string `json:"error"`
}

// Notifier публикует события в брокер. Ошибки публикации только логируются.
type Notifier struct {
	publisher JSONPublisher
	logger    *zap.Logger
}

var _ service.Notifier = (*Notifier)(nil)

func NewNotifier(publisher JSONPublisher, logger *zap.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger}
}

func (n *Notifier) BookingCreated(ctx context.Context, booking *model.Booking) {
	n.publish(ctx, KeyBookingCreated, bookingEvent(booking))
}

func (n *Notifier) BookingCancelled(ctx context.Context, booking *model.Booking) {
	n.publish(ctx, KeyBookingCancelled, bookingEvent(booking))
}

func (n *Notifier) MirrorFailed(ctx context.Context, err *service.MirrorSyncError) {
	n.publish(ctx, KeyCalendarSyncFailed, SyncFailedEvent{
		Op:      err.Op,
		Service: err.Slot.Service,
		Date:    err.Slot.Date,
		Time:    err.Slot.Time,
		Error:   err.Err.Error(),
	})
}

func (n *Notifier) publish(ctx context.Context, key string, v any) {
	// Запрос мог уже завершиться, а событие всё равно нужно отправить
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.publisher.PublishJSON(pubCtx, key, v); err != nil {
		n.logger.Warn("Failed to publish event", zap.String("key", key), zap.Error(err))
	}
}

func bookingEvent(b *model.Booking) BookingEvent {
	return BookingEvent{
		BookingID: b.ID,
		Status:    b.Status,
		Service:   b.Service,
		Date:      b.Date,
		Time:      b.Time,
		TgUserID:  b.TgUserID,
	}
}
