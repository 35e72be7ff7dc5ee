package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/controller/handlers"
	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/Freeeeeet/slot_booking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const adminSendTimeout = 5 * time.Second

// MessageSender отправка сообщения, *bot.Bot её реализует
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// AdminNotifier пересылает администраторам новые записи, отмены и сбои календаря.
// Рассылка идёт в фоне, ответ клиенту её не ждёт.
type AdminNotifier struct {
	sender   MessageSender
	adminIDs []int64
	logger   *zap.Logger
	wg       sync.WaitGroup
}

var _ service.Notifier = (*AdminNotifier)(nil)

func NewAdminNotifier(sender MessageSender, adminIDs []int64, logger *zap.Logger) *AdminNotifier {
	return &AdminNotifier{sender: sender, adminIDs: adminIDs, logger: logger}
}

// Wait дожидается незавершённых рассылок, вызывается при остановке
func (n *AdminNotifier) Wait() {
	n.wg.Wait()
}

func (n *AdminNotifier) BookingCreated(ctx context.Context, booking *model.Booking) {
	n.broadcast(ctx, "📩 Новая запись\n\n"+handlers.FormatAdminBooking(booking))
}

func (n *AdminNotifier) BookingCancelled(ctx context.Context, booking *model.Booking) {
	n.broadcast(ctx, "🗑 Запись отменена\n\n"+handlers.FormatAdminBooking(booking))
}

func (n *AdminNotifier) MirrorFailed(ctx context.Context, err *service.MirrorSyncError) {
	n.broadcast(ctx, fmt.Sprintf(
		"⚠️ Календарь не обновлён\n\n"+
			"Слот: %s\n"+
			"Операция: %s\n"+
			"Ошибка: %v\n\n"+
			"Запись сохранена, повторная сверка пройдёт автоматически или по /resync",
		err.Slot.String(), err.Op, err.Err,
	))
}

func (n *AdminNotifier) broadcast(ctx context.Context, text string) {
	// Запрос клиента может завершиться раньше рассылки
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), adminSendTimeout)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()

		for _, id := range n.adminIDs {
			_, err := n.sender.SendMessage(sendCtx, &bot.SendMessageParams{
				ChatID: id,
				Text:   text,
			})
			if err != nil {
				n.logger.Warn("Failed to notify admin", zap.Int64("admin_id", id), zap.Error(err))
			}
		}
	}()
}
