package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleAdmin обрабатывает команду /admin: услуги и последние записи
func (h *Handlers) HandleAdmin(ctx context.Context, b Sender, update *models.Update) {
	if !h.requireAdmin(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	h.logger.Info("Admin panel opened", zap.Int64("telegram_id", update.Message.From.ID))

	services, err := h.reservations.Services(ctx)
	if err != nil {
		h.logger.Error("Failed to list services", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	recent, err := h.reservations.RecentBookings(ctx, AdminRecentLimit)
	if err != nil {
		h.logger.Error("Failed to list recent bookings", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	h.sendMessage(ctx, b, chatID, FormatAdminOverview(services, recent), nil)
}

// HandleResync обрабатывает команду /resync: внеочередная сверка календаря
func (h *Handlers) HandleResync(ctx context.Context, b Sender, update *models.Update) {
	if !h.requireAdmin(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	if h.reconciler == nil {
		h.sendMessage(ctx, b, chatID, "Сверка календаря не настроена.", nil)
		return
	}

	h.logger.Info("Manual calendar resync", zap.Int64("telegram_id", update.Message.From.ID))
	synced := h.reconciler.ReconcileOnce(ctx)

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🔄 Сверка завершена. Обновлено слотов: %d", synced), nil)
}
