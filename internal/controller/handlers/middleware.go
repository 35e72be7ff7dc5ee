package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireAdmin проверяет что команду прислал администратор
func (h *Handlers) requireAdmin(ctx context.Context, b Sender, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if h.IsAdmin(update.Message.From.ID) {
		return true
	}

	h.logger.Warn("Admin command from non-admin",
		zap.Int64("telegram_id", update.Message.From.ID),
		zap.String("text", update.Message.Text))
	h.sendError(ctx, b, update.Message.Chat.ID, "❌ У вас нет доступа к админ-панели")
	return false
}

// IsAdmin проверяет telegram id по списку администраторов
func (h *Handlers) IsAdmin(telegramID int64) bool {
	return h.isAdmin != nil && h.isAdmin(telegramID)
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b Sender, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение с необязательной клавиатурой
func (h *Handlers) sendMessage(ctx context.Context, b Sender, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// editMessage заменяет текст сообщения с кнопками, на которое нажал пользователь
func (h *Handlers) editMessage(ctx context.Context, b Sender, msg *models.Message, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.EditMessageText(ctx, params)
	if err != nil && !isMessageNotModified(err) {
		h.logger.Error("Failed to edit message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// answer отвечает на callback query, alert показывает всплывающее окно
func (h *Handlers) answer(ctx context.Context, b Sender, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

// Повторное редактирование тем же текстом Telegram считает ошибкой
func isMessageNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// callbackMessage извлекает сообщение из callback query
func callbackMessage(callback *models.CallbackQuery) *models.Message {
	return callback.Message.Message
}
