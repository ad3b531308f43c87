package infrastructure

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealerhub/internal/entities"
)

// DecodeUpdate normalizes one raw Telegram update into an engine event.
// Used by both the polling loop and the webhook ingress so the two delivery
// modes feed identical events. Returns false for update types the engine
// does not consume (edits, channel posts, inline queries).
func DecodeUpdate(botID int, u tgbotapi.Update) (entities.InboundEvent, bool) {
	switch {
	case u.Message != nil:
		ev := entities.InboundEvent{
			UpdateID:  int64(u.UpdateID),
			BotID:     botID,
			ChatID:    strconv.FormatInt(u.Message.Chat.ID, 10),
			Platform:  "telegram",
			Kind:      entities.EventText,
			Text:      u.Message.Text,
			MessageID: u.Message.MessageID,
		}
		if u.Message.IsCommand() {
			ev.Kind = entities.EventCommand
			ev.Command = u.Message.Command()
			ev.Payload = u.Message.CommandArguments()
		}
		return ev, true

	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return entities.InboundEvent{
			UpdateID:   int64(u.UpdateID),
			BotID:      botID,
			ChatID:     strconv.FormatInt(u.CallbackQuery.Message.Chat.ID, 10),
			Platform:   "telegram",
			Kind:       entities.EventCallback,
			Text:       u.CallbackQuery.Data,
			CallbackID: u.CallbackQuery.ID,
			MessageID:  u.CallbackQuery.Message.MessageID,
		}, true
	}
	return entities.InboundEvent{}, false
}
