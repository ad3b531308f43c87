package infrastructure_test

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
)

func TestDecodeUpdate(t *testing.T) {
	chat := &tgbotapi.Chat{ID: 123456}

	t.Run("plain text", func(t *testing.T) {
		ev, ok := infrastructure.DecodeUpdate(7, tgbotapi.Update{
			UpdateID: 900,
			Message:  &tgbotapi.Message{MessageID: 5, Chat: chat, Text: "hello"},
		})
		require.True(t, ok)
		assert.Equal(t, int64(900), ev.UpdateID)
		assert.Equal(t, 7, ev.BotID)
		assert.Equal(t, "123456", ev.ChatID)
		assert.Equal(t, entities.EventText, ev.Kind)
		assert.Equal(t, "hello", ev.Text)
	})

	t.Run("command with deep link payload", func(t *testing.T) {
		ev, ok := infrastructure.DecodeUpdate(7, tgbotapi.Update{
			UpdateID: 901,
			Message: &tgbotapi.Message{
				MessageID: 6,
				Chat:      chat,
				Text:      "/start req_42",
				Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			},
		})
		require.True(t, ok)
		assert.Equal(t, entities.EventCommand, ev.Kind)
		assert.Equal(t, "start", ev.Command)
		assert.Equal(t, "req_42", ev.Payload)
	})

	t.Run("callback query", func(t *testing.T) {
		ev, ok := infrastructure.DecodeUpdate(7, tgbotapi.Update{
			UpdateID: 902,
			CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb99",
				Data:    "used",
				Message: &tgbotapi.Message{MessageID: 8, Chat: chat},
			},
		})
		require.True(t, ok)
		assert.Equal(t, entities.EventCallback, ev.Kind)
		assert.Equal(t, "used", ev.Text)
		assert.Equal(t, "cb99", ev.CallbackID)
		assert.Equal(t, 8, ev.MessageID)
	})

	t.Run("unconsumed update types are dropped", func(t *testing.T) {
		_, ok := infrastructure.DecodeUpdate(7, tgbotapi.Update{
			UpdateID:      903,
			EditedMessage: &tgbotapi.Message{MessageID: 9, Chat: chat, Text: "edited"},
		})
		assert.False(t, ok)

		_, ok = infrastructure.DecodeUpdate(7, tgbotapi.Update{UpdateID: 904})
		assert.False(t, ok)
	})
}
