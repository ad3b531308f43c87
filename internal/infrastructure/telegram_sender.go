package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealerhub/internal/entities"
)

// TelegramSender adapts one bot's tgbotapi client to the ChatSender port.
// Chat ids are strings engine-side (WhatsApp uses phone numbers); Telegram
// expects int64 chat ids, so an unparseable id is a permanent failure.
type TelegramSender struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramSender(bot *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{Bot: bot}
}

func (t *TelegramSender) SendText(ctx context.Context, chatID, text string, rows [][]entities.Button) (int, error) {
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return 0, entities.PermanentDelivery(fmt.Errorf("invalid chat id %q: %w", chatID, err))
		}
		msg = tgbotapi.NewMessage(id, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	if len(rows) > 0 {
		kb := buildInlineKeyboard(rows)
		msg.ReplyMarkup = &kb
	}

	sent, err := t.Bot.Send(msg)
	if err != nil {
		return 0, classifyTelegramError(err)
	}
	return sent.MessageID, nil
}

func (t *TelegramSender) EditText(ctx context.Context, chatID string, messageID int, text string, rows [][]entities.Button) error {
	id, err := t.numericChatID(chatID)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(id, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if len(rows) > 0 {
		kb := buildInlineKeyboard(rows)
		edit.ReplyMarkup = &kb
	}

	if _, err := t.Bot.Send(edit); err != nil {
		return classifyTelegramError(err)
	}
	return nil
}

func (t *TelegramSender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := t.Bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return classifyTelegramError(err)
	}
	return nil
}

// numericChatID resolves "@channel" usernames via getChat; edits require the
// numeric id.
func (t *TelegramSender) numericChatID(chatID string) (int64, error) {
	if strings.HasPrefix(chatID, "@") {
		chat, err := t.Bot.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: chatID},
		})
		if err != nil {
			return 0, classifyTelegramError(err)
		}
		return chat.ID, nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, entities.PermanentDelivery(fmt.Errorf("invalid chat id %q: %w", chatID, err))
	}
	return id, nil
}

// SyncCommands publishes scenario trigger commands and sets the default chat
// menu button so users discover the flows.
func (t *TelegramSender) SyncCommands(scenarios []entities.Scenario) error {
	var commands []tgbotapi.BotCommand
	for _, sc := range scenarios {
		if !sc.IsActive || sc.TriggerCommand == "" {
			continue
		}
		commands = append(commands, tgbotapi.BotCommand{
			Command:     strings.TrimPrefix(sc.TriggerCommand, "/"),
			Description: sc.Name,
		})
	}
	if len(commands) == 0 {
		return nil
	}
	if _, err := t.Bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return classifyTelegramError(err)
	}
	// Default "commands" menu button. The library has no typed config for
	// this endpoint yet; failure here is not fatal to the sync.
	t.Bot.MakeRequest("setChatMenuButton", tgbotapi.Params{
		"menu_button": `{"type":"commands"}`,
	})
	return nil
}

func buildInlineKeyboard(rows [][]entities.Button) tgbotapi.InlineKeyboardMarkup {
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if strings.HasPrefix(b.Data, "http://") || strings.HasPrefix(b.Data, "https://") {
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.Data))
			} else {
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
		}
		if len(kbRow) > 0 {
			kbRows = append(kbRows, kbRow)
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

// classifyTelegramError sorts Bot API failures into the retry taxonomy.
// 429 carries the platform's retry-after; 5xx and transport errors are
// transient; 400/403 (bad chat, blocked bot, malformed payload) are final.
func classifyTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
			return entities.TransientDelivery(err, retryAfter)
		case apiErr.Code >= 500:
			return entities.TransientDelivery(err, 0)
		default:
			return entities.PermanentDelivery(err)
		}
	}
	// Not an API rejection: timeout or network failure, retry applies.
	return entities.TransientDelivery(err, 0)
}
