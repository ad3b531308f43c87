package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"dealerhub/internal/entities"
)

// WhatsAppClient is the second-platform adapter: one dealership WhatsApp
// line, bound to a bot id so its chats share the scenario engine with
// Telegram. Sessions created through it carry platform "whatsapp".
type WhatsAppClient struct {
	Client      *whatsmeow.Client
	BotID       int
	HandlerFunc func(evt interface{})

	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(dbPath string, botID int) (*WhatsAppClient, error) {
	dbLog := waLog.Stdout("Database", "WARN", true)
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", "WARN", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)

	return &WhatsAppClient{
		Client: client,
		BotID:  botID,
	}, nil
}

func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID == nil {
		// No stored device, new login via QR
		qrChan, _ := w.Client.GetQRChannel(context.Background())
		if err := w.Client.Connect(); err != nil {
			return err
		}
		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					w.qrLock.Lock()
					w.qrCode = evt.Code
					w.qrLock.Unlock()
				}
			}
		}()
		return nil
	}
	return w.Client.Connect()
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

// ParseMessage extracts the sender phone number and text of an inbound event.
func (w *WhatsAppClient) ParseMessage(evt *events.Message) (string, string) {
	sender := evt.Info.Sender.User
	var content string

	if evt.Message.Conversation != nil {
		content = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil {
		content = *evt.Message.ExtendedTextMessage.Text
	}

	return sender, content
}

// SendText implements the ChatSender port. WhatsApp has no numeric message
// ids and no inline keyboards: button rows degrade to a numbered text list
// and the returned id is always 0, so channel posts never target WhatsApp.
func (w *WhatsAppClient) SendText(ctx context.Context, chatID, text string, rows [][]entities.Button) (int, error) {
	jid, err := types.ParseJID(chatID + "@s.whatsapp.net")
	if err != nil {
		return 0, entities.PermanentDelivery(fmt.Errorf("invalid number %q: %w", chatID, err))
	}

	body := text
	n := 0
	for _, row := range rows {
		for _, b := range row {
			n++
			body += fmt.Sprintf("\n%d. %s", n, b.Label)
		}
	}
	if n > 0 {
		body += "\n\nReply with a number to choose."
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &body,
	})
	if err != nil {
		return 0, entities.TransientDelivery(err, 0)
	}
	return 0, nil
}

// EditText is unsupported by this adapter; the lifecycle manager treats it
// as a permanent failure so posts stay on Telegram channels.
func (w *WhatsAppClient) EditText(ctx context.Context, chatID string, messageID int, text string, rows [][]entities.Button) error {
	return entities.PermanentDelivery(errors.New("whatsapp: message edits not supported"))
}

// AnswerCallback is a no-op: WhatsApp choices arrive as plain text replies.
func (w *WhatsAppClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}
