package infrastructure

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/interfaces"
)

// BotInstance is one running Telegram bot: its API client, sender and, for
// polling bots, the update loop goroutine.
type BotInstance struct {
	BotID     int
	Bot       *tgbotapi.BotAPI
	Sender    *TelegramSender
	Mode      entities.DeliveryMode
	StopChan  chan struct{}
	IsRunning bool
	mu        sync.Mutex
}

// BotManager keeps one logical worker per registered bot. Polling bots get a
// goroutine each; webhook bots only get a sender, their updates arrive via
// the HTTP ingress. All updates funnel into UpdateHandler regardless of mode.
type BotManager struct {
	bots map[int]*BotInstance
	mu   sync.RWMutex
	log  zerolog.Logger

	// UpdateHandler receives every raw update of every bot. Dedup and
	// per-session serialization happen behind it, not here.
	UpdateHandler func(instance *BotInstance, update tgbotapi.Update)

	// StartOffset returns the polling offset for a bot, normally the durable
	// dedup watermark + 1 so a restart does not replay admitted updates.
	StartOffset func(botID int) int64
}

func NewBotManager(log zerolog.Logger) *BotManager {
	return &BotManager{
		bots: make(map[int]*BotInstance),
		log:  log.With().Str("component", "bot_manager").Logger(),
	}
}

// ValidateToken checks a token against the Bot API and returns the bot
// username.
func (m *BotManager) ValidateToken(token string) (string, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return bot.Self.UserName, nil
}

// Connect starts (or returns the already-running) instance for a registered
// bot.
func (m *BotManager) Connect(b *entities.Bot) (*BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.bots[b.ID]; ok && existing.IsRunning {
		return existing, nil
	}

	bot, err := tgbotapi.NewBotAPI(b.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot %d: %w", b.ID, err)
	}

	instance := &BotInstance{
		BotID:    b.ID,
		Bot:      bot,
		Sender:   NewTelegramSender(bot),
		Mode:     b.DeliveryMode,
		StopChan: make(chan struct{}),
	}
	m.bots[b.ID] = instance

	if b.DeliveryMode == entities.DeliveryWebhook {
		instance.mu.Lock()
		instance.IsRunning = true
		instance.mu.Unlock()
		m.log.Info().Int("bot_id", b.ID).Str("bot", bot.Self.UserName).Msg("webhook bot registered")
		return instance, nil
	}

	go m.startPolling(instance)
	return instance, nil
}

// SenderFor returns the chat sender for a resolved bot, connecting it on
// first use. This is how the channel post lifecycle reaches the platform.
func (m *BotManager) SenderFor(b *entities.Bot) (interfaces.ChatSender, error) {
	instance, err := m.Connect(b)
	if err != nil {
		return nil, err
	}
	return instance.Sender, nil
}

// Get returns the running instance for a bot id, nil if not connected.
func (m *BotManager) Get(botID int) *BotInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bots[botID]
}

func (m *BotManager) startPolling(instance *BotInstance) {
	instance.mu.Lock()
	instance.IsRunning = true
	instance.mu.Unlock()

	var offset int64
	if m.StartOffset != nil {
		offset = m.StartOffset(instance.BotID)
	}

	u := tgbotapi.NewUpdate(int(offset))
	u.Timeout = 60
	updates := instance.Bot.GetUpdatesChan(u)

	m.log.Info().Int("bot_id", instance.BotID).Str("bot", instance.Bot.Self.UserName).Msg("polling started")

	for {
		select {
		case <-instance.StopChan:
			instance.Bot.StopReceivingUpdates()
			instance.mu.Lock()
			instance.IsRunning = false
			instance.mu.Unlock()
			m.log.Info().Int("bot_id", instance.BotID).Msg("polling stopped")
			return
		case update := <-updates:
			if m.UpdateHandler != nil {
				m.UpdateHandler(instance, update)
			}
		}
	}
}

// Disconnect stops a bot's worker and forgets the instance.
func (m *BotManager) Disconnect(botID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instance, ok := m.bots[botID]; ok {
		close(instance.StopChan)
		delete(m.bots, botID)
	}
}

// Status reports whether a bot is connected and under which username.
func (m *BotManager) Status(botID int) (connected bool, botName string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if instance, ok := m.bots[botID]; ok && instance.IsRunning {
		return true, instance.Bot.Self.UserName
	}
	return false, ""
}

// DisconnectAll stops every bot, for graceful shutdown.
func (m *BotManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, instance := range m.bots {
		close(instance.StopChan)
	}
	m.bots = make(map[int]*BotInstance)
}
