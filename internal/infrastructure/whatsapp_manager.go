package infrastructure

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// WhatsAppManager manages per-bot WhatsApp clients. Each dealership bot may
// carry one WhatsApp line next to its Telegram identity; both feed the same
// engine.
type WhatsAppManager struct {
	clients map[int]*WhatsAppClient
	mu      sync.RWMutex
	baseDir string

	// seq synthesizes update ids for WhatsApp events: whatsmeow carries
	// string ids, the dedup watermark wants monotonically increasing int64s.
	seq atomic.Int64

	// HandlerFactory builds the inbound event handler registered on each
	// client when it is created.
	HandlerFactory func(botID int) func(interface{})
}

func NewWhatsAppManager(baseDir string) *WhatsAppManager {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		fmt.Printf("Warning: could not create devices directory: %v\n", err)
	}

	return &WhatsAppManager{
		clients: make(map[int]*WhatsAppClient),
		baseDir: baseDir,
	}
}

// NextUpdateID hands out the next synthetic update id.
func (m *WhatsAppManager) NextUpdateID() int64 {
	return m.seq.Add(1)
}

// GetClient returns the existing client for a bot (nil if not created).
func (m *WhatsAppManager) GetClient(botID int) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[botID]
}

// GetOrCreateClient gets the existing client or creates one with a
// bot-scoped device store.
func (m *WhatsAppManager) GetOrCreateClient(botID int) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[botID]; exists {
		return client, nil
	}

	dbPath := fmt.Sprintf("%s/bot_%d.db", m.baseDir, botID)
	client, err := NewWhatsAppClient(dbPath, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp client for bot %d: %w", botID, err)
	}

	if m.HandlerFactory != nil {
		client.AddHandler(m.HandlerFactory(botID))
	}

	m.clients[botID] = client
	return client, nil
}

// ConnectClient connects a bot's WhatsApp client, creating it if needed.
func (m *WhatsAppManager) ConnectClient(botID int) (*WhatsAppClient, error) {
	client, err := m.GetOrCreateClient(botID)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect WhatsApp for bot %d: %w", botID, err)
	}

	return client, nil
}

// DisconnectClient disconnects a bot's WhatsApp client.
func (m *WhatsAppManager) DisconnectClient(botID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[botID]; exists {
		client.Disconnect()
		delete(m.clients, botID)
	}
}

// DisconnectAll disconnects every client, for graceful shutdown.
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[int]*WhatsAppClient)
}
