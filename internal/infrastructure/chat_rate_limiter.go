package infrastructure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ChatRateLimiter throttles outbound sends per chat. Telegram allows roughly
// one message per second per chat; exceeding it earns 429s, so the executor
// waits here before every delivery attempt.
type ChatRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*chatLimiter
	r           rate.Limit
	burst       int
	cleanupTick time.Duration
}

type chatLimiter struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

func NewChatRateLimiter(r rate.Limit, burst int) *ChatRateLimiter {
	rl := &ChatRateLimiter{
		limiters:    make(map[string]*chatLimiter),
		r:           r,
		burst:       burst,
		cleanupTick: 5 * time.Minute,
	}
	go rl.cleanup()
	return rl
}

// Wait blocks until the chat may receive another message or ctx is done.
func (rl *ChatRateLimiter) Wait(ctx context.Context, chatID string) error {
	rl.mu.Lock()
	cl, ok := rl.limiters[chatID]
	if !ok {
		cl = &chatLimiter{lim: rate.NewLimiter(rl.r, rl.burst)}
		rl.limiters[chatID] = cl
	}
	cl.lastUsed = time.Now()
	rl.mu.Unlock()

	return cl.lim.Wait(ctx)
}

// cleanup removes limiters not used recently so idle chats do not accumulate.
func (rl *ChatRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for chatID, cl := range rl.limiters {
			if now.Sub(cl.lastUsed) > 10*time.Minute {
				delete(rl.limiters, chatID)
			}
		}
		rl.mu.Unlock()
	}
}
