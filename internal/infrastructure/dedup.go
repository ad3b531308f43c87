package infrastructure

import "sync"

// DefaultDedupWindow bounds the per-stream ring of recently admitted update ids.
const DefaultDedupWindow = 256

// streamKey identifies one inbound update stream. A bot serving both
// platforms has two independent id spaces: Telegram assigns real update ids,
// WhatsApp ids are synthesized per process. Mixing them under one watermark
// would reject one platform wholesale.
type streamKey struct {
	botID    int
	platform string
}

// streamCursor is the dedup state for one stream: a high watermark plus a
// bounded ring of recently admitted ids. The two together tolerate
// out-of-order delivery within the ring window while keeping memory bounded.
type streamCursor struct {
	mu       sync.Mutex
	lastID   int64
	ring     []int64
	ringSet  map[int64]struct{}
	ringSize int
}

// UpdateDeduplicator decides once-only admission of raw inbound updates per
// (bot, platform) stream. Polling can redeliver updates across restarts and
// webhooks retry on timeout; admitting twice must never re-run side effects,
// so Admit runs before any effect is produced. State is striped per stream so
// admission for one bot never blocks another.
type UpdateDeduplicator struct {
	mu      sync.RWMutex
	cursors map[streamKey]*streamCursor
	window  int
}

func NewUpdateDeduplicator(window int) *UpdateDeduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &UpdateDeduplicator{
		cursors: make(map[streamKey]*streamCursor),
		window:  window,
	}
}

func (d *UpdateDeduplicator) cursor(botID int, platform string) *streamCursor {
	key := streamKey{botID: botID, platform: platform}
	d.mu.RLock()
	c, ok := d.cursors[key]
	d.mu.RUnlock()
	if ok {
		return c
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok = d.cursors[key]; ok {
		return c
	}
	c = &streamCursor{
		ring:     make([]int64, 0, d.window),
		ringSet:  make(map[int64]struct{}, d.window),
		ringSize: d.window,
	}
	d.cursors[key] = c
	return c
}

// Admit reports whether the update id is seen for the first time on the
// stream. Duplicates are ids already in the ring or at/below the watermark
// once they have aged out of the ring window. Admitted ids enter the ring and
// advance the watermark when they exceed it.
func (d *UpdateDeduplicator) Admit(botID int, platform string, updateID int64) bool {
	c := d.cursor(botID, platform)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.ringSet[updateID]; seen {
		return false
	}
	// Below the watermark and no longer in the ring: either a redelivery of
	// an aged-out id or hopelessly stale. Reject both.
	if c.lastID > 0 && updateID <= c.lastID-int64(c.ringSize) {
		return false
	}
	if updateID <= c.lastID {
		// Within the out-of-order window but never seen: admit.
		c.push(updateID)
		return true
	}

	c.push(updateID)
	c.lastID = updateID
	return true
}

// Watermark returns the highest admitted update id on the stream. Pollers
// resume from watermark+1 after a restart.
func (d *UpdateDeduplicator) Watermark(botID int, platform string) int64 {
	c := d.cursor(botID, platform)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID
}

// Seed restores the watermark from durable state on startup.
func (d *UpdateDeduplicator) Seed(botID int, platform string, lastID int64) {
	c := d.cursor(botID, platform)
	c.mu.Lock()
	defer c.mu.Unlock()
	if lastID > c.lastID {
		c.lastID = lastID
	}
}

func (c *streamCursor) push(id int64) {
	if len(c.ring) >= c.ringSize {
		evicted := c.ring[0]
		c.ring = c.ring[1:]
		delete(c.ringSet, evicted)
	}
	c.ring = append(c.ring, id)
	c.ringSet[id] = struct{}{}
}
