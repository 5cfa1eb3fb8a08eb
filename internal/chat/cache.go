package chat

import "sync"

// RecentCacheSize is the number of recent messages retained per chat for
// join-time replay.
const RecentCacheSize = 50

// RecentCache stores the last N messages per chat in memory so that a session
// joining a room can be served the chat tail without a database round trip on
// the hot path. It is goroutine-safe and uses a ring buffer per chat.
type RecentCache struct {
	mu      sync.RWMutex
	buffers map[string]*ring // chatID -> ring buffer
}

// ring is a fixed-size circular buffer of Message.
type ring struct {
	items []Message
	pos   int
	count int
}

func (rb *ring) add(msg Message) {
	rb.items[rb.pos] = msg
	rb.pos = (rb.pos + 1) % RecentCacheSize
	if rb.count < RecentCacheSize {
		rb.count++
	}
}

// NewRecentCache creates a new empty RecentCache.
func NewRecentCache() *RecentCache {
	return &RecentCache{
		buffers: make(map[string]*ring),
	}
}

// Add appends a message to the chat's ring buffer. If the buffer is full,
// the oldest message is overwritten.
func (rc *RecentCache) Add(chatID string, msg Message) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rb, ok := rc.buffers[chatID]
	if !ok {
		rb = &ring{
			items: make([]Message, RecentCacheSize),
		}
		rc.buffers[chatID] = rb
	}
	rb.add(msg)
}

// AddIfWarm appends a message only when the chat already has a warm buffer.
// A cold chat must keep loading its full tail from the store on the next
// join, so no partial buffer is created here.
func (rc *RecentCache) AddIfWarm(chatID string, msg Message) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rb, ok := rc.buffers[chatID]; ok {
		rb.add(msg)
	}
}

// Get returns the cached messages for a chat in chronological order (oldest
// first) and whether the chat has a warm buffer at all. A cold buffer means
// the caller should fall back to the repository and Warm the cache.
func (rc *RecentCache) Get(chatID string) ([]Message, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	rb, ok := rc.buffers[chatID]
	if !ok {
		return nil, false
	}

	result := make([]Message, rb.count)
	// The oldest message is at position (pos - count) mod RecentCacheSize.
	start := (rb.pos - rb.count + RecentCacheSize) % RecentCacheSize
	for i := 0; i < rb.count; i++ {
		result[i] = rb.items[(start+i)%RecentCacheSize]
	}
	return result, true
}

// Warm seeds the chat's buffer from messages loaded elsewhere (oldest first).
// An already-warm buffer is left untouched so concurrent sends are not lost.
func (rc *RecentCache) Warm(chatID string, msgs []Message) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, ok := rc.buffers[chatID]; ok {
		return
	}

	rb := &ring{items: make([]Message, RecentCacheSize)}
	rc.buffers[chatID] = rb
	for _, m := range msgs {
		rb.add(m)
	}
}

// Remove deletes the buffer for a chat.
func (rc *RecentCache) Remove(chatID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	delete(rc.buffers, chatID)
}
