package store

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/msgboard/internal/apperr"
)

const (
	errMessageRequired = "Message is required"
	errMessageNotFound = "Message not found"
)

// MemoryStore is an in-memory implementation of [Store].
//
// All operations are serialized by a single mutex, so a reader never
// observes a partially applied append or increment.
//
// Messages are never evicted: the sequence grows for the lifetime of the
// process. Adding a cap would change what GET /messages returns.
type MemoryStore struct {
	mu       sync.Mutex
	messages []Message
	index    map[string]int // timestamp -> position in messages
	clock    clockwork.Clock
	last     time.Time // last issued timestamp instant
}

// NewMemoryStore creates a new in-memory [Store] backed by the real clock.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(clockwork.NewRealClock())
}

// NewMemoryStoreWithClock creates a [MemoryStore] that reads time from clock.
func NewMemoryStoreWithClock(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		messages: make([]Message, 0),
		index:    make(map[string]int),
		clock:    clock,
	}
}

// Append stores a new message.
//
// The timestamp is taken from the store's clock. If the clock has not moved
// past the previously issued instant (coarse or frozen clock, or two posts
// in the same microsecond), the instant is advanced by one microsecond so
// timestamps stay unique and increasing.
func (m *MemoryStore) Append(text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, apperr.Validation(errMessageRequired)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC().Truncate(time.Microsecond)
	if !now.After(m.last) {
		now = m.last.Add(time.Microsecond)
	}
	m.last = now

	msg := Message{
		Text:      text,
		Timestamp: FormatTimestamp(now),
	}
	m.index[msg.Timestamp] = len(m.messages)
	m.messages = append(m.messages, msg)

	return msg, nil
}

// FindByTimestamp returns the message with timestamp ts, if any.
func (m *MemoryStore) FindByTimestamp(ts string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[ts]
	if !ok {
		return Message{}, false
	}
	return m.messages[i], true
}

// IncrementLike adds one like to the message with timestamp ts.
func (m *MemoryStore) IncrementLike(ts string) (Message, error) {
	return m.react(ts, func(msg *Message) { msg.Likes++ })
}

// IncrementDislike adds one dislike to the message with timestamp ts.
func (m *MemoryStore) IncrementDislike(ts string) (Message, error) {
	return m.react(ts, func(msg *Message) { msg.Dislikes++ })
}

// react applies fn to the stored message in place and returns a copy.
func (m *MemoryStore) react(ts string, fn func(*Message)) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[ts]
	if !ok {
		return Message{}, apperr.NotFound(errMessageNotFound).With("timestamp", ts)
	}
	fn(&m.messages[i])
	return m.messages[i], nil
}

// All returns a snapshot of all messages in insertion order.
func (m *MemoryStore) All() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of stored messages.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
