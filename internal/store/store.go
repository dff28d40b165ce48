package store

import "time"

// TimestampLayout is the wire format of [Message.Timestamp]: UTC, no zone
// suffix, microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Message is one posted note and its reaction counters.
//
// Message is the storage representation and also the wire representation
// used by the REST API, WebSocket and SSE streams. Values handed out by a
// [Store] are copies; mutating them does not affect the store.
type Message struct {
	// Text is the trimmed message body. Never empty.
	Text string `json:"text"`

	// Timestamp is the creation time formatted with [TimestampLayout].
	// It is unique within a store and is the lookup key for reactions.
	Timestamp string `json:"timestamp"`

	// Likes counts like reactions.
	Likes int `json:"likes"`

	// Dislikes counts dislike reactions.
	Dislikes int `json:"dislikes"`
}

// FormatTimestamp formats t in UTC using [TimestampLayout].
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Store defines the message storage operations.
//
// Store implementations must be safe for concurrent access, and every
// operation must be atomic with respect to the others.
type Store interface {
	// Append trims text and stores it as a new message with zero counters.
	// Returns a validation error if the trimmed text is empty.
	Append(text string) (Message, error)

	// FindByTimestamp returns the message with exactly this timestamp.
	FindByTimestamp(ts string) (Message, bool)

	// IncrementLike adds one like to the message with timestamp ts and
	// returns the updated message. Returns a not-found error if no
	// message has that timestamp.
	IncrementLike(ts string) (Message, error)

	// IncrementDislike is the dislike counterpart of IncrementLike.
	IncrementDislike(ts string) (Message, error)

	// All returns every message in insertion order.
	// The returned slice is a snapshot; modifications do not affect the store.
	All() []Message

	// Len returns the number of stored messages.
	Len() int
}
