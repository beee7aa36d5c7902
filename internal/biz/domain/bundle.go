package domain

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// BundleKey identifies the bundle of one user in one channel
type BundleKey struct {
	ChannelID string
	UserID    string
}

// FlushReason tells why a bundle was flushed
type FlushReason string

const (
	FlushInactivity FlushReason = "inactivity"
	FlushMaxWindow  FlushReason = "max_window"
	FlushManual     FlushReason = "manual"
	FlushShutdown   FlushReason = "shutdown"
)

// Bundle represents a burst of messages from one user in one channel
// awaiting a quiet period before extraction.
type Bundle struct {
	Key       BundleKey
	Messages  []InboundMessage
	CreatedAt time.Time
	LastAt    time.Time
}

// Append adds a message and refreshes the activity timestamp.
// Messages stay ordered by platform creation time; a message without one,
// or sharing one with earlier messages, goes after them.
func (b *Bundle) Append(msg InboundMessage, now time.Time) {
	i := len(b.Messages)
	if !msg.CreatedAt.IsZero() {
		i = sort.Search(len(b.Messages), func(j int) bool {
			return b.Messages[j].CreatedAt.After(msg.CreatedAt)
		})
	}
	b.Messages = slices.Insert(b.Messages, i, msg)
	b.LastAt = now
}

// DueReason reports whether the bundle should flush at now and why.
// The hard cap is checked first so a bundle that hits both limits on the
// same tick is attributed to the window.
func (b *Bundle) DueReason(now time.Time, inactivity, maxWindow time.Duration) (FlushReason, bool) {
	if now.Sub(b.CreatedAt) >= maxWindow {
		return FlushMaxWindow, true
	}
	if now.Sub(b.LastAt) >= inactivity {
		return FlushInactivity, true
	}
	return "", false
}

// JoinedText concatenates non-empty message texts in creation order
func (b *Bundle) JoinedText() string {
	texts := make([]string, 0, len(b.Messages))
	for _, m := range b.Messages {
		if m.Text != "" {
			texts = append(texts, m.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// First returns the first message of the bundle
func (b *Bundle) First() *InboundMessage {
	if len(b.Messages) == 0 {
		return nil
	}
	return &b.Messages[0]
}

// Last returns the latest created message of the bundle
func (b *Bundle) Last() *InboundMessage {
	if len(b.Messages) == 0 {
		return nil
	}
	return &b.Messages[len(b.Messages)-1]
}

// BundleSnapshot is a read-only view of an active bundle
type BundleSnapshot struct {
	ChannelID    string    `json:"channel_id"`
	UserID       string    `json:"user_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAt       time.Time `json:"last_at"`
}
