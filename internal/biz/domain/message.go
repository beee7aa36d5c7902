package domain

import "time"

// InboundMessage represents a message delivered by the chat platform
type InboundMessage struct {
	ID            string
	ChannelID     string
	ChannelName   string
	UserID        string
	UserName      string
	Text          string
	HasAttachment bool // image, file, media or sticker
	MentionsBot   bool
	CreatedAt     time.Time
}

// Key returns the bundle key of the message
func (m *InboundMessage) Key() BundleKey {
	return BundleKey{ChannelID: m.ChannelID, UserID: m.UserID}
}

// ChannelMessage represents a message read back from channel history
type ChannelMessage struct {
	ID            string
	ChannelID     string
	SenderID      string
	SenderName    string
	Text          string
	IsBot         bool
	HasAttachment bool
	CreateTime    time.Time
}

// ChatInfo represents a chat the bot is a member of
type ChatInfo struct {
	ChatID string
	Name   string
}
