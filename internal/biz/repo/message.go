package repo

import (
	"context"
	"time"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

// MessageRepo is the chat platform interface
type MessageRepo interface {
	// Reply answers a message in its chat
	Reply(ctx context.Context, messageID, text string) error

	// SendText sends a plain text message to a chat
	SendText(ctx context.Context, chatID, text string) error

	// SendPost sends a rich text message to a chat
	SendPost(ctx context.Context, chatID string, post domain.Post) error

	// ChatName returns the display name of a chat
	ChatName(ctx context.Context, chatID string) (string, error)

	// UserName returns the display name of a chat member, "" when unknown
	UserName(ctx context.Context, chatID, userID string) (string, error)

	// ListChats lists the chats the bot is a member of
	ListChats(ctx context.Context) ([]domain.ChatInfo, error)

	// History returns messages of a chat created in [start, end], oldest first
	History(ctx context.Context, chatID string, start, end time.Time) ([]domain.ChannelMessage, error)
}
