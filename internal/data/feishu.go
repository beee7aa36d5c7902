package data

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/infra/feishu"
)

// feishuAPI is the subset of *feishu.Client the repository calls
type feishuAPI interface {
	Reply(ctx context.Context, messageID, text string) error
	SendText(ctx context.Context, chatID, text string) error
	SendRichText(ctx context.Context, chatID, title string, content [][]map[string]any) error
	ListChats(ctx context.Context) ([]feishu.ChatInfo, error)
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
	GetChatMembers(ctx context.Context, chatID string) ([]feishu.ChatMember, error)
	History(ctx context.Context, chatID string, start, end time.Time) ([]feishu.HistoryMessage, error)
}

// feishuRepo implements the Feishu message repository.
// Chat and member names are cached for the life of the process.
type feishuRepo struct {
	client feishuAPI

	mu        sync.Mutex
	chatNames map[string]string
	members   map[string]map[string]string // chatID -> userID -> name
}

// NewFeishuRepo creates a new Feishu repository
func NewFeishuRepo(client *feishu.Client) repo.MessageRepo {
	return newFeishuRepo(client)
}

func newFeishuRepo(client feishuAPI) *feishuRepo {
	return &feishuRepo{
		client:    client,
		chatNames: make(map[string]string),
		members:   make(map[string]map[string]string),
	}
}

// Reply answers a message in its chat
func (r *feishuRepo) Reply(ctx context.Context, messageID, text string) error {
	return r.client.Reply(ctx, messageID, text)
}

// SendText sends a text message
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string) error {
	return r.client.SendText(ctx, chatID, text)
}

// SendPost renders post as a Feishu rich text message
func (r *feishuRepo) SendPost(ctx context.Context, chatID string, post domain.Post) error {
	return r.client.SendRichText(ctx, chatID, post.Title, postContent(post))
}

// postContent lays a post out as rich text paragraphs: description, one bold
// name line plus value lines per field, then the footer
func postContent(post domain.Post) [][]map[string]any {
	text := func(s string, bold bool) []map[string]any {
		elem := map[string]any{"tag": "text", "text": s}
		if bold {
			elem["style"] = []string{"bold"}
		}
		return []map[string]any{elem}
	}

	var content [][]map[string]any
	if post.Description != "" {
		for _, ln := range strings.Split(post.Description, "\n") {
			content = append(content, text(ln, false))
		}
	}
	for _, f := range post.Fields {
		content = append(content, text(f.Name, true))
		for _, ln := range strings.Split(f.Value, "\n") {
			content = append(content, text(ln, false))
		}
	}
	if post.Footer != "" {
		content = append(content, text("", false), text(post.Footer, false))
	}
	return content
}

// ChatName returns the chat name, cached after the first lookup
func (r *feishuRepo) ChatName(ctx context.Context, chatID string) (string, error) {
	r.mu.Lock()
	name, ok := r.chatNames[chatID]
	r.mu.Unlock()
	if ok {
		return name, nil
	}

	info, err := r.client.GetChatInfo(ctx, chatID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.chatNames[chatID] = info.Name
	r.mu.Unlock()
	return info.Name, nil
}

// UserName resolves a member name from the chat member list; the list is
// reloaded once when the user is missing from the cache
func (r *feishuRepo) UserName(ctx context.Context, chatID, userID string) (string, error) {
	r.mu.Lock()
	name, ok := r.members[chatID][userID]
	r.mu.Unlock()
	if ok {
		return name, nil
	}

	members, err := r.client.GetChatMembers(ctx, chatID)
	if err != nil {
		return "", err
	}

	byID := make(map[string]string, len(members))
	for _, m := range members {
		byID[m.MemberID] = m.Name
	}

	r.mu.Lock()
	r.members[chatID] = byID
	r.mu.Unlock()
	return byID[userID], nil
}

// ListChats lists chats the bot is a member of and refreshes the name cache
func (r *feishuRepo) ListChats(ctx context.Context) ([]domain.ChatInfo, error) {
	chats, err := r.client.ListChats(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ChatInfo, 0, len(chats))
	r.mu.Lock()
	for _, c := range chats {
		r.chatNames[c.ChatID] = c.Name
		result = append(result, domain.ChatInfo{ChatID: c.ChatID, Name: c.Name})
	}
	r.mu.Unlock()
	return result, nil
}

// History returns chat messages in [start, end], oldest first
func (r *feishuRepo) History(ctx context.Context, chatID string, start, end time.Time) ([]domain.ChannelMessage, error) {
	msgs, err := r.client.History(ctx, chatID, start, end)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ChannelMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := domain.ChannelMessage{
			ID:            m.MsgID,
			ChannelID:     chatID,
			Text:          m.Content,
			HasAttachment: m.HasAttachment,
			CreateTime:    time.UnixMilli(m.CreateTime),
		}
		if m.Sender != nil {
			cm.SenderID = m.Sender.SenderID
			cm.IsBot = m.Sender.IsBot()
		}
		result = append(result, cm)
	}
	return result, nil
}
