package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

// How a chat token was resolved
const (
	ResolvedByID     = "id"
	ResolvedByExact  = "exact"
	ResolvedByPrefix = "prefix"
)

// ResolveChat finds a chat by id, then by exact name, then by name prefix
// (names often carry a trailing emoji or decoration).
func ResolveChat(chats []domain.ChatInfo, token string) (domain.ChatInfo, string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ChatInfo{}, "", false
	}
	for _, c := range chats {
		if c.ChatID == token {
			return c, ResolvedByID, true
		}
	}
	for _, c := range chats {
		if c.Name == token {
			return c, ResolvedByExact, true
		}
	}
	for _, c := range chats {
		if strings.HasPrefix(c.Name, token) {
			return c, ResolvedByPrefix, true
		}
	}
	return domain.ChatInfo{}, "", false
}

// resolveFirst resolves the first token that matches a chat
func resolveFirst(ctx context.Context, messages repo.MessageRepo, tokens ...string) (domain.ChatInfo, error) {
	chats, err := messages.ListChats(ctx)
	if err != nil {
		return domain.ChatInfo{}, fmt.Errorf("list chats: %w", err)
	}
	for _, tok := range tokens {
		if c, _, ok := ResolveChat(chats, tok); ok {
			return c, nil
		}
	}
	return domain.ChatInfo{}, fmt.Errorf("%w: %v", repo.ErrChatNotFound, nonEmpty(tokens))
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// JobResult summarizes a digest or report run
type JobResult struct {
	Job     string `json:"job"`
	ChatID  string `json:"chat_id,omitempty"`
	Items   int    `json:"items"`
	Posts   int    `json:"posts"`
	Skipped string `json:"skipped,omitempty"`
}

// withCallTimeout bounds one collaborator call; d <= 0 leaves ctx as is
func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
