package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

// Mock implementations

type mockPricingRepo struct {
	mu     sync.Mutex
	result *domain.PricingResult
	err    error
	calls  []domain.Identifiers
}

func (m *mockPricingRepo) Lookup(ctx context.Context, ids domain.Identifiers) (*domain.PricingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ids)
	return m.result, m.err
}

type sentText struct {
	ChatID string
	Text   string
}

type sentPost struct {
	ChatID string
	Post   domain.Post
}

type sentReply struct {
	MessageID string
	Text      string
}

type mockMessageRepo struct {
	mu       sync.Mutex
	replies  []sentReply
	texts    []sentText
	posts    []sentPost
	chats    []domain.ChatInfo
	names    map[string]string // userID -> name
	history  map[string][]domain.ChannelMessage
	histErr  map[string]error
	replyErr error
	windows  []domain.ReportWindow

	nameCalls int
}

func (m *mockMessageRepo) Reply(ctx context.Context, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, sentReply{MessageID: messageID, Text: text})
	return m.replyErr
}

func (m *mockMessageRepo) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, sentText{ChatID: chatID, Text: text})
	return nil
}

func (m *mockMessageRepo) SendPost(ctx context.Context, chatID string, post domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, sentPost{ChatID: chatID, Post: post})
	return nil
}

func (m *mockMessageRepo) ChatName(ctx context.Context, chatID string) (string, error) {
	for _, c := range m.chats {
		if c.ChatID == chatID {
			return c.Name, nil
		}
	}
	return "", repo.ErrChatNotFound
}

func (m *mockMessageRepo) UserName(ctx context.Context, chatID, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameCalls++
	return m.names[userID], nil
}

func (m *mockMessageRepo) NameCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nameCalls
}

func (m *mockMessageRepo) ListChats(ctx context.Context) ([]domain.ChatInfo, error) {
	return m.chats, nil
}

func (m *mockMessageRepo) History(ctx context.Context, chatID string, start, end time.Time) ([]domain.ChannelMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, domain.ReportWindow{Start: start, End: end})
	if err := m.histErr[chatID]; err != nil {
		return nil, err
	}
	return m.history[chatID], nil
}

func (m *mockMessageRepo) Replies() []sentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentReply(nil), m.replies...)
}

type mockChatRepo struct {
	mu       sync.Mutex
	requests []repo.CompletionRequest
	respond  func(req repo.CompletionRequest) (string, error)
	hang     bool // return only once ctx is done
}

func (m *mockChatRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.respond == nil {
		return "ok", nil
	}
	return m.respond(req)
}

func (m *mockChatRepo) Requests() []repo.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repo.CompletionRequest(nil), m.requests...)
}

type mockSheetRepo struct {
	mu      sync.Mutex
	rows    [][]string
	grid    [][]string
	err     error
	readErr error
	block   chan struct{}
}

func (m *mockSheetRepo) AppendRow(ctx context.Context, row []string) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *mockSheetRepo) ReadAll(ctx context.Context) ([][]string, error) {
	return m.grid, m.readErr
}

func (m *mockSheetRepo) Close() error { return nil }

func (m *mockSheetRepo) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.rows...)
}

func (m *mockMessageRepo) Texts() []sentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentText(nil), m.texts...)
}

func (m *mockMessageRepo) Posts() []sentPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentPost(nil), m.posts...)
}
