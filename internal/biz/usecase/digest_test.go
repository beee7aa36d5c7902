package usecase

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/retry"
)

var digestNow = time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

func digestGrid(yesterday, today int) [][]string {
	grid := [][]string{domain.ProductHeader}
	for i := 0; i < yesterday; i++ {
		grid = append(grid, []string{fmt.Sprintf("id%d", i), "B0ABCDEFGH", "", fmt.Sprintf("Item %d", i), "1980", "ヤマダデンキ", "", "", "u", "c", "2026-03-09 12:00:00"})
	}
	for i := 0; i < today; i++ {
		grid = append(grid, []string{"t", "", "", "Today", "", "", "", "", "u", "c", "2026-03-10 07:00:00"})
	}
	return grid
}

func newTestDigest(sheet *mockSheetRepo, chat *mockChatRepo, msgs *mockMessageRepo) *DigestUsecase {
	cfg := DefaultDigestConfig(testPersona())
	cfg.Location = time.UTC
	cfg.PageDelay = 0
	cfg.Retry = retry.Policy{Attempts: 2, Base: time.Millisecond}
	uc := NewDigestUsecase(sheet, chat, msgs, cfg, zerolog.Nop(), nil)
	uc.now = func() time.Time { return digestNow }
	return uc
}

func TestDigest_Run_Pages(t *testing.T) {
	sheet := &mockSheetRepo{grid: digestGrid(30, 4)}
	chat := &mockChatRepo{respond: func(req repo.CompletionRequest) (string, error) { return "いい一日でした", nil }}
	msgs := &mockMessageRepo{chats: []domain.ChatInfo{{ChatID: "oc_log", Name: "bot-log"}}}

	res, err := newTestDigest(sheet, chat, msgs).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 30, res.Items)
	assert.Equal(t, 2, res.Posts)
	assert.Equal(t, "oc_log", res.ChatID)

	posts := msgs.Posts()
	require.Len(t, posts, 2)
	assert.Len(t, posts[0].Post.Fields, 25)
	assert.Len(t, posts[1].Post.Fields, 5)
	assert.Equal(t, "🌅 昨日の商材まとめ（30件） - 1/2", posts[0].Post.Title)
	assert.Equal(t, "🌅 昨日の商材まとめ（30件） - 2/2", posts[1].Post.Title)
	assert.Equal(t, "いい一日でした", posts[0].Post.Footer)
	assert.Empty(t, posts[1].Post.Footer)

	reqs := chat.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].User, "digest:\n・Item 0（ヤマダデンキ）"))
	assert.Equal(t, 6, strings.Count(reqs[0].User, "・"))
}

func TestDigest_Run_FooterFallback(t *testing.T) {
	sheet := &mockSheetRepo{grid: digestGrid(2, 0)}
	chat := &mockChatRepo{respond: func(req repo.CompletionRequest) (string, error) { return "", errors.New("boom") }}
	msgs := &mockMessageRepo{chats: []domain.ChatInfo{{ChatID: "oc_log", Name: "bot-log"}}}

	res, err := newTestDigest(sheet, chat, msgs).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Posts)
	assert.Equal(t, "thanks", msgs.Posts()[0].Post.Footer)
	assert.Len(t, chat.Requests(), 2)
}

func TestDigest_Run_SkipWhenEmpty(t *testing.T) {
	sheet := &mockSheetRepo{grid: digestGrid(0, 3)}
	chat := &mockChatRepo{}
	msgs := &mockMessageRepo{chats: []domain.ChatInfo{{ChatID: "oc_log", Name: "bot-log"}}}

	res, err := newTestDigest(sheet, chat, msgs).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "no records", res.Skipped)
	assert.Empty(t, msgs.Posts())
	assert.Empty(t, chat.Requests())
}

func TestDigest_Run_SkipWithoutTarget(t *testing.T) {
	sheet := &mockSheetRepo{grid: digestGrid(1, 0)}
	msgs := &mockMessageRepo{chats: []domain.ChatInfo{{ChatID: "oc_x", Name: "general"}}}

	res, err := newTestDigest(sheet, &mockChatRepo{}, msgs).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "no target chat", res.Skipped)
	assert.Empty(t, msgs.Posts())
}

func TestDigest_Run_ReadError(t *testing.T) {
	sheet := &mockSheetRepo{readErr: errors.New("quota")}
	_, err := newTestDigest(sheet, &mockChatRepo{}, &mockMessageRepo{}).Run(t.Context())
	assert.Error(t, err)
}

func TestBuildDigestPost_Defaults(t *testing.T) {
	page := domain.DigestPage{Number: 1, Total: 1, Count: 1, Records: []domain.ProductRecord{{}}}
	post := BuildDigestPost(page, testPersona())

	assert.Equal(t, "お兄さま＆みなさま、昨日もおつかれさまでした！", post.Description)
	require.Len(t, post.Fields, 1)
	assert.Equal(t, "不明", post.Fields[0].Name)
	assert.Equal(t, "ASIN: —\nAmazon参考: —\n店舗: —", post.Fields[0].Value)
}

func TestDigest_Run_StalledOneLinerStillPosts(t *testing.T) {
	sheet := &mockSheetRepo{grid: digestGrid(3, 0)}
	chat := &mockChatRepo{hang: true}
	msgs := &mockMessageRepo{chats: []domain.ChatInfo{{ChatID: "oc_log", Name: "bot-log"}}}

	uc := newTestDigest(sheet, chat, msgs)
	uc.config.CallTimeout = 20 * time.Millisecond
	uc.config.Model = "gpt-digest"

	done := make(chan struct{})
	var res *JobResult
	var err error
	go func() {
		res, err = uc.Run(t.Context())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("digest blocked on a stalled completion")
	}
	require.NoError(t, err)
	assert.Equal(t, 1, res.Posts)
	assert.Equal(t, "thanks", msgs.Posts()[0].Post.Footer)

	reqs := chat.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "gpt-digest", reqs[0].Model)
}
