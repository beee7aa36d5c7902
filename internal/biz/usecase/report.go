package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/retry"
)

const (
	attachmentMarker = "[添付あり]"
	partSeparator    = "\n\n---\n\n"
	debugSampleLines = 25
	debugSampleRunes = 1800
)

// ReportConfig contains daily report configuration
type ReportConfig struct {
	Persona      domain.Persona
	ChatID       string   // report target, preferred
	DigestChatID string   // second choice target
	ChatName     string   // fallback target name
	SummaryChats []string // ids, names or name prefixes
	FallbackAll  bool     // read every chat when SummaryChats is empty
	Debug        bool
	Window       domain.WindowMode
	Location     *time.Location
	Model        string
	CallTimeout  time.Duration // per completion attempt
	ChunkRunes   int
	PartRunes    int
	PartDelay    time.Duration
	Retry        retry.Policy
}

// DefaultReportConfig returns default report configuration
func DefaultReportConfig(persona domain.Persona) ReportConfig {
	return ReportConfig{
		Persona:     persona,
		ChatName:    "bot-log",
		Window:      domain.WindowYesterday,
		Location:    time.Local,
		CallTimeout: 60 * time.Second,
		ChunkRunes:  9000,
		PartRunes:   1900,
		PartDelay:   1500 * time.Millisecond,
		Retry:       retry.Default,
	}
}

// ReportUsecase summarizes a window of channel chatter with map-reduce
type ReportUsecase struct {
	chat     repo.ChatRepo
	messages repo.MessageRepo
	config   ReportConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewReportUsecase creates a new report usecase
func NewReportUsecase(chat repo.ChatRepo, messages repo.MessageRepo, config ReportConfig, log zerolog.Logger, m *metrics.Metrics) *ReportUsecase {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.ChunkRunes <= 0 {
		config.ChunkRunes = 9000
	}
	if config.PartRunes <= 0 {
		config.PartRunes = 1900
	}
	return &ReportUsecase{
		chat:     chat,
		messages: messages,
		config:   config,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Run builds and posts the report for the configured window
func (uc *ReportUsecase) Run(ctx context.Context) (*JobResult, error) {
	result := &JobResult{Job: "report"}
	window := domain.SelectWindow(uc.config.Window, uc.now().In(uc.config.Location))

	target, err := resolveFirst(ctx, uc.messages, uc.config.ChatID, uc.config.DigestChatID, uc.config.ChatName)
	if err != nil {
		uc.log.Warn().Err(err).Msg("report target chat not found, skip")
		return uc.skip(result, "no target chat"), nil
	}
	result.ChatID = target.ChatID

	sources, err := uc.sources(ctx)
	if err != nil {
		uc.metrics.Job("report", "error")
		return result, err
	}
	if len(sources) == 0 {
		uc.log.Warn().Msg("no summary chats configured, skip report")
		return uc.skip(result, "no source chats"), nil
	}

	lines := uc.collect(ctx, sources, window)
	result.Items = len(lines)
	uc.log.Info().Str("window", window.Label).Int("chats", len(sources)).Int("lines", len(lines)).Msg("report lines collected")

	if uc.config.Debug {
		uc.debugSample(ctx, target.ChatID, window, lines)
	}
	if len(lines) == 0 {
		return uc.skip(result, "no lines"), nil
	}

	report, err := uc.Summarize(ctx, window.Label, lines)
	if err != nil {
		uc.metrics.Job("report", "error")
		return result, err
	}

	posts, err := uc.post(ctx, target.ChatID, window.Label, report)
	result.Posts = posts
	if err != nil {
		uc.metrics.Job("report", "error")
		return result, err
	}
	uc.metrics.Job("report", "ok")
	return result, nil
}

func (uc *ReportUsecase) skip(result *JobResult, why string) *JobResult {
	uc.metrics.Job("report", "skipped")
	result.Skipped = why
	return result
}

// sources resolves the chats to read from
func (uc *ReportUsecase) sources(ctx context.Context) ([]domain.ChatInfo, error) {
	chats, err := uc.messages.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	tokens := nonEmpty(uc.config.SummaryChats)
	if len(tokens) == 0 {
		if uc.config.FallbackAll {
			return chats, nil
		}
		return nil, nil
	}

	var out []domain.ChatInfo
	seen := make(map[string]bool)
	for _, tok := range tokens {
		c, how, ok := ResolveChat(chats, tok)
		if !ok {
			uc.log.Warn().Str("chat", tok).Msg("summary chat not found")
			continue
		}
		if seen[c.ChatID] {
			continue
		}
		seen[c.ChatID] = true
		uc.log.Debug().Str("chat", tok).Str("chat_id", c.ChatID).Str("by", how).Msg("summary chat resolved")
		out = append(out, c)
	}
	return out, nil
}

// collect reads the window from every source; a failing chat is skipped
func (uc *ReportUsecase) collect(ctx context.Context, sources []domain.ChatInfo, window domain.ReportWindow) []string {
	var lines []string
	for _, c := range sources {
		history, err := uc.messages.History(ctx, c.ChatID, window.Start, window.End)
		if err != nil {
			uc.log.Warn().Err(err).Str("chat_id", c.ChatID).Msg("read history failed")
			continue
		}
		names := make(map[string]string) // sender id -> name, "" once a lookup misses
		for _, m := range history {
			if ln, ok := uc.line(ctx, c, m, names); ok {
				lines = append(lines, ln)
			}
		}
	}
	return lines
}

// line renders one message as "[#chat] who: text"
func (uc *ReportUsecase) line(ctx context.Context, c domain.ChatInfo, m domain.ChannelMessage, names map[string]string) (string, bool) {
	if m.IsBot {
		return "", false
	}
	content := strings.TrimSpace(m.Text)
	if content == "" {
		if !m.HasAttachment {
			return "", false
		}
		content = attachmentMarker
	}
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\n", " ")), " ")

	who := m.SenderName
	if who == "" && m.SenderID != "" {
		name, ok := names[m.SenderID]
		if !ok {
			name, _ = uc.messages.UserName(ctx, c.ChatID, m.SenderID)
			names[m.SenderID] = name
		}
		who = name
	}
	who = orDefault(who, orDefault(m.SenderID, "unknown"))
	return fmt.Sprintf("[#%s] %s: %s", orDefault(c.Name, c.ChatID), who, content), true
}

// Summarize runs the map-reduce summary over lines
func (uc *ReportUsecase) Summarize(ctx context.Context, label string, lines []string) (string, error) {
	p := uc.config.Persona
	chunks := ChunkLines(lines, uc.config.ChunkRunes)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := uc.complete(ctx, repo.CompletionRequest{
			Model:       uc.config.Model,
			System:      p.ReportSystemPrompt,
			User:        fmt.Sprintf(p.MapTemplate, label, i+1, len(chunks), chunk),
			MaxTokens:   900,
			Temperature: 0.3,
		})
		if err != nil {
			uc.log.Warn().Err(err).Int("chunk", i+1).Msg("map summary failed, chunk dropped")
			continue
		}
		partials = append(partials, out)
	}
	if len(partials) == 0 {
		return "", fmt.Errorf("all %d map summaries failed", len(chunks))
	}

	return uc.complete(ctx, repo.CompletionRequest{
		Model:       uc.config.Model,
		System:      p.ReportSystemPrompt,
		User:        fmt.Sprintf(p.ReduceTemplate, label, strings.Join(partials, partSeparator)),
		MaxTokens:   1000,
		Temperature: 0.35,
	})
}

func (uc *ReportUsecase) complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	var text string
	err := uc.config.Retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := withCallTimeout(ctx, uc.config.CallTimeout)
		defer cancel()

		start := time.Now()
		out, err := uc.chat.Complete(callCtx, req)
		uc.metrics.ObserveCall("chat", start)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("empty completion")
		}
		text = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		uc.metrics.Completion("report", "error")
		return "", err
	}
	uc.metrics.Completion("report", "ok")
	return text, nil
}

// post sends the report as one post, or as numbered text parts when long
func (uc *ReportUsecase) post(ctx context.Context, chatID, label, report string) (int, error) {
	title := fmt.Sprintf("📰 %s日報（%s）", uc.config.Persona.Name, label)
	parts := SplitRunes(report, uc.config.PartRunes)
	if len(parts) <= 1 {
		if err := uc.messages.SendPost(ctx, chatID, domain.Post{Title: title, Description: report}); err != nil {
			return 0, fmt.Errorf("send report: %w", err)
		}
		return 1, nil
	}

	for i, part := range parts {
		text := fmt.Sprintf("%s（%d/%d）\n%s", title, i+1, len(parts), part)
		if err := uc.messages.SendText(ctx, chatID, text); err != nil {
			return i, fmt.Errorf("send report part %d/%d: %w", i+1, len(parts), err)
		}
		if i < len(parts)-1 {
			if err := sleepCtx(ctx, uc.config.PartDelay); err != nil {
				return i + 1, err
			}
		}
	}
	return len(parts), nil
}

func (uc *ReportUsecase) debugSample(ctx context.Context, chatID string, window domain.ReportWindow, lines []string) {
	var text string
	if len(lines) == 0 {
		text = fmt.Sprintf("（debug）%s のログが見つかりませんでした。対象チャンネルとBotの参加状況を確認してください。", window.Label)
	} else {
		n := len(lines)
		if n > debugSampleLines {
			n = debugSampleLines
		}
		text = fmt.Sprintf("（debug）%s: %d行を収集\n%s", window.Label, len(lines),
			TruncateRunes(strings.Join(lines[:n], "\n"), debugSampleRunes))
	}
	if err := uc.messages.SendText(ctx, chatID, text); err != nil {
		uc.log.Warn().Err(err).Msg("send debug sample failed")
	}
}
