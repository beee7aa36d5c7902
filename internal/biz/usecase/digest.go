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
	digestTopRecords = 6
	fieldNameRunes   = 256
)

// DigestConfig contains daily digest configuration
type DigestConfig struct {
	Persona     domain.Persona
	ChatID      string // preferred target chat
	ChatName    string // fallback target chat name
	Location    *time.Location
	PageSize    int
	PageDelay   time.Duration
	Model       string
	CallTimeout time.Duration // per completion attempt
	Retry       retry.Policy
}

// DefaultDigestConfig returns default digest configuration
func DefaultDigestConfig(persona domain.Persona) DigestConfig {
	return DigestConfig{
		Persona:     persona,
		ChatName:    "bot-log",
		Location:    time.Local,
		PageSize:    domain.DigestPageSize,
		PageDelay:   1500 * time.Millisecond,
		CallTimeout: 30 * time.Second,
		Retry:       retry.Default,
	}
}

// DigestUsecase posts yesterday's sourced products
type DigestUsecase struct {
	sheet    repo.SheetRepo
	chat     repo.ChatRepo
	messages repo.MessageRepo
	config   DigestConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewDigestUsecase creates a new digest usecase
func NewDigestUsecase(sheet repo.SheetRepo, chat repo.ChatRepo, messages repo.MessageRepo, config DigestConfig, log zerolog.Logger, m *metrics.Metrics) *DigestUsecase {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.PageSize <= 0 {
		config.PageSize = domain.DigestPageSize
	}
	return &DigestUsecase{
		sheet:    sheet,
		chat:     chat,
		messages: messages,
		config:   config,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Run posts the digest of the day before now. Having nothing to post or no
// target chat is a skip, not an error.
func (uc *DigestUsecase) Run(ctx context.Context) (*JobResult, error) {
	result := &JobResult{Job: "digest"}

	grid, err := uc.sheet.ReadAll(ctx)
	if err != nil {
		uc.metrics.Job("digest", "error")
		return result, fmt.Errorf("read sheet: %w", err)
	}
	day := domain.Yesterday(uc.now().In(uc.config.Location))
	records := domain.RecordsOnDay(domain.RecordsFromGrid(grid), day)
	result.Items = len(records)
	if len(records) == 0 {
		uc.log.Info().Str("day", day).Msg("no records for yesterday, skip digest")
		return uc.skip(result, "no records"), nil
	}

	target, err := resolveFirst(ctx, uc.messages, uc.config.ChatID, uc.config.ChatName)
	if err != nil {
		uc.log.Warn().Err(err).Msg("digest target chat not found, skip")
		return uc.skip(result, "no target chat"), nil
	}
	result.ChatID = target.ChatID

	pages := domain.Paginate(records, uc.config.PageSize)
	uc.log.Info().Int("records", len(records)).Int("pages", len(pages)).Str("chat_id", target.ChatID).Msg("posting digest")

	for i, page := range pages {
		post := BuildDigestPost(page, uc.config.Persona)
		if page.Number == 1 {
			post.Footer = uc.oneLiner(ctx, records)
		}
		if err := uc.messages.SendPost(ctx, target.ChatID, post); err != nil {
			uc.metrics.Job("digest", "error")
			return result, fmt.Errorf("send digest page %d/%d: %w", page.Number, page.Total, err)
		}
		result.Posts++
		if i < len(pages)-1 {
			if err := sleepCtx(ctx, uc.config.PageDelay); err != nil {
				return result, err
			}
		}
	}
	uc.metrics.Job("digest", "ok")
	return result, nil
}

func (uc *DigestUsecase) skip(result *JobResult, why string) *JobResult {
	uc.metrics.Job("digest", "skipped")
	result.Skipped = why
	return result
}

// BuildDigestPost renders one digest page
func BuildDigestPost(page domain.DigestPage, persona domain.Persona) domain.Post {
	post := domain.Post{
		Title:       fmt.Sprintf("🌅 昨日の商材まとめ（%d件） - %d/%d", page.Count, page.Number, page.Total),
		Description: fmt.Sprintf("%s＆%s、昨日もおつかれさまでした！", persona.OwnerLabel, persona.MemberLabel),
		Fields:      make([]domain.PostField, 0, len(page.Records)),
	}
	for _, r := range page.Records {
		post.Fields = append(post.Fields, domain.PostField{
			Name: TruncateRunes(orDefault(r.Title, "不明"), fieldNameRunes),
			Value: fmt.Sprintf("ASIN: %s\nAmazon参考: %s\n店舗: %s",
				orDefault(r.ASIN, "—"), priceOrDash(r.ReferencePrice), orDefault(r.StoreChain, "—")),
		})
	}
	return post
}

// oneLiner asks the chat model for a short comment on the top records
func (uc *DigestUsecase) oneLiner(ctx context.Context, records []domain.ProductRecord) string {
	p := uc.config.Persona
	if uc.chat == nil {
		return p.DigestFallback
	}

	n := len(records)
	if n > digestTopRecords {
		n = digestTopRecords
	}
	tops := make([]string, 0, n)
	for _, r := range records[:n] {
		tops = append(tops, fmt.Sprintf("%s（%s）", orDefault(r.Title, "不明"), orDefault(r.StoreChain, "—")))
	}
	req := repo.CompletionRequest{
		Model:       uc.config.Model,
		System:      p.ChatSystemPrompt,
		User:        p.DigestPrompt + "・" + strings.Join(tops, "\n・"),
		MaxTokens:   220,
		Temperature: 0.6,
	}

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
		uc.metrics.Completion("digest", "fallback")
		uc.log.Warn().Err(err).Msg("digest one-liner failed, using fallback")
		return p.DigestFallback
	}
	uc.metrics.Completion("digest", "ok")
	return text
}
