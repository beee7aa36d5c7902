package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/retry"
)

// ResponderConfig contains conversational reply configuration
type ResponderConfig struct {
	Persona      domain.Persona
	OwnerIDs     []string
	CallNames    []string // matched anywhere in the text
	CallPrefixes []string // matched at the start, case-insensitive
	Model        string
	MaxTokens    int
	Temperature  float32
	CallTimeout  time.Duration
	Retry        retry.Policy
}

// DefaultResponderConfig returns default responder configuration
func DefaultResponderConfig(persona domain.Persona) ResponderConfig {
	return ResponderConfig{
		Persona:      persona,
		CallNames:    []string{persona.Name},
		CallPrefixes: []string{"nagisa:"},
		MaxTokens:    220,
		Temperature:  0.6,
		CallTimeout:  30 * time.Second,
		Retry:        retry.Default,
	}
}

// ResponderUsecase answers messages addressed to the bot
type ResponderUsecase struct {
	chat     repo.ChatRepo
	messages repo.MessageRepo
	config   ResponderConfig
	owners   map[string]bool
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewResponderUsecase creates a new responder usecase
func NewResponderUsecase(chat repo.ChatRepo, messages repo.MessageRepo, config ResponderConfig, log zerolog.Logger, m *metrics.Metrics) *ResponderUsecase {
	owners := make(map[string]bool, len(config.OwnerIDs))
	for _, id := range config.OwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			owners[id] = true
		}
	}
	return &ResponderUsecase{
		chat:     chat,
		messages: messages,
		config:   config,
		owners:   owners,
		log:      log,
		metrics:  m,
	}
}

// ShouldRespond reports whether the message is addressed to the bot
func (uc *ResponderUsecase) ShouldRespond(msg *domain.InboundMessage) bool {
	if msg.MentionsBot {
		return true
	}
	text := strings.TrimSpace(msg.Text)
	for _, name := range uc.config.CallNames {
		if name != "" && strings.Contains(text, name) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, prefix := range uc.config.CallPrefixes {
		if prefix != "" && strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// RoleLabel returns how the bot addresses the sender
func (uc *ResponderUsecase) RoleLabel(userID string) string {
	if uc.owners[userID] {
		return uc.config.Persona.OwnerLabel
	}
	return uc.config.Persona.MemberLabel
}

// Answer produces the reply text. Once the retry policy gives up the fixed
// fallback reply is returned together with the last error.
func (uc *ResponderUsecase) Answer(ctx context.Context, msg *domain.InboundMessage) (string, error) {
	p := uc.config.Persona
	req := repo.CompletionRequest{
		Model:       uc.config.Model,
		System:      p.ChatSystemPrompt,
		User:        fmt.Sprintf(p.ReplyTemplate, uc.RoleLabel(msg.UserID), strings.TrimSpace(msg.Text)),
		MaxTokens:   uc.config.MaxTokens,
		Temperature: uc.config.Temperature,
	}

	var answer string
	err := uc.config.Retry.DoNotify(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, uc.config.CallTimeout)
		defer cancel()

		start := time.Now()
		text, err := uc.chat.Complete(callCtx, req)
		uc.metrics.ObserveCall("chat", start)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("empty completion")
		}
		answer = strings.TrimSpace(text)
		return nil
	}, func(err error, wait time.Duration) {
		uc.log.Debug().Err(err).Dur("wait", wait).Msg("chat completion retry")
	})
	if err != nil {
		uc.metrics.Completion("reply", "fallback")
		return p.FallbackReply, err
	}
	uc.metrics.Completion("reply", "ok")
	return answer, nil
}

// Respond answers msg in its chat; errors never reach the chat surface
func (uc *ResponderUsecase) Respond(ctx context.Context, msg *domain.InboundMessage) {
	text, err := uc.Answer(ctx, msg)
	if err != nil {
		uc.log.Warn().Err(err).Str("message_id", msg.ID).Msg("chat reply failed, using fallback")
	}
	if err := uc.messages.Reply(ctx, msg.ID, text); err != nil {
		uc.log.Warn().Err(err).Str("message_id", msg.ID).Msg("reply failed")
	}
}
