package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/extract"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
)

// SourcingConfig contains sourcing configuration
type SourcingConfig struct {
	BotName        string
	Channels       extract.ChannelMap
	SheetsDisabled bool
	AppendTimeout  time.Duration
	ReplyTimeout   time.Duration
	Location       *time.Location
}

// DefaultSourcingConfig returns default sourcing configuration
func DefaultSourcingConfig() SourcingConfig {
	return SourcingConfig{
		BotName:       "ナギサ",
		AppendTimeout: 12 * time.Second,
		ReplyTimeout:  30 * time.Second,
		Location:      time.Local,
	}
}

// SourcingUsecase turns a flushed bundle into a reply and a sheet row
type SourcingUsecase struct {
	messages repo.MessageRepo
	enrich   *EnrichUsecase
	sheet    repo.SheetRepo
	config   SourcingConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	pending sync.WaitGroup
}

// NewSourcingUsecase creates a new sourcing usecase
func NewSourcingUsecase(
	messages repo.MessageRepo,
	enrich *EnrichUsecase,
	sheet repo.SheetRepo,
	config SourcingConfig,
	log zerolog.Logger,
	m *metrics.Metrics,
) *SourcingUsecase {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &SourcingUsecase{
		messages: messages,
		enrich:   enrich,
		sheet:    sheet,
		config:   config,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Extract runs the extraction engine with the configured channel map
func (uc *SourcingUsecase) Extract(text, channelName string) domain.ExtractionResult {
	return extract.Extract(text, channelName, uc.config.Channels)
}

// ProcessBundle is the bundler flush handler. Bundles without any product
// identifier are dropped without a reply.
func (uc *SourcingUsecase) ProcessBundle(b *domain.Bundle, reason domain.FlushReason) {
	first, last := b.First(), b.Last()
	if first == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), uc.config.ReplyTimeout)
	defer cancel()

	channelName := uc.channelName(ctx, first)
	res := uc.Extract(b.JoinedText(), channelName)
	if !res.Any() {
		uc.metrics.Extraction("empty")
		uc.log.Debug().
			Str("chat_id", b.Key.ChannelID).
			Str("user_id", b.Key.UserID).
			Str("reason", string(reason)).
			Msg("no identifiers in bundle")
		return
	}
	uc.metrics.Extraction("identified")

	product := uc.enrich.Enrich(ctx, res)
	uc.log.Info().
		Str("asin", product.ASIN).
		Str("jan", product.JAN).
		Str("store", product.StoreChain).
		Int("buy_price", product.PriceCandidate).
		Int("reference_price", product.ReferencePrice).
		Msg("bundle extracted")

	if err := uc.messages.Reply(ctx, last.ID, FormatSourcingReply(uc.config.BotName, product)); err != nil {
		uc.log.Warn().Err(err).Str("message_id", last.ID).Msg("sourcing reply failed")
	}

	user := first.UserName
	if user == "" {
		user = first.UserID
	}
	record := domain.NewProductRecord(product, user, channelName, uc.now().In(uc.config.Location))
	uc.persist(record)
}

func (uc *SourcingUsecase) channelName(ctx context.Context, msg *domain.InboundMessage) string {
	if msg.ChannelName != "" {
		return msg.ChannelName
	}
	name, err := uc.messages.ChatName(ctx, msg.ChannelID)
	if err != nil {
		uc.log.Debug().Err(err).Str("chat_id", msg.ChannelID).Msg("chat name lookup failed")
		return ""
	}
	return name
}

// persist appends the record in the background, bounded by AppendTimeout
func (uc *SourcingUsecase) persist(record domain.ProductRecord) {
	if uc.config.SheetsDisabled || uc.sheet == nil {
		uc.metrics.SheetAppend("disabled")
		uc.log.Info().Str("record_id", record.ID).Msg("sheets disabled, skip append")
		return
	}

	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), uc.config.AppendTimeout)
		defer cancel()

		start := time.Now()
		err := uc.sheet.AppendRow(ctx, record.Row())
		uc.metrics.ObserveCall("sheet", start)
		switch {
		case err == nil:
			uc.metrics.SheetAppend("ok")
			uc.log.Info().
				Str("record_id", record.ID).
				Dur("elapsed", time.Since(start)).
				Msg("sheet row appended")
		case errors.Is(err, context.DeadlineExceeded):
			uc.metrics.SheetAppend("timeout")
			uc.log.Warn().Str("record_id", record.ID).Msg("sheet append timed out")
		default:
			uc.metrics.SheetAppend("error")
			uc.log.Error().Err(err).Str("record_id", record.ID).Msg("sheet append failed")
		}
	}()
}

// Wait blocks until every background append has finished
func (uc *SourcingUsecase) Wait() {
	uc.pending.Wait()
}
