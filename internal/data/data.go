package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/conf"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/infra/feishu"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/logging"
)

// Repositories contains all repositories
type Repositories struct {
	Message repo.MessageRepo
	Pricing repo.PricingRepo
	Chat    repo.ChatRepo
	Sheet   repo.SheetRepo
	Dedup   repo.DedupRepo

	redis *redis.Client
}

// NewRepositories creates all repositories from the configuration
func NewRepositories(ctx context.Context, cfg *conf.Config, feishuClient *feishu.Client, log zerolog.Logger) (*Repositories, error) {
	sheet, err := NewSheetRepo(ctx, cfg.Sheet)
	if err != nil {
		return nil, err
	}

	r := &Repositories{
		Message: NewFeishuRepo(feishuClient),
		Pricing: NewKeepaRepo(KeepaConfig{
			APIKey:  cfg.Keepa.APIKey,
			Domain:  cfg.Keepa.Domain,
			Timeout: cfg.Keepa.Timeout,
		}, logging.Component(log, "keepa")),
		Chat: NewOpenAIRepo(OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}),
		Sheet: sheet,
		Dedup: NewMemoryDedupRepo(cfg.Redis.TTL),
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			sheet.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		r.redis = redis.NewClient(opts)
		if err := r.redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, de-duplication stays in memory")
			r.redis.Close()
			r.redis = nil
		} else {
			r.Dedup = NewRedisDedupRepo(r.redis, cfg.Redis.TTL)
		}
	}

	return r, nil
}

// NewSheetRepo opens the configured sheet backend
func NewSheetRepo(ctx context.Context, cfg conf.SheetConfig) (repo.SheetRepo, error) {
	if cfg.Disabled {
		return disabledSheetRepo{}, nil
	}
	switch cfg.Backend {
	case conf.SheetBackendGoogle:
		return NewGoogleSheetRepo(ctx, GoogleSheetConfig{
			CredentialsFile: cfg.GoogleCredentials,
			SpreadsheetID:   cfg.GoogleSheetID,
			Worksheet:       cfg.Worksheet,
		})
	case conf.SheetBackendPostgres:
		return NewPostgresSheetRepo(ctx, cfg.DatabaseURL)
	case conf.SheetBackendSQLite, "":
		return NewSQLiteSheetRepo(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown sheet backend %q", cfg.Backend)
	}
}

// Close releases the sheet backend and the Redis client
func (r *Repositories) Close() error {
	var errs []error
	if r.Sheet != nil {
		errs = append(errs, r.Sheet.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	return errors.Join(errs...)
}

// ErrSheetDisabled is returned by writes when persistence is turned off
var ErrSheetDisabled = errors.New("sheet persistence disabled")

// disabledSheetRepo stands in when persistence is turned off; it reads empty
type disabledSheetRepo struct{}

func (disabledSheetRepo) AppendRow(ctx context.Context, row []string) error { return ErrSheetDisabled }
func (disabledSheetRepo) ReadAll(ctx context.Context) ([][]string, error)   { return nil, nil }
func (disabledSheetRepo) Close() error                                      { return nil }
