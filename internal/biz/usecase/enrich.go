package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
)

// EnrichUsecase adds title and reference price to an extraction result
type EnrichUsecase struct {
	pricing repo.PricingRepo
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewEnrichUsecase creates a new enrich usecase
func NewEnrichUsecase(pricing repo.PricingRepo, log zerolog.Logger, m *metrics.Metrics) *EnrichUsecase {
	return &EnrichUsecase{
		pricing: pricing,
		log:     log,
		metrics: m,
	}
}

// Enrich looks the product up. Lookup failures leave title and price empty;
// the extraction result itself is always carried through.
func (uc *EnrichUsecase) Enrich(ctx context.Context, res domain.ExtractionResult) domain.EnrichedProduct {
	out := domain.EnrichedProduct{ExtractionResult: res}
	if !res.Any() || uc.pricing == nil {
		return out
	}

	start := time.Now()
	found, err := uc.pricing.Lookup(ctx, res.Identifiers)
	uc.metrics.ObserveCall("pricing", start)
	if err != nil {
		uc.metrics.Lookup("error")
		uc.log.Warn().Err(err).
			Str("asin", res.ASIN).
			Str("jan", res.JAN).
			Msg("pricing lookup failed")
		return out
	}
	if found == nil || !found.Found {
		uc.metrics.Lookup("not_found")
		return out
	}
	uc.metrics.Lookup("ok")

	out.Title = found.Title
	out.ReferencePrice = domain.ResolvePrice(found.Stats)
	if out.ASIN == "" && found.ASIN != "" {
		out.ASIN = found.ASIN
	}
	return out
}
