package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

func TestEnrich_ByASIN(t *testing.T) {
	pricing := &mockPricingRepo{result: &domain.PricingResult{
		Found: true,
		Title: "Widget",
		ASIN:  "B0ABC12345",
		Stats: domain.PriceStats{Current: map[string]int{"amazon": -1, "buyBox": 2980}},
	}}
	uc := NewEnrichUsecase(pricing, zerolog.Nop(), nil)

	got := uc.Enrich(context.Background(), domain.ExtractionResult{
		Identifiers:    domain.Identifiers{ASIN: "B0ABC12345"},
		PriceCandidate: 1500,
	})

	require.Len(t, pricing.calls, 1)
	assert.Equal(t, "B0ABC12345", pricing.calls[0].ASIN)
	assert.Equal(t, "Widget", got.Title)
	assert.Equal(t, 2980, got.ReferencePrice)
	assert.Equal(t, 1500, got.PriceCandidate)
}

func TestEnrich_JANDiscoversASIN(t *testing.T) {
	pricing := &mockPricingRepo{result: &domain.PricingResult{
		Found: true,
		Title: "Shampoo",
		ASIN:  "B0SHAMPOO1",
	}}
	uc := NewEnrichUsecase(pricing, zerolog.Nop(), nil)

	got := uc.Enrich(context.Background(), domain.ExtractionResult{
		Identifiers: domain.Identifiers{JAN: "4901234567890"},
	})

	assert.Equal(t, "B0SHAMPOO1", got.ASIN)
	assert.Equal(t, "4901234567890", got.JAN)
	assert.Zero(t, got.ReferencePrice)
}

func TestEnrich_KeepsOriginalASIN(t *testing.T) {
	pricing := &mockPricingRepo{result: &domain.PricingResult{Found: true, ASIN: "B0OTHER000"}}
	uc := NewEnrichUsecase(pricing, zerolog.Nop(), nil)

	got := uc.Enrich(context.Background(), domain.ExtractionResult{
		Identifiers: domain.Identifiers{ASIN: "B0ABC12345"},
	})
	assert.Equal(t, "B0ABC12345", got.ASIN)
}

func TestEnrich_FailureDegrades(t *testing.T) {
	pricing := &mockPricingRepo{err: errors.New("503")}
	uc := NewEnrichUsecase(pricing, zerolog.Nop(), nil)

	res := domain.ExtractionResult{
		Identifiers: domain.Identifiers{ASIN: "B0ABC12345"},
		StoreChain:  "ヤマダデンキ",
	}
	got := uc.Enrich(context.Background(), res)

	assert.Equal(t, res, got.ExtractionResult)
	assert.Empty(t, got.Title)
	assert.Zero(t, got.ReferencePrice)
}

func TestEnrich_NoIdentifiersSkipsLookup(t *testing.T) {
	pricing := &mockPricingRepo{}
	uc := NewEnrichUsecase(pricing, zerolog.Nop(), nil)

	uc.Enrich(context.Background(), domain.ExtractionResult{StoreChain: "ヤマダデンキ"})
	assert.Empty(t, pricing.calls)
}
