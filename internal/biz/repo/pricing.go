package repo

import (
	"context"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

// PricingRepo is the product pricing lookup interface
type PricingRepo interface {
	// Lookup queries by ASIN when present, else by JAN.
	// A product the service does not know yields Found=false and no error.
	Lookup(ctx context.Context, ids domain.Identifiers) (*domain.PricingResult, error)
}
