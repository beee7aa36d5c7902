package biz

import (
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Bundler   *usecase.Bundler
	Sourcing  *usecase.SourcingUsecase
	Enrich    *usecase.EnrichUsecase
	Responder *usecase.ResponderUsecase
	Digest    *usecase.DigestUsecase
	Report    *usecase.ReportUsecase
}
