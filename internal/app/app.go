// Package app wires configuration, repositories and usecases into the
// running bot and its one-shot jobs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/api"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/usecase"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/conf"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/data"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/infra/feishu"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/logging"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/server"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/service"
)

const (
	defaultDigestTime = "08:30"
	defaultReportTime = "08:35"
	shutdownTimeout   = 15 * time.Second
)

// App holds every long-lived component
type App struct {
	Config   *conf.Config
	Repos    *data.Repositories
	Usecases *biz.Usecases
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	feishu *feishu.Client
	log    zerolog.Logger
}

// New builds repositories and usecases. Nothing connects to Feishu until Serve.
func New(ctx context.Context, cfg *conf.Config, log zerolog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logging.Component(log, "feishu"))

	repos, err := data.NewRepositories(ctx, cfg, client, log)
	if err != nil {
		return nil, fmt.Errorf("create repositories: %w", err)
	}

	return &App{
		Config:   cfg,
		Repos:    repos,
		Usecases: newUsecases(cfg, repos, log, m),
		Metrics:  m,
		Registry: reg,
		feishu:   client,
		log:      log,
	}, nil
}

func newUsecases(cfg *conf.Config, repos *data.Repositories, log zerolog.Logger, m *metrics.Metrics) *biz.Usecases {
	persona := cfg.Persona

	enrich := usecase.NewEnrichUsecase(repos.Pricing, logging.Component(log, "enrich"), m)

	sourcingCfg := usecase.DefaultSourcingConfig()
	sourcingCfg.BotName = cfg.Bot.Name
	sourcingCfg.Channels = cfg.Channels
	sourcingCfg.SheetsDisabled = cfg.Sheet.Disabled
	sourcingCfg.AppendTimeout = cfg.Sheet.AppendTimeout
	sourcingCfg.Location = cfg.Location
	sourcing := usecase.NewSourcingUsecase(repos.Message, enrich, repos.Sheet, sourcingCfg, logging.Component(log, "sourcing"), m)

	bundler := usecase.NewBundler(usecase.BundlerConfig{
		Inactivity:   cfg.Bundle.Inactivity,
		MaxWindow:    cfg.Bundle.MaxWindow,
		PollInterval: cfg.Bundle.PollInterval,
	}, sourcing.ProcessBundle, logging.Component(log, "bundler"), m)

	responderCfg := usecase.DefaultResponderConfig(persona)
	responderCfg.OwnerIDs = cfg.Bot.OwnerIDs
	if len(cfg.Bot.CallNames) > 0 {
		responderCfg.CallNames = cfg.Bot.CallNames
	}
	if len(cfg.Bot.CallPrefixes) > 0 {
		responderCfg.CallPrefixes = cfg.Bot.CallPrefixes
	}
	responderCfg.Model = cfg.OpenAI.Model
	responder := usecase.NewResponderUsecase(repos.Chat, repos.Message, responderCfg, logging.Component(log, "responder"), m)

	digestCfg := usecase.DefaultDigestConfig(persona)
	digestCfg.ChatID = cfg.Report.DigestChatID
	digestCfg.ChatName = cfg.Report.DigestChatName
	digestCfg.Location = cfg.Location
	digestCfg.Model = cfg.OpenAI.Model
	digest := usecase.NewDigestUsecase(repos.Sheet, repos.Chat, repos.Message, digestCfg, logging.Component(log, "digest"), m)

	reportCfg := usecase.DefaultReportConfig(persona)
	reportCfg.ChatID = cfg.Report.ReportChatID
	reportCfg.DigestChatID = cfg.Report.DigestChatID
	reportCfg.ChatName = cfg.Report.DigestChatName
	reportCfg.SummaryChats = cfg.Report.SummaryChats
	reportCfg.FallbackAll = cfg.Report.FallbackAll
	reportCfg.Debug = cfg.Report.Debug
	reportCfg.Window = domain.ParseWindowMode(cfg.Report.Window)
	reportCfg.Location = cfg.Location
	reportCfg.Model = cfg.OpenAI.ReportModel
	report := usecase.NewReportUsecase(repos.Chat, repos.Message, reportCfg, logging.Component(log, "report"), m)

	return &biz.Usecases{
		Bundler:   bundler,
		Sourcing:  sourcing,
		Enrich:    enrich,
		Responder: responder,
		Digest:    digest,
		Report:    report,
	}
}

// Jobs returns the daily jobs at their configured times
func (a *App) Jobs() []service.Job {
	dh, dm := service.ParseHHMM(a.Config.Schedule.DigestTime, defaultDigestTime)
	rh, rm := service.ParseHHMM(a.Config.Schedule.ReportTime, defaultReportTime)
	return []service.Job{
		{Name: "digest", Hour: dh, Minute: dm, Run: discard(a.Usecases.Digest.Run)},
		{Name: "report", Hour: rh, Minute: rm, Run: discard(a.Usecases.Report.Run)},
	}
}

func discard(run func(ctx context.Context) (*usecase.JobResult, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := run(ctx)
		return err
	}
}

// APIServer builds the admin API
func (a *App) APIServer() *api.Server {
	s := api.NewServer(a.Config.API.Addr, a.Usecases.Bundler, a.Usecases.Sourcing, a.Registry, logging.Component(a.log, "api"))
	s.RegisterJob("digest", a.Usecases.Digest.Run)
	s.RegisterJob("report", a.Usecases.Report.Run)
	return s
}

// Serve runs the Feishu event loop, the admin API and the scheduler until
// ctx is cancelled or one of them fails, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := server.NewFeishuServer(
		a.feishu,
		a.Repos.Message,
		a.Repos.Dedup,
		a.Usecases.Responder,
		a.Usecases.Bundler,
		logging.Component(a.log, "server"),
		a.Metrics,
	)
	apiServer := a.APIServer()
	scheduler := service.NewDailyScheduler(a.Config.Location, logging.Component(a.log, "scheduler"), a.Jobs()...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The websocket client keeps running after ctx is done
		errc := make(chan error, 1)
		go func() { errc <- srv.Start(gctx) }()
		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("feishu: %w", err)
			}
			return nil
		case <-gctx.Done():
			srv.Stop()
			return nil
		}
	})

	g.Go(func() error {
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Stop(shutdownCtx)
	})

	scheduler.Start(gctx)
	a.log.Info().Str("bot", a.Config.Bot.Name).Msg("sourcing bot started")

	err := g.Wait()
	scheduler.Stop()
	a.log.Info().Msg("shutting down")
	return err
}

// Close flushes pending bundles, waits for background sheet writes and
// releases the repositories
func (a *App) Close() error {
	a.Usecases.Bundler.Close()
	a.Usecases.Sourcing.Wait()
	return a.Repos.Close()
}
