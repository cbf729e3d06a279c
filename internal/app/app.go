package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"oddsguard/internal/alerting"
	"oddsguard/internal/config"
	"oddsguard/internal/engine"
	"oddsguard/internal/fetcher"
	"oddsguard/internal/scheduler"
	"oddsguard/internal/service"
	"oddsguard/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeed() *fetcher.Feed {
	return fetcher.NewFeed(fetcher.FeedOptions{
		BaseURL:   a.Config.Feed.BaseURL,
		Timeout:   a.Config.Feed.RequestTimeout,
		UserAgent: a.Config.Feed.UserAgent,
	}, a.Logger)
}

// newChannels assembles the enabled notification channels. The console
// channel is always present as the guaranteed fallback.
func (a *App) newChannels() []alerting.Channel {
	channels := []alerting.Channel{alerting.NewConsoleChannel(a.Logger)}

	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		channels = append(channels, alerting.NewTelegramChannel(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
	}
	if a.Config.Alerting.Webhook.Enabled {
		cfg := a.Config.Alerting.Webhook
		channels = append(channels, alerting.NewWebhookChannel(cfg.URL, cfg.AuthToken, cfg.Timeout, a.Logger))
	}
	return channels
}

func (a *App) newDispatcher() *alerting.Dispatcher {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	return alerting.NewDispatcher(a.newChannels(), a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running watch service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToInterval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	feed := a.newFeed()
	var history fetcher.HistoryProvider
	if a.Config.Feed.FetchHistory {
		history = feed
	}

	var pipeline *alerting.Pipeline
	var audit storage.AuditStore
	if store != nil {
		pipeline = alerting.NewPipeline(store, a.newDispatcher(), a.Logger)
		audit = store
	}

	eng := engine.New(a.Logger)
	svc := service.New(a.Config, sched, feed, history, eng, pipeline, audit, a.Logger)

	a.Logger.Info().Msg("starting quote watch service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("quote watch service stopped")
	return nil
}

// ValidateOptions hold parameters for one-shot validation.
type ValidateOptions struct {
	Ticker      string
	AwayName    string
	AwayPrice   float64
	AwayRecord  string
	HomeName    string
	HomePrice   float64
	HomeRecord  string
	LastUpdated *time.Time
	Process     bool
}

// AlertsOptions configure the alerts listing.
type AlertsOptions struct {
	Severity string
	Limit    int
}

// ExportOptions hold parameters for exporting audit trends.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
