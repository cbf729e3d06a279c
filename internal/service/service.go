package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oddsguard/internal/alerting"
	"oddsguard/internal/config"
	"oddsguard/internal/engine"
	"oddsguard/internal/fetcher"
	"oddsguard/internal/market"
	"oddsguard/internal/scheduler"
	"oddsguard/internal/storage"
)

// Service orchestrates the watch loop: fetch quotes, validate, audit, and
// drive the alert pipeline.
type Service struct {
	scheduler *scheduler.Scheduler
	quotes    fetcher.QuoteProvider
	history   fetcher.HistoryProvider
	engine    *engine.Engine
	pipeline  *alerting.Pipeline
	audit     storage.AuditStore
	logger    zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64
}

// New constructs the watch service. history, pipeline, and audit may be nil
// when the corresponding collaborator is not configured.
func New(cfg *config.Config, sched *scheduler.Scheduler, quotes fetcher.QuoteProvider, history fetcher.HistoryProvider, eng *engine.Engine, pipeline *alerting.Pipeline, audit storage.AuditStore, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := audit.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		quotes:    quotes,
		history:   history,
		engine:    eng,
		pipeline:  pipeline,
		audit:     audit,
		logger:    logger.With().Str("component", "service").Logger(),
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned validation loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行单轮行情校验。
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	quotes, err := s.quotes.FetchQuotes(ctx)
	if err != nil {
		return fmt.Errorf("fetch quotes: %w", err)
	}

	invalid := 0
	for _, quote := range quotes {
		if !s.ValidateQuote(ctx, quote) {
			invalid++
		}
	}

	s.logger.Info().
		Time("tick", tick).
		Int("quotes", len(quotes)).
		Int("invalid", invalid).
		Msg("validation pass complete")
	return nil
}

// ValidateQuote runs one quote through validation, auditing, and the alert
// pipeline. Returns the verdict.
func (s *Service) ValidateQuote(ctx context.Context, quote market.QuoteSnapshot) bool {
	var history []market.Matchup
	if s.history != nil {
		fetched, err := s.history.FetchHistory(ctx, quote.Ticker)
		if err != nil {
			// Missing history is degraded data, not a validation failure;
			// the historical rule abstains.
			s.logger.Warn().Err(err).Str("ticker", quote.Ticker).Msg("history unavailable")
		} else {
			history = fetched
		}
	}

	valid, outcomes := s.engine.Validate(quote, history)

	if s.audit != nil {
		if err := s.audit.AppendOutcomes(ctx, quote.Ticker, outcomes); err != nil {
			s.logger.Error().Err(err).Str("ticker", quote.Ticker).Msg("failed to append audit outcomes")
		}
	}

	if s.pipeline != nil {
		created, err := s.pipeline.ProcessOutcomes(ctx, quote, outcomes)
		if err != nil {
			s.logger.Error().Err(err).Str("ticker", quote.Ticker).Msg("alert processing partially failed")
		}
		if len(created) > 0 {
			s.logger.Info().Str("ticker", quote.Ticker).Ints64("alert_ids", created).Msg("alerts raised")
		}
	}

	if !valid {
		s.logger.Warn().Str("ticker", quote.Ticker).Msg("quote failed validation")
	}
	return valid
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
