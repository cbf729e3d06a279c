package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"oddsguard/internal/market"
	"oddsguard/internal/rules"
	"oddsguard/internal/storage"
)

// Pipeline turns failing validation outcomes into deduplicated alerts and
// drives notification fan-out for critical ones.
type Pipeline struct {
	store      storage.AlertStore
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

// NewPipeline constructs the alert pipeline. dispatcher may be nil when
// notification delivery is disabled.
func NewPipeline(store storage.AlertStore, dispatcher *Dispatcher, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// ProcessOutcomes upserts one alert per failing critical/warning outcome,
// keyed on (ticker, rule type). Outcomes already covered by an unresolved
// alert are deduplicated and do not re-trigger notification. Returns the ids
// of newly created alerts; persistence failures are reported per outcome and
// never stop the rest of the batch.
func (p *Pipeline) ProcessOutcomes(ctx context.Context, q market.QuoteSnapshot, outcomes []rules.Outcome) ([]int64, error) {
	created := make([]int64, 0, len(outcomes))
	var errs []error

	for _, out := range outcomes {
		if out.Passed || out.Severity == rules.SeverityInfo {
			continue
		}

		alert := storage.Alert{
			Ticker:      q.Ticker,
			Rule:        out.Rule,
			Severity:    out.Severity,
			Title:       TitleFor(out.Rule),
			Description: out.Message,
			AwayName:    q.Away.Name,
			AwayPrice:   q.Away.Price,
			HomeName:    q.Home.Name,
			HomePrice:   q.Home.Price,
			Status:      storage.StatusOpen,
			CreatedAt:   out.At,
		}

		id, isNew, err := p.store.CreateAlertIfAbsent(ctx, alert)
		if err != nil {
			errs = append(errs, fmt.Errorf("outcome %s/%s: %w", q.Ticker, out.Rule, err))
			continue
		}
		if !isNew {
			p.logger.Debug().
				Str("ticker", q.Ticker).
				Str("rule", string(out.Rule)).
				Msg("alert already open; deduplicated")
			continue
		}

		created = append(created, id)
		p.logger.Info().
			Int64("alert_id", id).
			Str("ticker", q.Ticker).
			Str("rule", string(out.Rule)).
			Str("severity", string(out.Severity)).
			Msg("alert created")

		if out.Severity == rules.SeverityCritical && p.dispatcher != nil {
			alert.ID = id
			p.dispatcher.Dispatch(ctx, SummaryFrom(alert))
		}
	}

	return created, errors.Join(errs...)
}
