package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oddsguard/internal/market"
	"oddsguard/internal/rules"
)

// Engine runs the rule catalog against single quote snapshots. It holds no
// mutable state, so one Engine may serve concurrent callers.
type Engine struct {
	catalog []rules.Rule
	logger  zerolog.Logger
}

// New constructs an engine over the full fixed catalog.
func New(logger zerolog.Logger) *Engine {
	return NewWithCatalog(rules.Catalog(), logger)
}

// NewWithCatalog constructs an engine over an explicit rule set.
func NewWithCatalog(catalog []rules.Rule, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// Validate evaluates every applicable rule and reports the verdict. Rules
// whose optional inputs are absent abstain and are omitted from the result.
// A rule that panics is downgraded to an info outcome carrying the error
// text; it never aborts the remaining rules.
func (e *Engine) Validate(q market.QuoteSnapshot, history []market.Matchup) (bool, []rules.Outcome) {
	outcomes := make([]rules.Outcome, 0, len(e.catalog))
	for _, rule := range e.catalog {
		out, recorded := e.evaluate(rule, q, history)
		if !recorded {
			continue
		}
		outcomes = append(outcomes, out)
		if !out.Passed {
			e.logger.Debug().
				Str("ticker", q.Ticker).
				Str("rule", string(out.Rule)).
				Str("severity", string(out.Severity)).
				Msg(out.Message)
		}
	}
	return rules.Valid(outcomes), outcomes
}

func (e *Engine) evaluate(rule rules.Rule, q market.QuoteSnapshot, history []market.Matchup) (out rules.Outcome, recorded bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("ticker", q.Ticker).
				Str("rule", string(rule.Type())).
				Interface("panic", r).
				Msg("rule evaluation panicked")
			out = rules.Outcome{
				Rule:     rule.Type(),
				Severity: rules.SeverityInfo,
				Passed:   true,
				Message:  fmt.Sprintf("rule evaluation failed: %v", r),
				Details:  rules.EvaluationErrorDetails{Err: fmt.Sprint(r)},
				At:       time.Now().UTC(),
			}
			recorded = true
		}
	}()

	return rule.Evaluate(q, history)
}
