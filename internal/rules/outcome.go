package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"oddsguard/internal/market"
)

// RuleType identifies one rule of the catalog.
type RuleType string

const (
	RuleOddsRange             RuleType = "odds_range"
	RuleProbabilitySum        RuleType = "probability_sum"
	RuleRecordCorrelation     RuleType = "record_correlation"
	RuleHomeAdvantage         RuleType = "home_advantage"
	RuleHistoricalPerformance RuleType = "historical_performance"
	RuleDataFreshness         RuleType = "data_freshness"
	RuleUpsetDetection        RuleType = "upset_detection"
)

// Severity ranks an outcome. Only critical failures invalidate a quote.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Outcome is the result of evaluating one rule against one quote.
type Outcome struct {
	Rule     RuleType
	Severity Severity
	Passed   bool
	Message  string
	Details  Details
	At       time.Time
}

// Details is the closed set of per-rule result payloads. One variant exists
// per rule type so consumers switch on concrete types instead of map keys.
type Details interface {
	ruleDetails()
}

// OddsRangeDetails carries the prices checked against the allowed band.
type OddsRangeDetails struct {
	AwayPrice decimal.Decimal `json:"away_price"`
	HomePrice decimal.Decimal `json:"home_price"`
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
}

// ProbabilitySumDetails carries the summed implied probabilities.
type ProbabilitySumDetails struct {
	Sum decimal.Decimal `json:"sum"`
}

// RecordCorrelationDetails carries the win ratios behind a correlation check.
type RecordCorrelationDetails struct {
	AwayRecord string          `json:"away_record"`
	HomeRecord string          `json:"home_record"`
	AwayRatio  decimal.Decimal `json:"away_ratio"`
	HomeRatio  decimal.Decimal `json:"home_ratio"`
	RatioDiff  decimal.Decimal `json:"ratio_diff"`
}

// HomeAdvantageDetails carries the home-minus-away price edge.
type HomeAdvantageDetails struct {
	Edge decimal.Decimal `json:"edge"`
}

// HistoricalDetails carries head-to-head history comparisons.
type HistoricalDetails struct {
	Matchups    int             `json:"matchups"`
	AwayWinRate decimal.Decimal `json:"away_win_rate"`
	HomeWinRate decimal.Decimal `json:"home_win_rate"`
	AwayDrift   decimal.Decimal `json:"away_drift"`
	HomeDrift   decimal.Decimal `json:"home_drift"`
}

// FreshnessDetails carries the quote age.
type FreshnessDetails struct {
	Age time.Duration `json:"age_ns"`
}

// UpsetDetails flags a market priced against the records.
type UpsetDetails struct {
	IsUpsetAlert  bool            `json:"is_upset_alert"`
	FavoredRatio  decimal.Decimal `json:"favored_ratio"`
	UnderdogRatio decimal.Decimal `json:"underdog_ratio"`
}

// EvaluationErrorDetails records a rule implementation failure that was
// recovered by the engine.
type EvaluationErrorDetails struct {
	Err string `json:"error"`
}

func (OddsRangeDetails) ruleDetails()         {}
func (ProbabilitySumDetails) ruleDetails()    {}
func (RecordCorrelationDetails) ruleDetails() {}
func (HomeAdvantageDetails) ruleDetails()     {}
func (HistoricalDetails) ruleDetails()        {}
func (FreshnessDetails) ruleDetails()         {}
func (UpsetDetails) ruleDetails()             {}
func (EvaluationErrorDetails) ruleDetails()   {}

// Rule evaluates one quote. ok=false means the rule abstained because a
// required optional input is missing; no outcome is recorded in that case.
type Rule interface {
	Type() RuleType
	Evaluate(q market.QuoteSnapshot, history []market.Matchup) (Outcome, bool)
}

// Valid reports the verdict for a set of outcomes: a quote is valid unless
// some rule failed at critical severity. Warnings and info never block.
func Valid(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Passed && o.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

func outcome(rule RuleType, sev Severity, passed bool, msg string, details Details) Outcome {
	return Outcome{
		Rule:     rule,
		Severity: sev,
		Passed:   passed,
		Message:  msg,
		Details:  details,
		At:       time.Now().UTC(),
	}
}
