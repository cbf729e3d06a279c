package alerting

import (
	"time"

	"github.com/shopspring/decimal"

	"oddsguard/internal/rules"
	"oddsguard/internal/storage"
)

// AlertSummary is the channel-facing view of a persisted alert.
type AlertSummary struct {
	ID          int64
	Ticker      string
	Rule        rules.RuleType
	Severity    rules.Severity
	Title       string
	Description string
	AwayName    string
	AwayPrice   decimal.Decimal
	HomeName    string
	HomePrice   decimal.Decimal
	CreatedAt   time.Time
}

var alertTitles = map[rules.RuleType]string{
	rules.RuleOddsRange:             "ODDS OUT OF RANGE",
	rules.RuleProbabilitySum:        "PROBABILITY SUM ANOMALY",
	rules.RuleRecordCorrelation:     "REVERSED ODDS DETECTED",
	rules.RuleHomeAdvantage:         "HOME ADVANTAGE ANOMALY",
	rules.RuleHistoricalPerformance: "HISTORICAL PERFORMANCE DEVIATION",
	rules.RuleDataFreshness:         "STALE MARKET DATA",
	rules.RuleUpsetDetection:        "POTENTIAL UPSET",
}

// TitleFor maps a rule type to its fixed alert title.
func TitleFor(rule rules.RuleType) string {
	if title, ok := alertTitles[rule]; ok {
		return title
	}
	return "QUOTE VALIDATION ALERT"
}

// SummaryFrom projects a stored alert for notification delivery.
func SummaryFrom(alert storage.Alert) AlertSummary {
	return AlertSummary{
		ID:          alert.ID,
		Ticker:      alert.Ticker,
		Rule:        alert.Rule,
		Severity:    alert.Severity,
		Title:       alert.Title,
		Description: alert.Description,
		AwayName:    alert.AwayName,
		AwayPrice:   alert.AwayPrice,
		HomeName:    alert.HomeName,
		HomePrice:   alert.HomePrice,
		CreatedAt:   alert.CreatedAt,
	}
}
