package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"oddsguard/internal/rules"
)

// AlertStatus is the lifecycle state of a persisted alert.
type AlertStatus string

const (
	StatusOpen          AlertStatus = "open"
	StatusAcknowledged  AlertStatus = "acknowledged"
	StatusResolved      AlertStatus = "resolved"
	StatusFalsePositive AlertStatus = "false_positive"
)

// Alert is the persisted record of one validation failure. At most one alert
// per (ticker, rule_type) may be open or acknowledged at a time; the store
// enforces this with a partial unique index.
type Alert struct {
	ID              int64
	Ticker          string
	Rule            rules.RuleType
	Severity        rules.Severity
	Title           string
	Description     string
	AwayName        string
	AwayPrice       decimal.Decimal
	HomeName        string
	HomePrice       decimal.Decimal
	Status          AlertStatus
	CreatedAt       time.Time
	AcknowledgedBy  *string
	AcknowledgedAt  *time.Time
	ResolutionNotes *string
	UpdatedAt       time.Time
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Severity *rules.Severity
	Statuses []AlertStatus
	Limit    int
}

// DailyOutcomeCount is one day of audit-log aggregates.
type DailyOutcomeCount struct {
	Day      time.Time
	Total    int64
	Failed   int64
	Critical int64
}
