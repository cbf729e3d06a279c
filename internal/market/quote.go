package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is one leg of a two-sided quote.
type Side struct {
	Name string
	// Price is the implied win probability in [0,1].
	Price decimal.Decimal
	// RawRecord is the season win-loss record as reported upstream, e.g. "7-3".
	// Empty when the provider did not supply one.
	RawRecord string
}

// QuoteSnapshot is a single immutable observation of one market.
// Side B (Home) is the home side by convention.
type QuoteSnapshot struct {
	Ticker      string
	Away        Side
	Home        Side
	LastUpdated *time.Time
}

// Matchup is one settled historical meeting between the two sides of a quote.
type Matchup struct {
	PlayedAt time.Time
	Winner   string
}

// WinRate computes how often name won across the given matchups.
// Returns false when no matchups are supplied.
func WinRate(name string, matchups []Matchup) (decimal.Decimal, bool) {
	if len(matchups) == 0 {
		return decimal.Decimal{}, false
	}
	wins := 0
	for _, m := range matchups {
		if m.Winner == name {
			wins++
		}
	}
	return decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(len(matchups)))), true
}
