package fetcher

import (
	"context"

	"oddsguard/internal/market"
)

// QuoteProvider retrieves the current quote snapshots to validate.
type QuoteProvider interface {
	FetchQuotes(ctx context.Context) ([]market.QuoteSnapshot, error)
}

// HistoryProvider retrieves settled head-to-head matchups for one market.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, ticker string) ([]market.Matchup, error)
}
