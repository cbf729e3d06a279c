package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oddsguard/internal/market"
)

const (
	quotesPath  = "/quotes"
	historyPath = "/history"
)

// FeedOptions parameterise the odds feed client.
type FeedOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Feed fetches quotes and matchup history from the upstream odds API.
type Feed struct {
	opts    FeedOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFeed constructs an odds feed client.
func NewFeed(opts FeedOptions, logger zerolog.Logger) *Feed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Feed{
		opts:    opts,
		logger:  logger.With().Str("component", "feed").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

type sidePayload struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Record string          `json:"record"`
}

type quotePayload struct {
	Ticker      string      `json:"ticker"`
	Away        sidePayload `json:"away"`
	Home        sidePayload `json:"home"`
	LastUpdated *time.Time  `json:"last_updated"`
}

type matchupPayload struct {
	Winner   string    `json:"winner"`
	PlayedAt time.Time `json:"played_at"`
}

// FetchQuotes retrieves the current snapshot for every tracked market.
func (f *Feed) FetchQuotes(ctx context.Context) ([]market.QuoteSnapshot, error) {
	if f.baseURL == "" {
		return nil, errors.New("feed base url required")
	}

	var payload []quotePayload
	if err := f.getJSON(ctx, f.baseURL+quotesPath, &payload); err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	quotes := make([]market.QuoteSnapshot, 0, len(payload))
	for _, p := range payload {
		if p.Ticker == "" {
			f.logger.Warn().Msg("skipping quote without ticker")
			continue
		}
		quotes = append(quotes, market.QuoteSnapshot{
			Ticker:      p.Ticker,
			Away:        market.Side{Name: p.Away.Name, Price: p.Away.Price, RawRecord: p.Away.Record},
			Home:        market.Side{Name: p.Home.Name, Price: p.Home.Price, RawRecord: p.Home.Record},
			LastUpdated: p.LastUpdated,
		})
	}
	return quotes, nil
}

// FetchHistory retrieves settled matchups for one ticker.
func (f *Feed) FetchHistory(ctx context.Context, ticker string) ([]market.Matchup, error) {
	if f.baseURL == "" {
		return nil, errors.New("feed base url required")
	}

	endpoint := f.baseURL + historyPath + "?ticker=" + url.QueryEscape(ticker)
	var payload []matchupPayload
	if err := f.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", ticker, err)
	}

	matchups := make([]market.Matchup, 0, len(payload))
	for _, p := range payload {
		matchups = append(matchups, market.Matchup{Winner: p.Winner, PlayedAt: p.PlayedAt})
	}
	return matchups, nil
}

func (f *Feed) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "oddsguard/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("feed responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode feed response: %w", err)
	}
	return nil
}

var (
	_ QuoteProvider   = (*Feed)(nil)
	_ HistoryProvider = (*Feed)(nil)
)
