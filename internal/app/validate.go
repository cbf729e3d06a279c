package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"oddsguard/internal/alerting"
	"oddsguard/internal/engine"
	"oddsguard/internal/market"
)

// Validate runs one quote through the rule catalog and prints the outcomes.
// With opts.Process the outcomes are also fed through the alert pipeline,
// which requires a configured database.
func (a *App) Validate(ctx context.Context, opts ValidateOptions) error {
	if opts.Ticker == "" {
		return errors.New("--ticker is required")
	}

	quote := market.QuoteSnapshot{
		Ticker:      opts.Ticker,
		Away:        market.Side{Name: opts.AwayName, Price: decimal.NewFromFloat(opts.AwayPrice), RawRecord: opts.AwayRecord},
		Home:        market.Side{Name: opts.HomeName, Price: decimal.NewFromFloat(opts.HomePrice), RawRecord: opts.HomeRecord},
		LastUpdated: opts.LastUpdated,
	}

	eng := engine.New(a.Logger)
	valid, outcomes := eng.Validate(quote, nil)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rule\tSeverity\tResult\tMessage")
	for _, out := range outcomes {
		result := "PASS"
		if !out.Passed {
			result = "FAIL"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", out.Rule, out.Severity, result, sanitizeInline(out.Message))
	}
	writer.Flush()

	if valid {
		fmt.Fprintln(os.Stdout, "verdict: VALID")
	} else {
		fmt.Fprintln(os.Stdout, "verdict: INVALID")
	}

	if !opts.Process {
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot process alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipeline := alerting.NewPipeline(store, a.newDispatcher(), a.Logger)
	created, err := pipeline.ProcessOutcomes(ctx, quote, outcomes)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintln(os.Stdout, "no new alerts raised")
	} else {
		fmt.Fprintf(os.Stdout, "alerts raised: %v\n", created)
	}
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
