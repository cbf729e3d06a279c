package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"oddsguard/internal/alerting"
	"oddsguard/internal/engine"
	"oddsguard/internal/market"
	"oddsguard/internal/rules"
	"oddsguard/internal/storage"
)

// SimulateAlert 构造一条赔率与战绩倒挂的报价走一遍告警通道。
// Nothing is persisted; the point is verifying channel connectivity.
func (a *App) SimulateAlert(ctx context.Context) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	dispatcher := a.newDispatcher()
	if dispatcher == nil {
		return errors.New("未配置任何告警通道")
	}

	quote := market.QuoteSnapshot{
		Ticker: "SIMULATED",
		Away:   market.Side{Name: "Simulated Away", Price: decimal.NewFromFloat(0.35), RawRecord: "9-1"},
		Home:   market.Side{Name: "Simulated Home", Price: decimal.NewFromFloat(0.65), RawRecord: "3-7"},
	}

	eng := engine.New(a.Logger)
	_, outcomes := eng.Validate(quote, nil)

	for _, out := range outcomes {
		if out.Passed || out.Severity != rules.SeverityCritical {
			continue
		}
		summary := alerting.SummaryFrom(storage.Alert{
			Ticker:      quote.Ticker,
			Rule:        out.Rule,
			Severity:    out.Severity,
			Title:       alerting.TitleFor(out.Rule),
			Description: out.Message,
			AwayName:    quote.Away.Name,
			AwayPrice:   quote.Away.Price,
			HomeName:    quote.Home.Name,
			HomePrice:   quote.Home.Price,
			CreatedAt:   out.At,
		})
		delivered := dispatcher.Dispatch(ctx, summary)
		fmt.Fprintf(os.Stdout, "simulated alert %s delivered to %d channel(s)\n", out.Rule, delivered)
		return nil
	}

	return errors.New("simulated quote produced no critical failure")
}
