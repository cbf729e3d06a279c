package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"oddsguard/internal/alerting"
	"oddsguard/internal/rules"
)

// Alerts prints open and acknowledged alerts.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot list alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var severity *rules.Severity
	if opts.Severity != "" {
		s := rules.Severity(opts.Severity)
		switch s {
		case rules.SeverityCritical, rules.SeverityWarning, rules.SeverityInfo:
			severity = &s
		default:
			return fmt.Errorf("unknown severity %q", opts.Severity)
		}
	}

	lifecycle := alerting.NewLifecycle(store, a.Logger)
	alerts, err := lifecycle.ListActive(ctx, severity, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no active alerts")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tCreated (UTC)\tTicker\tRule\tSeverity\tStatus\tAcked By\tTitle")
	for _, alert := range alerts {
		ackedBy := ""
		if alert.AcknowledgedBy != nil {
			ackedBy = *alert.AcknowledgedBy
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.ID,
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.Ticker,
			alert.Rule,
			alert.Severity,
			alert.Status,
			ackedBy,
			sanitizeInline(alert.Title),
		)
	}
	writer.Flush()
	return nil
}

// Acknowledge marks an alert as seen by actor.
func (a *App) Acknowledge(ctx context.Context, id int64, actor, notes string) error {
	return a.withLifecycle(ctx, func(lifecycle *alerting.Lifecycle) (bool, string, error) {
		ok, err := lifecycle.Acknowledge(ctx, id, actor, notes)
		return ok, "acknowledged", err
	}, id)
}

// Resolve closes an alert with resolution notes.
func (a *App) Resolve(ctx context.Context, id int64, notes, actor string) error {
	return a.withLifecycle(ctx, func(lifecycle *alerting.Lifecycle) (bool, string, error) {
		ok, err := lifecycle.Resolve(ctx, id, notes, actor)
		return ok, "resolved", err
	}, id)
}

// FalsePositive dismisses an open alert.
func (a *App) FalsePositive(ctx context.Context, id int64) error {
	return a.withLifecycle(ctx, func(lifecycle *alerting.Lifecycle) (bool, string, error) {
		ok, err := lifecycle.MarkFalsePositive(ctx, id)
		return ok, "marked false positive", err
	}, id)
}

func (a *App) withLifecycle(ctx context.Context, op func(*alerting.Lifecycle) (bool, string, error), id int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot update alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ok, verb, err := op(alerting.NewLifecycle(store, a.Logger))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("alert %d cannot be %s from its current state", id, verb)
	}
	fmt.Fprintf(os.Stdout, "alert %d %s\n", id, verb)
	return nil
}
