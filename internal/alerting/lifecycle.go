package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oddsguard/internal/rules"
	"oddsguard/internal/storage"
)

// Lifecycle exposes the alert state transitions:
// open -> acknowledged -> resolved, open -> resolved (direct), and
// open -> false_positive. Repeated calls on an alert already in the target
// state are no-ops, not errors.
type Lifecycle struct {
	store  storage.AlertStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewLifecycle constructs a lifecycle manager over the alert store.
func NewLifecycle(store storage.AlertStore, logger zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		store:  store,
		logger: logger.With().Str("component", "lifecycle").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Acknowledge marks an open alert as seen by actor. Acknowledging twice
// keeps the first actor and timestamp. Returns false when the alert is
// already resolved or dismissed.
func (l *Lifecycle) Acknowledge(ctx context.Context, id int64, actor, notes string) (bool, error) {
	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert %d: %w", id, err)
	}

	switch alert.Status {
	case storage.StatusAcknowledged:
		return true, nil
	case storage.StatusResolved, storage.StatusFalsePositive:
		return false, nil
	}

	now := l.now()
	alert.Status = storage.StatusAcknowledged
	alert.AcknowledgedBy = &actor
	alert.AcknowledgedAt = &now
	if notes != "" {
		alert.ResolutionNotes = &notes
	}

	if err := l.store.UpdateAlert(ctx, alert); err != nil {
		return false, fmt.Errorf("acknowledge alert %d: %w", id, err)
	}
	l.logger.Info().Int64("alert_id", id).Str("actor", actor).Msg("alert acknowledged")
	return true, nil
}

// Resolve closes an alert, directly from open or after acknowledgement. It
// always stamps the resolution notes and, when no acknowledging actor was
// recorded, records the resolving actor as such. Resolving twice is a no-op;
// a dismissed alert cannot be resolved.
func (l *Lifecycle) Resolve(ctx context.Context, id int64, notes, actor string) (bool, error) {
	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return false, fmt.Errorf("resolve alert %d: %w", id, err)
	}

	switch alert.Status {
	case storage.StatusResolved:
		return true, nil
	case storage.StatusFalsePositive:
		return false, nil
	}

	now := l.now()
	alert.Status = storage.StatusResolved
	alert.ResolutionNotes = &notes
	if alert.AcknowledgedBy == nil && actor != "" {
		alert.AcknowledgedBy = &actor
		alert.AcknowledgedAt = &now
	}

	if err := l.store.UpdateAlert(ctx, alert); err != nil {
		return false, fmt.Errorf("resolve alert %d: %w", id, err)
	}
	l.logger.Info().Int64("alert_id", id).Msg("alert resolved")
	return true, nil
}

// MarkFalsePositive dismisses an open alert. Only open alerts may be
// dismissed; dismissing an already dismissed alert is a no-op.
func (l *Lifecycle) MarkFalsePositive(ctx context.Context, id int64) (bool, error) {
	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return false, fmt.Errorf("dismiss alert %d: %w", id, err)
	}

	switch alert.Status {
	case storage.StatusFalsePositive:
		return true, nil
	case storage.StatusAcknowledged, storage.StatusResolved:
		return false, nil
	}

	alert.Status = storage.StatusFalsePositive
	if err := l.store.UpdateAlert(ctx, alert); err != nil {
		return false, fmt.Errorf("dismiss alert %d: %w", id, err)
	}
	l.logger.Info().Int64("alert_id", id).Msg("alert dismissed as false positive")
	return true, nil
}

// ListActive returns open and acknowledged alerts, optionally filtered by
// severity, most recent first.
func (l *Lifecycle) ListActive(ctx context.Context, severity *rules.Severity, limit int) ([]storage.Alert, error) {
	return l.store.ListAlerts(ctx, storage.AlertFilter{
		Severity: severity,
		Statuses: []storage.AlertStatus{storage.StatusOpen, storage.StatusAcknowledged},
		Limit:    limit,
	})
}
