package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oddsguard/internal/market"
	"oddsguard/internal/rules"
	"oddsguard/internal/storage"
)

type recordingChannel struct {
	name      string
	delivered []AlertSummary
	err       error
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, summary AlertSummary) error {
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, summary)
	return nil
}

func testQuote() market.QuoteSnapshot {
	return market.QuoteSnapshot{
		Ticker: "T1",
		Away:   market.Side{Name: "Bills", Price: decimal.NewFromFloat(0.35), RawRecord: "9-1"},
		Home:   market.Side{Name: "Jets", Price: decimal.NewFromFloat(0.65), RawRecord: "3-7"},
	}
}

func failingOutcome(rule rules.RuleType, sev rules.Severity) rules.Outcome {
	return rules.Outcome{
		Rule:     rule,
		Severity: sev,
		Passed:   false,
		Message:  "failure under test",
		At:       time.Now().UTC(),
	}
}

func TestProcessOutcomesCreatesAndDispatchesCritical(t *testing.T) {
	store := newFakeStore()
	channel := &recordingChannel{name: "test"}
	dispatcher := NewDispatcher([]Channel{channel}, zerolog.Nop())
	pipeline := NewPipeline(store, dispatcher, zerolog.Nop())

	ids, err := pipeline.ProcessOutcomes(context.Background(), testQuote(), []rules.Outcome{
		failingOutcome(rules.RuleRecordCorrelation, rules.SeverityCritical),
	})
	if err != nil {
		t.Fatalf("ProcessOutcomes failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 new alert, got %d", len(ids))
	}

	alert, getErr := store.GetAlert(context.Background(), ids[0])
	if getErr != nil {
		t.Fatalf("stored alert missing: %v", getErr)
	}
	if alert.Status != storage.StatusOpen {
		t.Fatalf("new alert status = %s, want open", alert.Status)
	}
	if alert.Title != "REVERSED ODDS DETECTED" {
		t.Fatalf("title = %q", alert.Title)
	}

	if len(channel.delivered) != 1 {
		t.Fatalf("critical alert should notify once, got %d deliveries", len(channel.delivered))
	}
	if channel.delivered[0].ID != ids[0] {
		t.Fatalf("delivered alert id = %d, want %d", channel.delivered[0].ID, ids[0])
	}
}

func TestProcessOutcomesIdempotent(t *testing.T) {
	store := newFakeStore()
	channel := &recordingChannel{name: "test"}
	pipeline := NewPipeline(store, NewDispatcher([]Channel{channel}, zerolog.Nop()), zerolog.Nop())

	outcomes := []rules.Outcome{failingOutcome(rules.RuleRecordCorrelation, rules.SeverityCritical)}

	first, err := pipeline.ProcessOutcomes(context.Background(), testQuote(), outcomes)
	if err != nil || len(first) != 1 {
		t.Fatalf("first call: ids=%v err=%v", first, err)
	}

	second, err := pipeline.ProcessOutcomes(context.Background(), testQuote(), outcomes)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second call should create nothing, got %v", second)
	}
	if len(channel.delivered) != 1 {
		t.Fatalf("deduplicated alert must not re-notify, got %d deliveries", len(channel.delivered))
	}
}

func TestProcessOutcomesSkipsPassingAndInfo(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, nil, zerolog.Nop())

	passing := failingOutcome(rules.RuleOddsRange, rules.SeverityCritical)
	passing.Passed = true
	infoFail := failingOutcome(rules.RuleUpsetDetection, rules.SeverityInfo)

	ids, err := pipeline.ProcessOutcomes(context.Background(), testQuote(), []rules.Outcome{passing, infoFail})
	if err != nil {
		t.Fatalf("ProcessOutcomes failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("passing and info outcomes must not create alerts, got %v", ids)
	}
}

func TestProcessOutcomesWarningNeverNotifies(t *testing.T) {
	store := newFakeStore()
	channel := &recordingChannel{name: "test"}
	pipeline := NewPipeline(store, NewDispatcher([]Channel{channel}, zerolog.Nop()), zerolog.Nop())

	ids, err := pipeline.ProcessOutcomes(context.Background(), testQuote(), []rules.Outcome{
		failingOutcome(rules.RuleProbabilitySum, rules.SeverityWarning),
	})
	if err != nil || len(ids) != 1 {
		t.Fatalf("warning alert should be recorded: ids=%v err=%v", ids, err)
	}
	if len(channel.delivered) != 0 {
		t.Fatal("warning alerts must not trigger notification")
	}
}

func TestProcessOutcomesPartialFailure(t *testing.T) {
	store := newFakeStore()
	storeErr := errors.New("db down for this key")
	store.failFor[rules.RuleProbabilitySum] = storeErr
	pipeline := NewPipeline(store, nil, zerolog.Nop())

	ids, err := pipeline.ProcessOutcomes(context.Background(), testQuote(), []rules.Outcome{
		failingOutcome(rules.RuleProbabilitySum, rules.SeverityWarning),
		failingOutcome(rules.RuleRecordCorrelation, rules.SeverityCritical),
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected the store failure surfaced, got %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("remaining outcomes must still be attempted, got ids=%v", ids)
	}
}

func TestProcessOutcomesRecreatesAfterResolve(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, nil, zerolog.Nop())
	lifecycle := NewLifecycle(store, zerolog.Nop())
	ctx := context.Background()

	outcomes := []rules.Outcome{failingOutcome(rules.RuleRecordCorrelation, rules.SeverityCritical)}

	first, _ := pipeline.ProcessOutcomes(ctx, testQuote(), outcomes)
	if len(first) != 1 {
		t.Fatalf("expected initial alert, got %v", first)
	}

	if ok, err := lifecycle.Resolve(ctx, first[0], "fixed upstream", "ops"); !ok || err != nil {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}

	second, err := pipeline.ProcessOutcomes(ctx, testQuote(), outcomes)
	if err != nil {
		t.Fatalf("ProcessOutcomes failed: %v", err)
	}
	if len(second) != 1 {
		t.Fatal("resolved alerts must not block re-creation")
	}
	if second[0] == first[0] {
		t.Fatal("re-created alert should be a fresh row")
	}
}

func TestProcessOutcomesAcknowledgedStillBlocks(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(store, nil, zerolog.Nop())
	lifecycle := NewLifecycle(store, zerolog.Nop())
	ctx := context.Background()

	outcomes := []rules.Outcome{failingOutcome(rules.RuleRecordCorrelation, rules.SeverityCritical)}
	first, _ := pipeline.ProcessOutcomes(ctx, testQuote(), outcomes)

	if ok, err := lifecycle.Acknowledge(ctx, first[0], "ops", ""); !ok || err != nil {
		t.Fatalf("acknowledge failed: ok=%v err=%v", ok, err)
	}

	second, _ := pipeline.ProcessOutcomes(ctx, testQuote(), outcomes)
	if len(second) != 0 {
		t.Fatal("acknowledged alerts represent tracked issues and must still deduplicate")
	}
}
