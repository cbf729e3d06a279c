package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"oddsguard/internal/market"
)

func quote(awayPrice, homePrice float64) market.QuoteSnapshot {
	return market.QuoteSnapshot{
		Ticker: "T1",
		Away:   market.Side{Name: "Bills", Price: decimal.NewFromFloat(awayPrice)},
		Home:   market.Side{Name: "Jets", Price: decimal.NewFromFloat(homePrice)},
	}
}

func quoteWithRecords(awayPrice float64, awayRecord string, homePrice float64, homeRecord string) market.QuoteSnapshot {
	q := quote(awayPrice, homePrice)
	q.Away.RawRecord = awayRecord
	q.Home.RawRecord = homeRecord
	return q
}

func TestOddsRange(t *testing.T) {
	cases := []struct {
		name     string
		away     float64
		home     float64
		passed   bool
		severity Severity
	}{
		{"both in range", 0.45, 0.55, true, SeverityInfo},
		{"away too low", 0.005, 0.55, false, SeverityCritical},
		{"home too high", 0.45, 0.995, false, SeverityCritical},
		{"both out", 0.0, 1.0, false, SeverityCritical},
		{"boundary values", 0.01, 0.99, true, SeverityInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := oddsRangeRule{}.Evaluate(quote(tc.away, tc.home), nil)
			if !ok {
				t.Fatal("odds range rule must never abstain")
			}
			if out.Passed != tc.passed || out.Severity != tc.severity {
				t.Fatalf("got passed=%v severity=%s, want passed=%v severity=%s",
					out.Passed, out.Severity, tc.passed, tc.severity)
			}
		})
	}
}

func TestProbabilitySum(t *testing.T) {
	cases := []struct {
		name     string
		away     float64
		home     float64
		passed   bool
		severity Severity
	}{
		{"exact one", 0.40, 0.60, true, SeverityInfo},
		{"inside band high", 0.48, 0.55, true, SeverityInfo},
		{"too low", 0.30, 0.50, false, SeverityCritical},
		{"too high", 0.70, 0.70, false, SeverityWarning},
		{"boundary low", 0.45, 0.50, true, SeverityInfo},
		{"boundary high", 0.50, 0.55, true, SeverityInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := probabilitySumRule{}.Evaluate(quote(tc.away, tc.home), nil)
			if out.Passed != tc.passed || out.Severity != tc.severity {
				t.Fatalf("sum %v: got passed=%v severity=%s, want passed=%v severity=%s",
					tc.away+tc.home, out.Passed, out.Severity, tc.passed, tc.severity)
			}
			details, isSum := out.Details.(ProbabilitySumDetails)
			if !isSum {
				t.Fatalf("details should be ProbabilitySumDetails, got %T", out.Details)
			}
			want := decimal.NewFromFloat(tc.away).Add(decimal.NewFromFloat(tc.home))
			if !details.Sum.Equal(want) {
				t.Fatalf("details sum = %s, want %s", details.Sum, want)
			}
		})
	}
}

func TestRecordCorrelationReversed(t *testing.T) {
	q := quoteWithRecords(0.35, "9-1", 0.65, "3-7")
	out, ok := recordCorrelationRule{}.Evaluate(q, nil)
	if !ok {
		t.Fatal("rule should produce an outcome")
	}
	if out.Passed || out.Severity != SeverityCritical {
		t.Fatalf("reversed odds must fail critical, got passed=%v severity=%s", out.Passed, out.Severity)
	}
	for _, needle := range []string{"REVERSED", "Bills", "Jets", "9-1", "3-7", "0.35", "0.65"} {
		if !strings.Contains(out.Message, needle) {
			t.Fatalf("message %q should contain %q", out.Message, needle)
		}
	}
}

func TestRecordCorrelationAligned(t *testing.T) {
	q := quoteWithRecords(0.35, "3-7", 0.65, "9-1")
	out, _ := recordCorrelationRule{}.Evaluate(q, nil)
	if !out.Passed {
		t.Fatalf("aligned prices should pass: %s", out.Message)
	}
}

func TestRecordCorrelationSimilarRecords(t *testing.T) {
	q := quoteWithRecords(0.45, "7-3", 0.55, "8-3")
	out, _ := recordCorrelationRule{}.Evaluate(q, nil)
	if !out.Passed || out.Severity != SeverityInfo {
		t.Fatalf("similar records should pass info, got passed=%v severity=%s", out.Passed, out.Severity)
	}
}

func TestRecordCorrelationUnparsable(t *testing.T) {
	q := quoteWithRecords(0.45, "not-a-record", 0.55, "9-1")
	out, ok := recordCorrelationRule{}.Evaluate(q, nil)
	if !ok || !out.Passed || out.Severity != SeverityInfo {
		t.Fatalf("unparsable record should degrade to info pass, got ok=%v passed=%v severity=%s",
			ok, out.Passed, out.Severity)
	}
}

func TestHomeAdvantage(t *testing.T) {
	cases := []struct {
		name     string
		q        market.QuoteSnapshot
		passed   bool
		severity Severity
	}{
		{"within expected range", quoteWithRecords(0.45, "7-3", 0.55, "8-3"), true, SeverityInfo},
		{"missing advantage", quoteWithRecords(0.55, "7-3", 0.45, "8-3"), false, SeverityWarning},
		{"excessive advantage", quoteWithRecords(0.40, "7-3", 0.60, "8-3"), false, SeverityWarning},
		{"dissimilar records skip", quoteWithRecords(0.35, "9-1", 0.65, "3-7"), true, SeverityInfo},
		{"unparsable record skip", quoteWithRecords(0.45, "", 0.55, "8-3"), true, SeverityInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := homeAdvantageRule{}.Evaluate(tc.q, nil)
			if !ok {
				t.Fatal("home advantage rule should produce an outcome")
			}
			if out.Passed != tc.passed || out.Severity != tc.severity {
				t.Fatalf("got passed=%v severity=%s, want passed=%v severity=%s",
					out.Passed, out.Severity, tc.passed, tc.severity)
			}
		})
	}
}

func TestHomeAdvantageTinyEdgeWarns(t *testing.T) {
	q := quoteWithRecords(0.495, "7-3", 0.505, "8-3")
	out, _ := homeAdvantageRule{}.Evaluate(q, nil)
	if out.Passed || out.Severity != SeverityWarning {
		t.Fatalf("edge below 0.02 should warn, got passed=%v severity=%s", out.Passed, out.Severity)
	}
}

func TestHistoricalPerformance(t *testing.T) {
	now := time.Now()
	history := []market.Matchup{
		{PlayedAt: now, Winner: "Bills"},
		{PlayedAt: now, Winner: "Bills"},
		{PlayedAt: now, Winner: "Bills"},
		{PlayedAt: now, Winner: "Jets"},
	}

	t.Run("absent history abstains", func(t *testing.T) {
		if _, ok := (historicalPerformanceRule{}).Evaluate(quote(0.5, 0.5), nil); ok {
			t.Fatal("nil history should abstain")
		}
	})

	t.Run("insufficient history passes info", func(t *testing.T) {
		out, ok := historicalPerformanceRule{}.Evaluate(quote(0.5, 0.5), history[:2])
		if !ok || !out.Passed || out.Severity != SeverityInfo {
			t.Fatalf("got ok=%v passed=%v severity=%s", ok, out.Passed, out.Severity)
		}
	})

	t.Run("aligned prices pass", func(t *testing.T) {
		// Bills won 75% of the history; 0.70 is within 0.20.
		out, _ := historicalPerformanceRule{}.Evaluate(quote(0.70, 0.30), history)
		if !out.Passed {
			t.Fatalf("expected pass: %s", out.Message)
		}
	})

	t.Run("deviating price warns", func(t *testing.T) {
		out, _ := historicalPerformanceRule{}.Evaluate(quote(0.30, 0.70), history)
		if out.Passed || out.Severity != SeverityWarning {
			t.Fatalf("got passed=%v severity=%s", out.Passed, out.Severity)
		}
	})
}

func TestDataFreshness(t *testing.T) {
	t.Run("no timestamp abstains", func(t *testing.T) {
		if _, ok := (dataFreshnessRule{}).Evaluate(quote(0.5, 0.5), nil); ok {
			t.Fatal("missing timestamp should abstain")
		}
	})

	t.Run("fresh quote passes", func(t *testing.T) {
		q := quote(0.5, 0.5)
		updated := time.Now().Add(-time.Hour)
		q.LastUpdated = &updated
		out, ok := dataFreshnessRule{}.Evaluate(q, nil)
		if !ok || !out.Passed {
			t.Fatalf("fresh quote should pass, got ok=%v passed=%v", ok, out.Passed)
		}
	})

	t.Run("stale quote warns", func(t *testing.T) {
		q := quote(0.5, 0.5)
		updated := time.Now().Add(-25 * time.Hour)
		q.LastUpdated = &updated
		out, _ := dataFreshnessRule{}.Evaluate(q, nil)
		if out.Passed || out.Severity != SeverityWarning {
			t.Fatalf("stale quote should warn, got passed=%v severity=%s", out.Passed, out.Severity)
		}
	})
}

func TestUpsetDetectionNeverFails(t *testing.T) {
	quotes := []market.QuoteSnapshot{
		quoteWithRecords(0.35, "9-1", 0.65, "3-7"),
		quoteWithRecords(0.65, "9-1", 0.35, "3-7"),
		quoteWithRecords(0.50, "bad", 0.50, ""),
	}
	for _, q := range quotes {
		out, ok := upsetDetectionRule{}.Evaluate(q, nil)
		if !ok || !out.Passed || out.Severity != SeverityInfo {
			t.Fatalf("upset detection is informational only, got ok=%v passed=%v severity=%s",
				ok, out.Passed, out.Severity)
		}
	}
}

func TestUpsetDetectionFlags(t *testing.T) {
	out, _ := upsetDetectionRule{}.Evaluate(quoteWithRecords(0.35, "9-1", 0.65, "3-7"), nil)
	details, isUpset := out.Details.(UpsetDetails)
	if !isUpset {
		t.Fatalf("details should be UpsetDetails, got %T", out.Details)
	}
	if !details.IsUpsetAlert {
		t.Fatal("underdog with stronger record should flag is_upset_alert")
	}

	out, _ = upsetDetectionRule{}.Evaluate(quoteWithRecords(0.35, "3-7", 0.65, "9-1"), nil)
	if out.Details.(UpsetDetails).IsUpsetAlert {
		t.Fatal("favorite with stronger record is not an upset")
	}
}

func TestValidVerdict(t *testing.T) {
	critFail := outcome(RuleOddsRange, SeverityCritical, false, "", nil)
	warnFail := outcome(RuleProbabilitySum, SeverityWarning, false, "", nil)
	infoPass := outcome(RuleUpsetDetection, SeverityInfo, true, "", nil)

	if Valid([]Outcome{critFail, infoPass}) {
		t.Fatal("critical failure must invalidate the quote")
	}
	if !Valid([]Outcome{warnFail, infoPass}) {
		t.Fatal("warnings must not invalidate the quote")
	}
	if !Valid(nil) {
		t.Fatal("no outcomes means valid")
	}
}
