package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"oddsguard/internal/market"
)

var (
	minPrice = decimal.NewFromFloat(0.01)
	maxPrice = decimal.NewFromFloat(0.99)

	sumFloor   = decimal.NewFromFloat(0.95)
	sumCeiling = decimal.NewFromFloat(1.05)

	// similarRecordThreshold gates both record correlation and home
	// advantage. Shared until product requirements diverge.
	similarRecordThreshold = decimal.NewFromFloat(0.10)

	homeEdgeMin = decimal.NewFromFloat(0.02)
	homeEdgeMax = decimal.NewFromFloat(0.15)

	historicalDriftMax = decimal.NewFromFloat(0.20)

	upsetRatioGap = decimal.NewFromFloat(0.10)
)

const (
	freshnessMaxAge       = 24 * time.Hour
	minHistoricalMatchups = 3
)

// Catalog returns the full fixed rule set in evaluation order.
func Catalog() []Rule {
	return []Rule{
		oddsRangeRule{},
		probabilitySumRule{},
		recordCorrelationRule{},
		homeAdvantageRule{},
		historicalPerformanceRule{},
		dataFreshnessRule{},
		upsetDetectionRule{},
	}
}

type oddsRangeRule struct{}

func (oddsRangeRule) Type() RuleType { return RuleOddsRange }

func (oddsRangeRule) Evaluate(q market.QuoteSnapshot, _ []market.Matchup) (Outcome, bool) {
	details := OddsRangeDetails{
		AwayPrice: q.Away.Price,
		HomePrice: q.Home.Price,
		Min:       minPrice,
		Max:       maxPrice,
	}

	awayOut := q.Away.Price.LessThan(minPrice) || q.Away.Price.GreaterThan(maxPrice)
	homeOut := q.Home.Price.LessThan(minPrice) || q.Home.Price.GreaterThan(maxPrice)

	switch {
	case awayOut && homeOut:
		msg := fmt.Sprintf("both prices outside [%s, %s]: %s priced %s, %s priced %s",
			minPrice, maxPrice, q.Away.Name, q.Away.Price, q.Home.Name, q.Home.Price)
		return outcome(RuleOddsRange, SeverityCritical, false, msg, details), true
	case awayOut:
		msg := fmt.Sprintf("%s priced %s outside [%s, %s]", q.Away.Name, q.Away.Price, minPrice, maxPrice)
		return outcome(RuleOddsRange, SeverityCritical, false, msg, details), true
	case homeOut:
		msg := fmt.Sprintf("%s priced %s outside [%s, %s]", q.Home.Name, q.Home.Price, minPrice, maxPrice)
		return outcome(RuleOddsRange, SeverityCritical, false, msg, details), true
	}

	return outcome(RuleOddsRange, SeverityInfo, true, "prices within allowed range", details), true
}

type probabilitySumRule struct{}

func (probabilitySumRule) Type() RuleType { return RuleProbabilitySum }

func (probabilitySumRule) Evaluate(q market.QuoteSnapshot, _ []market.Matchup) (Outcome, bool) {
	sum := q.Away.Price.Add(q.Home.Price)
	details := ProbabilitySumDetails{Sum: sum}

	switch {
	case sum.LessThan(sumFloor):
		msg := fmt.Sprintf("probability sum %s below %s; implies data corruption", sum, sumFloor)
		return outcome(RuleProbabilitySum, SeverityCritical, false, msg, details), true
	case sum.GreaterThan(sumCeiling):
		msg := fmt.Sprintf("probability sum %s above %s; high market spread", sum, sumCeiling)
		return outcome(RuleProbabilitySum, SeverityWarning, false, msg, details), true
	}

	msg := fmt.Sprintf("probability sum %s within tolerance", sum)
	return outcome(RuleProbabilitySum, SeverityInfo, true, msg, details), true
}

type recordCorrelationRule struct{}

func (recordCorrelationRule) Type() RuleType { return RuleRecordCorrelation }

func (recordCorrelationRule) Evaluate(q market.QuoteSnapshot, _ []market.Matchup) (Outcome, bool) {
	away, awayOK := market.ParseRecord(q.Away.RawRecord)
	home, homeOK := market.ParseRecord(q.Home.RawRecord)
	if !awayOK || !homeOK {
		details := RecordCorrelationDetails{AwayRecord: q.Away.RawRecord, HomeRecord: q.Home.RawRecord}
		return outcome(RuleRecordCorrelation, SeverityInfo, true,
			"cannot validate: missing or unparsable record", details), true
	}

	awayRatio := away.Ratio()
	homeRatio := home.Ratio()
	diff := awayRatio.Sub(homeRatio).Abs()
	details := RecordCorrelationDetails{
		AwayRecord: q.Away.RawRecord,
		HomeRecord: q.Home.RawRecord,
		AwayRatio:  awayRatio,
		HomeRatio:  homeRatio,
		RatioDiff:  diff,
	}

	if diff.LessThan(similarRecordThreshold) {
		msg := fmt.Sprintf("records similar (ratio diff %s); correlation not applicable", diff)
		return outcome(RuleRecordCorrelation, SeverityInfo, true, msg, details), true
	}

	better, worse := q.Away, q.Home
	if homeRatio.GreaterThan(awayRatio) {
		better, worse = q.Home, q.Away
	}
	if better.Price.Cmp(worse.Price) <= 0 {
		msg := fmt.Sprintf("REVERSED ODDS: %s (%s) priced %s despite stronger record than %s (%s) priced %s",
			better.Name, better.RawRecord, better.Price, worse.Name, worse.RawRecord, worse.Price)
		return outcome(RuleRecordCorrelation, SeverityCritical, false, msg, details), true
	}

	return outcome(RuleRecordCorrelation, SeverityInfo, true, "prices track records", details), true
}

type homeAdvantageRule struct{}

func (homeAdvantageRule) Type() RuleType { return RuleHomeAdvantage }

func (homeAdvantageRule) Evaluate(q market.QuoteSnapshot, _ []market.Matchup) (Outcome, bool) {
	away, awayOK := market.ParseRecord(q.Away.RawRecord)
	home, homeOK := market.ParseRecord(q.Home.RawRecord)
	if !awayOK || !homeOK {
		return outcome(RuleHomeAdvantage, SeverityInfo, true,
			"cannot validate: missing or unparsable record", HomeAdvantageDetails{}), true
	}

	diff := away.Ratio().Sub(home.Ratio()).Abs()
	if diff.Cmp(similarRecordThreshold) >= 0 {
		return outcome(RuleHomeAdvantage, SeverityInfo, true,
			"records not similar; home advantage not evaluated", HomeAdvantageDetails{}), true
	}

	edge := q.Home.Price.Sub(q.Away.Price)
	details := HomeAdvantageDetails{Edge: edge}

	if edge.Sign() <= 0 {
		msg := fmt.Sprintf("missing home advantage: %s (home) priced %s vs %s priced %s",
			q.Home.Name, q.Home.Price, q.Away.Name, q.Away.Price)
		return outcome(RuleHomeAdvantage, SeverityWarning, false, msg, details), true
	}
	if edge.LessThan(homeEdgeMin) || edge.GreaterThan(homeEdgeMax) {
		msg := fmt.Sprintf("home advantage %s outside expected range [%s, %s]", edge, homeEdgeMin, homeEdgeMax)
		return outcome(RuleHomeAdvantage, SeverityWarning, false, msg, details), true
	}

	msg := fmt.Sprintf("home advantage %s within expected range", edge)
	return outcome(RuleHomeAdvantage, SeverityInfo, true, msg, details), true
}

type historicalPerformanceRule struct{}

func (historicalPerformanceRule) Type() RuleType { return RuleHistoricalPerformance }

func (historicalPerformanceRule) Evaluate(q market.QuoteSnapshot, history []market.Matchup) (Outcome, bool) {
	if history == nil {
		return Outcome{}, false
	}
	if len(history) < minHistoricalMatchups {
		details := HistoricalDetails{Matchups: len(history)}
		msg := fmt.Sprintf("insufficient data: %d of %d required matchups", len(history), minHistoricalMatchups)
		return outcome(RuleHistoricalPerformance, SeverityInfo, true, msg, details), true
	}

	awayRate, _ := market.WinRate(q.Away.Name, history)
	homeRate, _ := market.WinRate(q.Home.Name, history)
	awayDrift := q.Away.Price.Sub(awayRate).Abs()
	homeDrift := q.Home.Price.Sub(homeRate).Abs()
	details := HistoricalDetails{
		Matchups:    len(history),
		AwayWinRate: awayRate,
		HomeWinRate: homeRate,
		AwayDrift:   awayDrift,
		HomeDrift:   homeDrift,
	}

	if awayDrift.GreaterThan(historicalDriftMax) || homeDrift.GreaterThan(historicalDriftMax) {
		msg := fmt.Sprintf("price deviates from head-to-head history: %s drift %s, %s drift %s (max %s)",
			q.Away.Name, awayDrift, q.Home.Name, homeDrift, historicalDriftMax)
		return outcome(RuleHistoricalPerformance, SeverityWarning, false, msg, details), true
	}

	return outcome(RuleHistoricalPerformance, SeverityInfo, true, "prices consistent with head-to-head history", details), true
}

type dataFreshnessRule struct{}

func (dataFreshnessRule) Type() RuleType { return RuleDataFreshness }

func (dataFreshnessRule) Evaluate(q market.QuoteSnapshot, _ []market.Matchup) (Outcome, bool) {
	if q.LastUpdated == nil {
		return Outcome{}, false
	}

	age := time.Since(*q.LastUpdated)
	details := FreshnessDetails{Age: age}

	if age > freshnessMaxAge {
		msg := fmt.Sprintf("stale data: last updated %s ago", age.Round(time.Minute))
		return outcome(RuleDataFreshness, SeverityWarning, false, msg, details), true
	}

	return outcome(RuleDataFreshness, SeverityInfo, true, "quote is fresh", details), true
}

type upsetDetectionRule struct{}

func (upsetDetectionRule) Type() RuleType { return RuleUpsetDetection }

func (upsetDetectionRule) Evaluate(q market.QuoteSnapshot, _ []market.Matchup) (Outcome, bool) {
	away, awayOK := market.ParseRecord(q.Away.RawRecord)
	home, homeOK := market.ParseRecord(q.Home.RawRecord)
	if !awayOK || !homeOK || q.Away.Price.Equal(q.Home.Price) {
		return outcome(RuleUpsetDetection, SeverityInfo, true,
			"no upset indication", UpsetDetails{}), true
	}

	favored, underdog := q.Away, q.Home
	favoredRatio, underdogRatio := away.Ratio(), home.Ratio()
	if q.Home.Price.GreaterThan(q.Away.Price) {
		favored, underdog = q.Home, q.Away
		favoredRatio, underdogRatio = home.Ratio(), away.Ratio()
	}

	details := UpsetDetails{FavoredRatio: favoredRatio, UnderdogRatio: underdogRatio}
	if underdogRatio.Sub(favoredRatio).GreaterThan(upsetRatioGap) {
		details.IsUpsetAlert = true
		msg := fmt.Sprintf("potential upset: %s (%s) underpriced at %s against %s (%s) at %s",
			underdog.Name, underdog.RawRecord, underdog.Price, favored.Name, favored.RawRecord, favored.Price)
		return outcome(RuleUpsetDetection, SeverityInfo, true, msg, details), true
	}

	return outcome(RuleUpsetDetection, SeverityInfo, true, "no upset indication", details), true
}
