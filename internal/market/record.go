package market

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is a parsed win-loss record. Ties, when reported as a third field,
// are ignored for ratio purposes.
type Record struct {
	Wins   int
	Losses int
}

// ParseRecord parses "wins-losses" or "wins-losses-ties". A record that
// cannot be parsed, or that covers zero games, reports ok=false; callers
// treat that as missing data rather than an error.
func ParseRecord(raw string) (Record, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 && len(parts) != 3 {
		return Record{}, false
	}

	wins, err := strconv.Atoi(parts[0])
	if err != nil || wins < 0 {
		return Record{}, false
	}
	losses, err := strconv.Atoi(parts[1])
	if err != nil || losses < 0 {
		return Record{}, false
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return Record{}, false
		}
	}
	if wins+losses == 0 {
		return Record{}, false
	}
	return Record{Wins: wins, Losses: losses}, true
}

// Ratio returns wins/(wins+losses).
func (r Record) Ratio() decimal.Decimal {
	games := r.Wins + r.Losses
	if games == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Wins)).Div(decimal.NewFromInt(int64(games)))
}
