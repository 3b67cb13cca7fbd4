package metrics

import (
	"fmt"
	"strings"
)

// Field is a derived metric. The value is the metric's axis index.
type Field int

const (
	BuySharePrice Field = iota
	// CashFlows is 1 when every year of the look-back window had a positive
	// cash flow, else 0.
	CashFlows
	CNAV
	CNAVMinusBuyPrice
	CNAVMinusNAV
	DebtToEquityRatio
	MarketCap
	NAV
	PERatio
	PotentialROI

	FieldCount = iota
)

var fieldNames = [FieldCount]string{
	"buy_share_price",
	"cash_flows",
	"cnav",
	"cnav_minus_buy_price",
	"cnav_minus_nav",
	"debt_to_equity_ratio",
	"market_cap",
	"nav",
	"pe_ratio",
	"potential_roi",
}

func (f Field) String() string {
	if f < 0 || int(f) >= FieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// AllFields returns every metric field in axis order.
func AllFields() []Field {
	out := make([]Field, FieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ParseField resolves a metric name as printed by String. Matching ignores
// case and accepts '-' in place of '_'.
func ParseField(name string) (Field, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, n := range fieldNames {
		if n == norm {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}
