package financials

// YearlyField indexes the field axis of the yearly table. The order is the
// axis order and must not change.
type YearlyField int

const (
	CashAndShortTermInvestments YearlyField = iota
	PPE
	TotalLiabilities
	TotalAssets
	TotalDebt
	TotalShareholdersEquity
	TotalOutstandingShares
	EPS
	SharePriceAtReport
	CashFlow

	// YearlyFieldCount is the length of the yearly field axis.
	YearlyFieldCount = int(CashFlow) + 1
)

var yearlyFieldNames = [YearlyFieldCount]string{
	"CashAndShortTermInvestments",
	"PPE",
	"TotalLiabilities",
	"TotalAssets",
	"TotalDebt",
	"TotalShareholdersEquity",
	"TotalOutstandingShares",
	"EPS",
	"SharePriceAtReport",
	"CashFlow",
}

func (f YearlyField) String() string {
	if f < 0 || int(f) >= YearlyFieldCount {
		return "YearlyField(?)"
	}
	return yearlyFieldNames[f]
}

// AllYearlyFields returns every yearly field in axis order.
func AllYearlyFields() []YearlyField {
	out := make([]YearlyField, YearlyFieldCount)
	for i := range out {
		out[i] = YearlyField(i)
	}
	return out
}

// DailyField indexes the field axis of the daily table.
type DailyField int

const (
	HighSharePrice DailyField = iota
	LowSharePrice
	Volume

	// DailyFieldCount is the length of the daily field axis.
	DailyFieldCount = int(Volume) + 1
)

var dailyFieldNames = [DailyFieldCount]string{
	"HighSharePrice",
	"LowSharePrice",
	"Volume",
}

func (f DailyField) String() string {
	if f < 0 || int(f) >= DailyFieldCount {
		return "DailyField(?)"
	}
	return dailyFieldNames[f]
}
