package us

import (
	"errors"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"valuesift/internal/util"
)

var errNoTradingDay = errors.New("could not determine latest finished trading day")

// LatestFinishedTradingDay returns the most recent trading day whose daily
// bar is final, using the Alpaca trading calendar. Today counts once the
// session and its extended hours have ended (20:05 ET).
func LatestFinishedTradingDay(apiKey, apiSecret, baseURL string) (time.Time, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	now := time.Now().In(et)

	calendar, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}

	days := make([]string, len(calendar))
	for i, day := range calendar {
		days[i] = day.Date
	}
	return latestFinished(days, now)
}

// latestFinished picks the last of the ascending YYYY-MM-DD trading days
// that has finished at now, which must be in New York time.
func latestFinished(days []string, now time.Time) (time.Time, error) {
	today := now.Format(util.DateLayout)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 20, 5, 0, 0, now.Location())

	for i := len(days) - 1; i >= 0; i-- {
		if days[i] == today {
			if now.After(cutoff) {
				return util.ParseDate(days[i])
			}
			continue
		}
		day, err := util.ParseDate(days[i])
		if err != nil {
			continue
		}
		if days[i] < today {
			return day, nil
		}
	}
	return time.Time{}, errNoTradingDay
}
