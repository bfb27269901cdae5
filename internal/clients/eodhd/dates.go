package eodhd

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/eodlake/internal/models"
)

// DefaultLookbackYears is the window used when no start date is given.
const DefaultLookbackYears = 5

// SanitizeDates turns optional start/end strings into calendar dates.
// A missing end becomes today; a missing start becomes end minus DefaultLookbackYears.
func SanitizeDates(start, end string, today time.Time) (time.Time, time.Time, error) {
	to := models.CalendarDate(today)
	if strings.TrimSpace(end) != "" {
		t, err := models.ParseDate(end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrInvalidDateRange, err)
		}
		to = t
	}

	from := to.AddDate(-DefaultLookbackYears, 0, 0)
	if strings.TrimSpace(start) != "" {
		t, err := models.ParseDate(start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrInvalidDateRange, err)
		}
		from = t
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidDateRange, from.Format(models.DateLayout), to.Format(models.DateLayout))
	}
	return from, to, nil
}
