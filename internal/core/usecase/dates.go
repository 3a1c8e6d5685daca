package usecase

import (
	"time"

	"github.com/rbroggi/gatherly/internal/core/model"
)

const dayLayout = "2006-01-02"

// dateRange resolves a date filter into an inclusive [from, to] range of YYYY-MM-DD days relative
// to now. Empty bounds mean no restriction.
//
// The weekend is the upcoming Saturday and Sunday (only Sunday when today is Sunday); next week runs
// from the next Monday to the following Sunday.
func dateRange(filter string, now time.Time) (from, to string, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format(dayLayout) }

	switch filter {
	case "", model.DateFilterAllTime:
		return "", "", nil
	case model.DateFilterToday:
		return day(0), day(0), nil
	case model.DateFilterTomorrow:
		return day(1), day(1), nil
	case model.DateFilterThisWeekend:
		weekday := int(today.Weekday())
		if today.Weekday() == time.Sunday {
			return day(0), day(0), nil
		}
		saturday := int(time.Saturday) - weekday
		return day(saturday), day(saturday + 1), nil
	case model.DateFilterNextWeek:
		untilMonday := (8 - int(today.Weekday())) % 7
		if untilMonday == 0 {
			untilMonday = 7
		}
		return day(untilMonday), day(untilMonday + 6), nil
	}

	if _, err := time.Parse(dayLayout, filter); err != nil {
		return "", "", &model.ValidationError{Fields: []model.FieldError{{Field: "date", Rule: "date_filter"}}}
	}
	return filter, filter, nil
}
