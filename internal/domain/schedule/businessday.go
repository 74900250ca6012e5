// Package schedule computes escalation deadlines with business-day
// awareness.
package schedule

import "time"

// Calendar holds the holiday table used for deadline adjustment. The zero
// value knows no holidays.
type Calendar struct {
	holidays map[string]bool
}

// NewCalendar builds a calendar from a holiday date list. Only the calendar
// date matters; times are ignored.
func NewCalendar(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		c.holidays[dayKey(h)] = true
	}
	return c
}

// IsHoliday reports whether the date is in the holiday table.
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil || c.holidays == nil {
		return false
	}
	return c.holidays[dayKey(t)]
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Deadline computes an expiry deadline by adding the given hours to the
// start time, then shifting forward while it lands on a skipped day:
// Saturday moves two days, Sunday one, holidays one. The shift repeats until
// the deadline falls on an eligible day.
func Deadline(start time.Time, hours int, skipWeekends, skipHolidays bool, cal *Calendar) time.Time {
	deadline := start.Add(time.Duration(hours) * time.Hour)

	for {
		if skipWeekends {
			switch deadline.Weekday() {
			case time.Saturday:
				deadline = deadline.AddDate(0, 0, 2)
				continue
			case time.Sunday:
				deadline = deadline.AddDate(0, 0, 1)
				continue
			}
		}
		if skipHolidays && cal.IsHoliday(deadline) {
			deadline = deadline.AddDate(0, 0, 1)
			continue
		}
		return deadline
	}
}
