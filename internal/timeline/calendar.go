package timeline

import (
	"time"

	"golang.org/x/text/language"
)

// Calendar decides how instants fall into local days and weeks.
type Calendar struct {
	Location     *time.Location
	FirstWeekday time.Weekday
}

// regions whose weeks conventionally start on Sunday
var sundayRegions = map[string]bool{
	"US": true, "CA": true, "MX": true, "BR": true, "JP": true,
	"IL": true, "PH": true, "KR": true, "TW": true, "HK": true,
	"IN": true, "ZA": true,
}

// CalendarFor builds a Calendar for a locale. Weeks start on Monday unless
// the locale's region starts them on Sunday. A nil loc means time.Local.
func CalendarFor(tag language.Tag, loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	cal := Calendar{Location: loc, FirstWeekday: time.Monday}
	region, _ := tag.Region()
	if sundayRegions[region.String()] {
		cal.FirstWeekday = time.Sunday
	}
	return cal
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Local converts t into the calendar's location.
func (c Calendar) Local(t time.Time) time.Time {
	return t.In(c.location())
}

// Day returns local midnight of the day containing t.
func (c Calendar) Day(t time.Time) time.Time {
	t = c.Local(t)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Week returns the ISO week number of t. For Sunday-first calendars a Sunday
// counts towards the following ISO week.
func (c Calendar) Week(t time.Time) int {
	t = c.Day(t)
	if c.FirstWeekday == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	_, week := t.ISOWeek()
	return week
}
