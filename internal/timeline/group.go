package timeline

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Billable is the payload shape the aggregator needs from a session.
type Billable interface {
	PausedDuration() time.Duration
	HourlyRate() (rate decimal.Decimal, hourly bool)
}

var secondsPerHour = decimal.NewFromInt(3600)

// ActiveSeconds is the worked time of a session: its span minus pauses,
// never negative.
func ActiveSeconds[P Billable](iv Interval[P]) int64 {
	secs := int64((iv.Duration() - iv.Payload.PausedDuration()) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// Earnings is the money earned by an hourly-paid session. Sessions paid
// another way earn nothing here.
func Earnings[P Billable](iv Interval[P]) decimal.Decimal {
	rate, hourly := iv.Payload.HourlyRate()
	if !hourly {
		return decimal.Zero
	}
	return decimal.NewFromInt(ActiveSeconds(iv)).Mul(rate).Div(secondsPerHour)
}

// Selection describes how many of a node's sessions are selected.
type Selection int

const (
	SelectNone Selection = iota
	SelectSome
	SelectAll
)

// Totals is the aggregate kept at every level of the tree.
type Totals struct {
	Earnings   decimal.Decimal
	Seconds    int64
	SessionIDs map[string]struct{}
}

func newTotals() Totals {
	return Totals{Earnings: decimal.Zero, SessionIDs: make(map[string]struct{})}
}

func (t *Totals) add(id string, secs int64, earned decimal.Decimal) {
	t.Seconds += secs
	t.Earnings = t.Earnings.Add(earned)
	t.SessionIDs[id] = struct{}{}
}

// Contains reports whether the session is part of this node.
func (t Totals) Contains(id string) bool {
	_, ok := t.SessionIDs[id]
	return ok
}

// Len returns the number of sessions in this node.
func (t Totals) Len() int {
	return len(t.SessionIDs)
}

// Selection compares the node's sessions against a selection set.
func (t Totals) Selection(selected map[string]bool) Selection {
	n := 0
	for id := range t.SessionIDs {
		if selected[id] {
			n++
		}
	}
	switch {
	case n == 0:
		return SelectNone
	case n == len(t.SessionIDs):
		return SelectAll
	default:
		return SelectSome
	}
}

// DayNode groups the sessions that start on one local day.
type DayNode[P any] struct {
	Totals
	Date     time.Time
	Sessions []Interval[P]
}

// WeekNode groups days by day of month.
type WeekNode[P any] struct {
	Totals
	Week int
	Days map[int]*DayNode[P]
}

// MonthNode groups weeks by week number.
type MonthNode[P any] struct {
	Totals
	Month time.Month
	Weeks map[int]*WeekNode[P]
}

// YearNode groups months.
type YearNode[P any] struct {
	Totals
	Year   int
	Months map[time.Month]*MonthNode[P]
}

// YearGroup is one top-level entry of a grouped tree.
type YearGroup[P any] struct {
	Year int
	Data *YearNode[P]
}

// Group buckets sessions into a year, month, week and day tree using the
// local start of each session. Years come back in order of first
// appearance; use SortedYears and the Sorted* node methods for display order.
// Sessions inside a day are sorted by start.
//
// Sessions with a zero start time are skipped.
func Group[P Billable](sessions []Interval[P], cal Calendar) []YearGroup[P] {
	var groups []YearGroup[P]
	years := make(map[int]*YearNode[P])

	for _, s := range sessions {
		if s.Start.IsZero() {
			continue
		}
		local := cal.Local(s.Start)
		secs := ActiveSeconds(s)
		earned := Earnings(s)

		y, ok := years[local.Year()]
		if !ok {
			y = &YearNode[P]{Totals: newTotals(), Year: local.Year(), Months: make(map[time.Month]*MonthNode[P])}
			years[local.Year()] = y
			groups = append(groups, YearGroup[P]{Year: y.Year, Data: y})
		}
		y.add(s.ID, secs, earned)

		m, ok := y.Months[local.Month()]
		if !ok {
			m = &MonthNode[P]{Totals: newTotals(), Month: local.Month(), Weeks: make(map[int]*WeekNode[P])}
			y.Months[local.Month()] = m
		}
		m.add(s.ID, secs, earned)

		weekNo := cal.Week(s.Start)
		w, ok := m.Weeks[weekNo]
		if !ok {
			w = &WeekNode[P]{Totals: newTotals(), Week: weekNo, Days: make(map[int]*DayNode[P])}
			m.Weeks[weekNo] = w
		}
		w.add(s.ID, secs, earned)

		d, ok := w.Days[local.Day()]
		if !ok {
			d = &DayNode[P]{Totals: newTotals(), Date: cal.Day(s.Start)}
			w.Days[local.Day()] = d
		}
		d.add(s.ID, secs, earned)
		d.Sessions = append(d.Sessions, s)
	}

	for _, y := range years {
		for _, m := range y.Months {
			for _, w := range m.Weeks {
				for _, d := range w.Days {
					slices.SortStableFunc(d.Sessions, func(a, b Interval[P]) int {
						if c := a.Start.Compare(b.Start); c != 0 {
							return c
						}
						return cmp.Compare(a.ID, b.ID)
					})
				}
			}
		}
	}

	return groups
}

// SortedYears returns a copy of groups ordered by year.
func SortedYears[P any](groups []YearGroup[P], desc bool) []YearGroup[P] {
	out := slices.Clone(groups)
	slices.SortFunc(out, func(a, b YearGroup[P]) int {
		return ordered(a.Year, b.Year, desc)
	})
	return out
}

// SortedMonths returns the year's months in calendar order.
func (y *YearNode[P]) SortedMonths(desc bool) []*MonthNode[P] {
	return sortedValues(y.Months, desc)
}

// SortedWeeks returns the month's weeks in date order. Week numbers wrap at
// the turn of the year, so weeks are ordered by their first day instead.
func (m *MonthNode[P]) SortedWeeks(desc bool) []*WeekNode[P] {
	weeks := slices.Collect(maps.Values(m.Weeks))
	slices.SortFunc(weeks, func(a, b *WeekNode[P]) int {
		return ordered(a.firstDay(), b.firstDay(), desc)
	})
	return weeks
}

func (w *WeekNode[P]) firstDay() int {
	return slices.Min(slices.Collect(maps.Keys(w.Days)))
}

// SortedDays returns the week's days by date.
func (w *WeekNode[P]) SortedDays(desc bool) []*DayNode[P] {
	return sortedValues(w.Days, desc)
}

func sortedValues[K cmp.Ordered, V any](m map[K]V, desc bool) []V {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b K) int {
		return ordered(a, b, desc)
	})
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func ordered[T cmp.Ordered](a, b T, desc bool) int {
	if desc {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}
