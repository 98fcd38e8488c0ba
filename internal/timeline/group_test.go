package timeline

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type pay struct {
	rate   decimal.Decimal
	hourly bool
	paused time.Duration
}

func (p pay) PausedDuration() time.Duration { return p.paused }

func (p pay) HourlyRate() (decimal.Decimal, bool) { return p.rate, p.hourly }

var utcMonday = Calendar{Location: time.UTC, FirstWeekday: time.Monday}

func session(id string, start time.Time, d time.Duration, p pay) Interval[pay] {
	return Interval[pay]{ID: id, ProjectID: "p1", Start: start, End: start.Add(d), Payload: p}
}

func hourly(rate int64) pay {
	return pay{rate: decimal.NewFromInt(rate), hourly: true}
}

func TestActiveSecondsAndEarnings(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	s := session("a", start, 90*time.Minute, pay{rate: decimal.NewFromInt(20), hourly: true, paused: 30 * time.Minute})
	assert.Equal(t, int64(3600), ActiveSeconds(s))
	assert.True(t, decimal.NewFromInt(20).Equal(Earnings(s)))

	fixed := session("b", start, time.Hour, pay{rate: decimal.NewFromInt(500), hourly: false})
	assert.True(t, Earnings(fixed).IsZero())

	overPaused := session("c", start, time.Hour, pay{paused: 2 * time.Hour, hourly: true, rate: decimal.NewFromInt(1)})
	assert.Equal(t, int64(0), ActiveSeconds(overPaused))
}

func TestGroup_DayTotals(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	sessions := []Interval[pay]{
		session("a", start, time.Hour, hourly(10)),
		session("b", start.Add(2*time.Hour), time.Hour, hourly(10)),
	}

	groups := Group(sessions, utcMonday)

	require.Len(t, groups, 1)
	assert.Equal(t, 2025, groups[0].Year)
	month := groups[0].Data.Months[time.March]
	require.NotNil(t, month)
	week := month.Weeks[11]
	require.NotNil(t, week)
	d := week.Days[10]
	require.NotNil(t, d)

	assert.Equal(t, int64(7200), d.Seconds)
	assert.True(t, decimal.NewFromInt(20).Equal(d.Earnings), "got %s", d.Earnings)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d.Date)

	for _, totals := range []Totals{groups[0].Data.Totals, month.Totals, week.Totals} {
		assert.Equal(t, int64(7200), totals.Seconds)
		assert.True(t, decimal.NewFromInt(20).Equal(totals.Earnings))
		assert.Equal(t, 2, totals.Len())
	}
}

func TestGroup_MembershipAtEveryLevel(t *testing.T) {
	mon := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	sessions := []Interval[pay]{
		session("mon", mon, time.Hour, hourly(10)),
		session("tue", mon.AddDate(0, 0, 1), time.Hour, hourly(10)),
		session("apr", time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC), time.Hour, hourly(10)),
		session("old", time.Date(2024, 12, 5, 9, 0, 0, 0, time.UTC), time.Hour, hourly(10)),
	}

	groups := Group(sessions, utcMonday)
	require.Len(t, groups, 2)

	y := groups[0].Data
	m := y.Months[time.March]
	w := m.Weeks[11]
	d := w.Days[10]
	for _, totals := range []Totals{y.Totals, m.Totals, w.Totals, d.Totals} {
		assert.True(t, totals.Contains("mon"))
	}
	assert.False(t, w.Days[11].Contains("mon"))
	assert.True(t, w.Days[11].Contains("tue"))
	assert.False(t, m.Contains("apr"))
	assert.True(t, y.Months[time.April].Contains("apr"))
	assert.False(t, y.Contains("old"))
	assert.True(t, groups[1].Data.Contains("old"))
	assert.Equal(t, 3, y.Len())
}

func TestGroup_DaySessionsSortedByStart(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	sessions := []Interval[pay]{
		session("late", base.Add(6*time.Hour), time.Hour, hourly(1)),
		session("early", base, time.Hour, hourly(1)),
		session("mid", base.Add(3*time.Hour), time.Hour, hourly(1)),
	}

	groups := Group(sessions, utcMonday)
	d := groups[0].Data.Months[time.March].Weeks[11].Days[10]

	require.Len(t, d.Sessions, 3)
	assert.Equal(t, "early", d.Sessions[0].ID)
	assert.Equal(t, "mid", d.Sessions[1].ID)
	assert.Equal(t, "late", d.Sessions[2].ID)
}

func TestGroup_OrderIndependentTotals(t *testing.T) {
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	var sessions []Interval[pay]
	for i := 0; i < 40; i++ {
		start := base.Add(time.Duration(i) * 37 * time.Hour)
		sessions = append(sessions, session(string(rune('A'+i)), start, time.Duration(i+1)*10*time.Minute, hourly(int64(i%5+1))))
	}

	first := Group(sessions, utcMonday)

	shuffled := append([]Interval[pay](nil), sessions...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	second := Group(shuffled, utcMonday)

	a := SortedYears(first, false)
	b := SortedYears(second, false)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Year, b[i].Year)
		assert.Equal(t, a[i].Data.Seconds, b[i].Data.Seconds)
		assert.True(t, a[i].Data.Earnings.Equal(b[i].Data.Earnings))
		assert.Equal(t, a[i].Data.SessionIDs, b[i].Data.SessionIDs)

		for month, ma := range a[i].Data.Months {
			mb := b[i].Data.Months[month]
			require.NotNil(t, mb)
			assert.Equal(t, ma.Seconds, mb.Seconds)
			assert.Equal(t, ma.SessionIDs, mb.SessionIDs)
			for week, wa := range ma.Weeks {
				wb := mb.Weeks[week]
				require.NotNil(t, wb)
				for dayNo, da := range wa.Days {
					db := wb.Days[dayNo]
					require.NotNil(t, db)
					assert.Equal(t, da.Sessions, db.Sessions)
					assert.True(t, da.Earnings.Equal(db.Earnings))
				}
			}
		}
	}
}

func TestGroup_SkipsZeroStart(t *testing.T) {
	sessions := []Interval[pay]{
		{ID: "broken", Payload: hourly(10)},
		session("ok", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.Hour, hourly(10)),
	}

	groups := Group(sessions, utcMonday)

	require.Len(t, groups, 1)
	assert.False(t, groups[0].Data.Contains("broken"))
	assert.Equal(t, 1, groups[0].Data.Len())
}

func TestGroup_UsesCalendarLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on Dec 31 is already New Year in Tokyo.
	start := time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC)

	groups := Group([]Interval[pay]{session("nye", start, time.Hour, hourly(1))}, Calendar{Location: tokyo, FirstWeekday: time.Monday})

	require.Len(t, groups, 1)
	assert.Equal(t, 2025, groups[0].Year)
	assert.NotNil(t, groups[0].Data.Months[time.January])
}

func TestSortedHelpers(t *testing.T) {
	sessions := []Interval[pay]{
		session("a", time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC), time.Hour, hourly(1)),
		session("b", time.Date(2024, 12, 2, 9, 0, 0, 0, time.UTC), time.Hour, hourly(1)),
		session("c", time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC), time.Hour, hourly(1)),
		session("d", time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), time.Hour, hourly(1)),
		session("e", time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC), time.Hour, hourly(1)),
	}

	groups := SortedYears(Group(sessions, utcMonday), true)
	require.Len(t, groups, 2)
	assert.Equal(t, 2025, groups[0].Year)
	assert.Equal(t, 2024, groups[1].Year)

	months := groups[1].Data.SortedMonths(false)
	require.Len(t, months, 2)
	assert.Equal(t, time.March, months[0].Month)
	assert.Equal(t, time.December, months[1].Month)

	// Dec 30 2024 is ISO week 1 of 2025 but still sorts after week 49.
	weeks := months[1].SortedWeeks(false)
	require.Len(t, weeks, 2)
	assert.Equal(t, 49, weeks[0].Week)
	assert.Equal(t, 1, weeks[1].Week)

	days := weeks[0].SortedDays(true)
	require.Len(t, days, 2)
	assert.Equal(t, 3, days[0].Date.Day())
	assert.Equal(t, 2, days[1].Date.Day())
}

func TestTotals_Selection(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	groups := Group([]Interval[pay]{
		session("a", start, time.Hour, hourly(1)),
		session("b", start.Add(2*time.Hour), time.Hour, hourly(1)),
	}, utcMonday)
	node := groups[0].Data.Totals

	assert.Equal(t, SelectNone, node.Selection(nil))
	assert.Equal(t, SelectNone, node.Selection(map[string]bool{"zzz": true}))
	assert.Equal(t, SelectSome, node.Selection(map[string]bool{"a": true}))
	assert.Equal(t, SelectAll, node.Selection(map[string]bool{"a": true, "b": true, "x": true}))
	assert.Equal(t, SelectNone, node.Selection(map[string]bool{"a": false}))
}

func TestCalendarFor(t *testing.T) {
	us := CalendarFor(language.MustParse("en-US"), time.UTC)
	de := CalendarFor(language.MustParse("de-DE"), time.UTC)

	assert.Equal(t, time.Sunday, us.FirstWeekday)
	assert.Equal(t, time.Monday, de.FirstWeekday)
	assert.Equal(t, time.Local, CalendarFor(language.German, nil).Location)

	sunday := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, de.Week(sunday))
	assert.Equal(t, 11, us.Week(sunday))
	monday := sunday.AddDate(0, 0, 1)
	assert.Equal(t, 11, de.Week(monday))
	assert.Equal(t, 11, us.Week(monday))
}

func TestRoundDuration(t *testing.T) {
	step := 15 * time.Minute
	tests := []struct {
		name     string
		d        time.Duration
		dir      RoundDirection
		expected time.Duration
	}{
		{"up", 16 * time.Minute, RoundUp, 30 * time.Minute},
		{"down", 29 * time.Minute, RoundDown, 15 * time.Minute},
		{"nearest down", 22 * time.Minute, RoundNearest, 15 * time.Minute},
		{"nearest up", 23 * time.Minute, RoundNearest, 30 * time.Minute},
		{"exact", 45 * time.Minute, RoundUp, 45 * time.Minute},
		{"minimum one step", 2 * time.Minute, RoundDown, 15 * time.Minute},
		{"zero stays zero", 0, RoundUp, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoundDuration(tt.d, step, tt.dir))
		})
	}

	assert.Equal(t, 7*time.Minute, RoundDuration(7*time.Minute, 0, RoundUp))
}

func TestParseRoundDirection(t *testing.T) {
	d, err := ParseRoundDirection("up")
	require.NoError(t, err)
	assert.Equal(t, RoundUp, d)

	_, err = ParseRoundDirection("sideways")
	assert.Error(t, err)
}
