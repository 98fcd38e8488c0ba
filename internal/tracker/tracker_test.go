package tracker

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/GwydionBr/life-manager/internal/config"
	"github.com/GwydionBr/life-manager/internal/logging"
	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/testutil"
	"github.com/GwydionBr/life-manager/internal/timeline"
)

type fixture struct {
	tracker *Tracker
	db      *sql.DB
	project *models.Project
}

func newFixture(t *testing.T, opts ...func(*config.Config)) fixture {
	t.Helper()
	conn := testutil.NewTestDB(t)

	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	tr := New(conn, cfg, logging.Discard())
	tr.calendar = timeline.CalendarFor(language.BritishEnglish, time.UTC)

	p, err := repository.NewProjectRepo(conn).Create("Website", nil, decimal.NewFromInt(60), true, "EUR")
	require.NoError(t, err)

	return fixture{tracker: tr, db: conn, project: p}
}

func (f fixture) seed(t *testing.T, start, end time.Time) models.Session {
	t.Helper()
	s := testutil.NewTestSession(f.project.ID, start, end)
	require.NoError(t, repository.NewSessionRepo(f.db).Create(s))
	return s
}

func (f fixture) stored(t *testing.T) []models.Session {
	t.Helper()
	list, err := repository.NewSessionRepo(f.db).ListByProject(f.project.ID)
	require.NoError(t, err)
	return list
}

func (f fixture) input(start, end time.Time) SessionInput {
	return SessionInput{ProjectID: f.project.ID, Start: start, End: end}
}

func TestAddSession_NoOverlap(t *testing.T) {
	f := newFixture(t)

	out, err := f.tracker.AddSession(f.input(testutil.At(9, 0), testutil.At(10, 0)))
	require.NoError(t, err)

	assert.Equal(t, timeline.NoOverlap, out.Resolution.Kind)
	assert.False(t, out.Adjusted())
	assert.Empty(t, out.Notice())
	require.Len(t, out.Stored, 1)

	list := f.stored(t)
	require.Len(t, list, 1)
	assert.Equal(t, out.Original.ID, list[0].ID)
	assert.True(t, testutil.At(9, 0).Equal(list[0].Start))
	assert.True(t, testutil.At(10, 0).Equal(list[0].End))
}

func TestAddSession_UsesProjectRateUnlessOverridden(t *testing.T) {
	f := newFixture(t)

	out, err := f.tracker.AddSession(f.input(testutil.At(9, 0), testutil.At(10, 0)))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(out.Stored[0].Payload.Salary))
	assert.True(t, out.Stored[0].Payload.HourlyPayment)
	assert.Equal(t, "EUR", out.Stored[0].Payload.Currency)

	rate := decimal.NewFromInt(500)
	hourly := false
	in := f.input(testutil.At(11, 0), testutil.At(12, 0))
	in.Salary = &rate
	in.HourlyPayment = &hourly
	in.Currency = "CHF"
	in.Memo = "fixed price"

	out, err = f.tracker.AddSession(in)
	require.NoError(t, err)

	got, err := repository.NewSessionRepo(f.db).GetByID(out.Stored[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, rate.Equal(got.Payload.Salary))
	assert.False(t, got.Payload.HourlyPayment)
	assert.Equal(t, "CHF", got.Payload.Currency)
	assert.Equal(t, "fixed price", got.Payload.Memo)
}

func TestAddSession_PartialOverlapTrims(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.At(9, 0), testutil.At(10, 0))

	out, err := f.tracker.AddSession(f.input(testutil.At(9, 30), testutil.At(11, 0)))
	require.NoError(t, err)

	assert.Equal(t, timeline.PartialOverlap, out.Resolution.Kind)
	require.Len(t, out.Stored, 1)
	assert.True(t, testutil.At(10, 0).Equal(out.Stored[0].Start))
	assert.True(t, testutil.At(11, 0).Equal(out.Stored[0].End))

	notice := out.Notice()
	assert.Contains(t, notice, "overlapped 1 existing session")
	assert.Contains(t, notice, "requested: 2025-03-10 09:30-11:00")
	assert.Contains(t, notice, "saved:     2025-03-10 10:00-11:00")
	assert.Contains(t, notice, "collided:  2025-03-10 09:30-10:00")

	assert.Len(t, f.stored(t), 2)
}

func TestAddSession_CompleteOverlapWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.At(9, 0), testutil.At(12, 0))

	out, err := f.tracker.AddSession(f.input(testutil.At(10, 0), testutil.At(11, 0)))
	require.ErrorIs(t, err, timeline.ErrCompleteOverlap)
	require.NotNil(t, out)

	assert.Equal(t, timeline.CompleteOverlap, out.Resolution.Kind)
	assert.Empty(t, out.Stored)
	assert.Contains(t, out.Notice(), "already covered by 1 existing session")
	assert.Len(t, f.stored(t), 1)
}

func TestAddSession_InteriorOverlapSplits(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.At(10, 0), testutil.At(11, 0))

	in := f.input(testutil.At(9, 0), testutil.At(12, 0))
	in.Paused = 90 * time.Minute

	out, err := f.tracker.AddSession(in)
	require.NoError(t, err)
	require.Len(t, out.Stored, 2)

	first, second := out.Stored[0], out.Stored[1]
	assert.Equal(t, out.Original.ID, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	// the pause stays with the first piece, capped at its length
	assert.Equal(t, int64(3600), first.Payload.PausedSeconds)
	assert.Equal(t, int64(0), second.Payload.PausedSeconds)

	list := f.stored(t)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, timeline.Overlaps(list[i-1].Start, list[i-1].End, list[i].Start, list[i].End))
	}
}

func TestAddSession_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   SessionInput
		want error
	}{
		{
			name: "end before start",
			in:   f.input(testutil.At(10, 0), testutil.At(9, 0)),
			want: ErrInvalidRange,
		},
		{
			name: "empty range",
			in:   f.input(testutil.At(10, 0), testutil.At(10, 0)),
			want: ErrInvalidRange,
		},
		{
			name: "span below millisecond precision",
			in:   f.input(testutil.At(10, 0), testutil.At(10, 0).Add(500*time.Microsecond)),
			want: ErrInvalidRange,
		},
		{
			name: "pause as long as the session",
			in: SessionInput{
				ProjectID: f.project.ID,
				Start:     testutil.At(9, 0),
				End:       testutil.At(10, 0),
				Paused:    time.Hour,
			},
			want: ErrPausedTooLong,
		},
		{
			name: "unknown project",
			in: SessionInput{
				ProjectID: "missing",
				Start:     testutil.At(9, 0),
				End:       testutil.At(10, 0),
			},
			want: ErrProjectNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracker.AddSession(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.stored(t))
}

func TestAddSession_RoundsActiveTime(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Rounding = config.Rounding{Enabled: true, Minutes: 15, Direction: "up"}
	})

	in := f.input(testutil.At(9, 0), testutil.At(9, 37))
	in.Paused = 5 * time.Minute

	out, err := f.tracker.AddSession(in)
	require.NoError(t, err)

	// 32 active minutes round up to 45, plus the 5 minute pause
	assert.True(t, testutil.At(9, 50).Equal(out.Stored[0].End))
}

func TestEditSession(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, testutil.At(9, 0), testutil.At(10, 0))
	f.seed(t, testutil.At(11, 0), testutil.At(12, 0))

	t.Run("grows into a neighbour", func(t *testing.T) {
		in := SessionInput{Start: testutil.At(9, 0), End: testutil.At(11, 30), Memo: "longer"}
		out, err := f.tracker.EditSession(a.ID, in)
		require.NoError(t, err)

		assert.Equal(t, timeline.PartialOverlap, out.Resolution.Kind)
		require.Len(t, out.Stored, 1)
		assert.Equal(t, a.ID, out.Stored[0].ID)

		got, err := repository.NewSessionRepo(f.db).GetByID(a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, testutil.At(11, 0).Equal(got.End))
		assert.Equal(t, "longer", got.Payload.Memo)
		assert.True(t, a.Payload.CreatedAt.Equal(got.Payload.CreatedAt))
	})

	t.Run("own prior version does not collide", func(t *testing.T) {
		out, err := f.tracker.EditSession(a.ID, SessionInput{Start: testutil.At(9, 15), End: testutil.At(10, 45)})
		require.NoError(t, err)
		assert.Equal(t, timeline.NoOverlap, out.Resolution.Kind)
	})

	t.Run("complete overlap keeps the old version", func(t *testing.T) {
		_, err := f.tracker.EditSession(a.ID, SessionInput{Start: testutil.At(11, 15), End: testutil.At(11, 45)})
		require.ErrorIs(t, err, timeline.ErrCompleteOverlap)

		got, err := repository.NewSessionRepo(f.db).GetByID(a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, testutil.At(9, 15).Equal(got.Start))
	})

	t.Run("sub-millisecond span is rejected", func(t *testing.T) {
		start := testutil.At(9, 15).Add(100 * time.Microsecond)
		_, err := f.tracker.EditSession(a.ID, SessionInput{Start: start, End: start.Add(800 * time.Microsecond)})
		require.ErrorIs(t, err, ErrInvalidRange)

		got, err := repository.NewSessionRepo(f.db).GetByID(a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.End.After(got.Start))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.tracker.EditSession("missing", SessionInput{Start: testutil.At(13, 0), End: testutil.At(14, 0)})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	assert.Len(t, f.stored(t), 2)
}

func TestDeleteSessions(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, testutil.At(9, 0), testutil.At(10, 0))
	b := f.seed(t, testutil.At(11, 0), testutil.At(12, 0))
	f.seed(t, testutil.At(13, 0), testutil.At(14, 0))

	n, err := f.tracker.DeleteSessions([]string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.stored(t), 1)
}

func TestTree(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.At(9, 0), testutil.At(10, 0))
	f.seed(t, testutil.At(11, 0), testutil.At(12, 0))
	f.seed(t, testutil.Day.AddDate(0, 1, 0).Add(9*time.Hour), testutil.Day.AddDate(0, 1, 0).Add(10*time.Hour))

	tree, err := f.tracker.Tree(f.project.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	year := tree[0]
	assert.Equal(t, 2025, year.Year)
	assert.Equal(t, int64(3*3600), year.Data.Seconds)
	assert.Equal(t, 3, year.Data.Len())
	assert.Len(t, year.Data.Months, 2)

	march := year.Data.Months[time.March]
	require.NotNil(t, march)
	assert.Equal(t, 2, march.Len())
	// 10 EUR/h fixtures, two hours
	assert.True(t, decimal.NewFromInt(20).Equal(march.Earnings))

	all, err := f.tracker.Tree("")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.tracker.Tree("missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestTreeBetween(t *testing.T) {
	f := newFixture(t)
	other, err := repository.NewProjectRepo(f.db).Create("Other", nil, decimal.NewFromInt(10), true, "EUR")
	require.NoError(t, err)

	f.seed(t, testutil.At(9, 0), testutil.At(10, 0))
	f.seed(t, testutil.Day.AddDate(0, 1, 0).Add(9*time.Hour), testutil.Day.AddDate(0, 1, 0).Add(10*time.Hour))
	require.NoError(t, repository.NewSessionRepo(f.db).Create(
		testutil.NewTestSession(other.ID, testutil.At(13, 0), testutil.At(14, 0))))

	marchOnly := func(tree Tree) int {
		require.Len(t, tree, 1)
		return tree[0].Data.Len()
	}

	tree, err := f.tracker.TreeBetween("", testutil.Day, testutil.Day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, marchOnly(tree))

	tree, err = f.tracker.TreeBetween(f.project.ID, testutil.Day, testutil.Day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, marchOnly(tree))

	// open upper bound
	tree, err = f.tracker.TreeBetween(f.project.ID, testutil.At(12, 0), time.Time{})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Data.Months, 1)
	assert.NotNil(t, tree[0].Data.Months[time.April])

	_, err = f.tracker.TreeBetween("", testutil.At(12, 0), testutil.At(9, 0))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.At(9, 0), testutil.At(10, 0))
	f.seed(t, testutil.At(11, 0), testutil.At(12, 0))

	n, err := f.tracker.DeleteProject(f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := repository.NewProjectRepo(f.db).GetByID(f.project.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Empty(t, f.stored(t))

	_, err = f.tracker.DeleteProject(f.project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
