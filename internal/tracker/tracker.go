// Package tracker records work sessions. Every write resolves the new session
// against a fresh snapshot of its project's sessions inside one transaction,
// so stored sessions of a project never overlap.
package tracker

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager/internal/config"
	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/timeline"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRange    = errors.New("session must end after it starts")
	ErrPausedTooLong   = errors.New("paused time must be shorter than the session")
)

// Tree is the year/month/week/day grouping of sessions.
type Tree = []timeline.YearGroup[models.SessionDetails]

type Tracker struct {
	db       *sql.DB
	cfg      *config.Config
	log      *slog.Logger
	calendar timeline.Calendar
}

func New(database *sql.DB, cfg *config.Config, logger *slog.Logger) *Tracker {
	return &Tracker{
		db:       database,
		cfg:      cfg,
		log:      logger,
		calendar: cfg.Calendar(),
	}
}

// Calendar returns the calendar sessions are grouped and displayed with.
func (t *Tracker) Calendar() timeline.Calendar {
	return t.calendar
}

// SessionInput describes a session to add or the new state of an edited one.
// Nil rate fields and an empty currency fall back to the project's settings.
type SessionInput struct {
	ProjectID     string
	Start         time.Time
	End           time.Time
	Paused        time.Duration
	Salary        *decimal.Decimal
	HourlyPayment *bool
	Currency      string
	Memo          string
}

// normalize truncates the range to the storage precision, so validation
// sees the times that will actually be stored.
func (in SessionInput) normalize() SessionInput {
	in.Start = in.Start.UTC().Truncate(time.Millisecond)
	in.End = in.End.UTC().Truncate(time.Millisecond)
	return in
}

func (in SessionInput) validate() error {
	if !in.End.After(in.Start) {
		return fmt.Errorf("%w: %s - %s", ErrInvalidRange,
			in.Start.Format(time.RFC3339), in.End.Format(time.RFC3339))
	}
	if in.Paused < 0 || in.Paused >= in.End.Sub(in.Start) {
		return ErrPausedTooLong
	}
	return nil
}

// AddSession stores a new session, trimmed or split around the project's
// existing sessions. On a complete overlap nothing is written and the
// returned error is timeline.ErrCompleteOverlap; the outcome is still
// returned so callers can explain what collided.
func (t *Tracker) AddSession(in SessionInput) (*Outcome, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var outcome *Outcome
	err := db.WithinTx(t.db, func(tx db.DBTX) error {
		project, err := repository.NewProjectRepo(tx).GetByID(in.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, in.ProjectID)
		}

		sessions := repository.NewSessionRepo(tx)
		existing, err := sessions.ListByProject(project.ID)
		if err != nil {
			return err
		}

		candidate := t.candidate(uuid.New().String(), project, in, time.Now())
		outcome = t.resolve(existing, candidate)
		if outcome.Resolution.Kind == timeline.CompleteOverlap {
			return timeline.ErrCompleteOverlap
		}
		return insertAll(sessions, outcome.Stored)
	})
	if err != nil {
		t.logFailure("add session", outcome, err)
		return outcome, err
	}

	t.logStored("session added", outcome)
	return outcome, nil
}

// EditSession replaces session id with the state described by in. The
// session's prior version is left out of the overlap check. An empty
// in.ProjectID keeps the session in its current project.
func (t *Tracker) EditSession(id string, in SessionInput) (*Outcome, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var outcome *Outcome
	err := db.WithinTx(t.db, func(tx db.DBTX) error {
		sessions := repository.NewSessionRepo(tx)
		current, err := sessions.GetByID(id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}

		if in.ProjectID == "" {
			in.ProjectID = current.ProjectID
		}
		project, err := repository.NewProjectRepo(tx).GetByID(in.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, in.ProjectID)
		}

		existing, err := sessions.ListByProjectExcept(project.ID, id)
		if err != nil {
			return err
		}

		candidate := t.candidate(id, project, in, current.Payload.CreatedAt)
		outcome = t.resolve(existing, candidate)
		if outcome.Resolution.Kind == timeline.CompleteOverlap {
			return timeline.ErrCompleteOverlap
		}

		if err := sessions.Delete(id); err != nil {
			return fmt.Errorf("removing previous version: %w", err)
		}
		return insertAll(sessions, outcome.Stored)
	})
	if err != nil {
		t.logFailure("edit session", outcome, err)
		return outcome, err
	}

	t.logStored("session edited", outcome)
	return outcome, nil
}

// DeleteSessions removes the given sessions and reports how many existed.
func (t *Tracker) DeleteSessions(ids []string) (int, error) {
	var n int
	err := db.WithinTx(t.db, func(tx db.DBTX) error {
		var err error
		n, err = repository.NewSessionRepo(tx).DeleteMany(ids)
		return err
	})
	if err != nil {
		t.log.Error("delete sessions failed", "count", len(ids), "error", err)
		return 0, err
	}

	t.log.Info("sessions deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

// DeleteProject removes a project together with its sessions and reports
// how many sessions went with it.
func (t *Tracker) DeleteProject(projectID string) (int, error) {
	var n int
	err := db.WithinTx(t.db, func(tx db.DBTX) error {
		projects := repository.NewProjectRepo(tx)
		project, err := projects.GetByID(projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}

		if n, err = repository.NewSessionRepo(tx).DeleteByProjectID(projectID); err != nil {
			return fmt.Errorf("removing sessions: %w", err)
		}
		return projects.Delete(projectID)
	})
	if err != nil {
		t.log.Error("delete project failed", "project", projectID, "error", err)
		return 0, err
	}

	t.log.Info("project deleted", "project", projectID, "sessions", n)
	return n, nil
}

// Tree groups the sessions of one project, or of all projects when
// projectID is empty, by year, month, week and day.
func (t *Tracker) Tree(projectID string) (Tree, error) {
	return t.TreeBetween(projectID, time.Time{}, time.Time{})
}

// TreeBetween is Tree restricted to sessions starting in [from, to). A zero
// bound leaves that side open.
func (t *Tracker) TreeBetween(projectID string, from, to time.Time) (Tree, error) {
	if projectID != "" {
		project, err := repository.NewProjectRepo(t.db).GetByID(projectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, fmt.Errorf("%w: %s - %s", ErrInvalidRange,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	sessions := repository.NewSessionRepo(t.db)
	var list []models.Session
	var err error
	switch {
	case !from.IsZero() || !to.IsZero():
		if to.IsZero() {
			to = maxTime
		}
		list, err = sessions.ListInRange(from, to)
		list = slices.DeleteFunc(list, func(s models.Session) bool {
			return projectID != "" && s.ProjectID != projectID
		})
	case projectID != "":
		list, err = sessions.ListByProject(projectID)
	default:
		list, err = sessions.ListAll()
	}
	if err != nil {
		return nil, err
	}

	return timeline.Group(list, t.calendar), nil
}

// maxTime is the open upper bound for range queries; stored timestamps are
// four-digit years.
var maxTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// candidate builds the session to resolve from a normalized input.
func (t *Tracker) candidate(id string, project *models.Project, in SessionInput, createdAt time.Time) models.Session {
	start, end := in.Start, in.End

	if step := t.cfg.RoundingStep(); step > 0 {
		dir, err := timeline.ParseRoundDirection(t.cfg.Rounding.Direction)
		if err != nil {
			dir = timeline.RoundNearest
		}
		active := end.Sub(start) - in.Paused
		end = start.Add(in.Paused + timeline.RoundDuration(active, step, dir))
	}

	details := models.SessionDetails{
		Salary:        project.Salary,
		HourlyPayment: project.HourlyPayment,
		Currency:      project.Currency,
		Memo:          in.Memo,
		PausedSeconds: int64(in.Paused / time.Second),
		CreatedAt:     createdAt.UTC().Truncate(time.Millisecond),
	}
	if in.Salary != nil {
		details.Salary = *in.Salary
	}
	if in.HourlyPayment != nil {
		details.HourlyPayment = *in.HourlyPayment
	}
	if in.Currency != "" {
		details.Currency = in.Currency
	}
	if details.Currency == "" {
		details.Currency = t.cfg.DefaultCurrency
	}

	return models.Session{
		ID:        id,
		ProjectID: project.ID,
		Start:     start,
		End:       end,
		Payload:   details,
	}
}

// resolve fits the candidate and prepares the rows to store. The first piece
// keeps the candidate's ID and its pause, clamped to the piece; later pieces
// get fresh IDs and no pause.
func (t *Tracker) resolve(existing []models.Session, candidate models.Session) *Outcome {
	res := timeline.Resolve(existing, candidate)

	stored := make([]models.Session, 0, len(res.Adjusted))
	for i, piece := range res.Adjusted {
		if i > 0 {
			piece.ID = uuid.New().String()
			piece.Payload.PausedSeconds = 0
		}
		if span := int64(piece.Duration() / time.Second); piece.Payload.PausedSeconds > span {
			piece.Payload.PausedSeconds = span
		}
		stored = append(stored, piece)
	}

	return &Outcome{
		Original:   candidate,
		Resolution: res,
		Stored:     stored,
		calendar:   t.calendar,
	}
}

func insertAll(sessions *repository.SessionRepo, list []models.Session) error {
	for _, s := range list {
		if err := sessions.Create(s); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) logStored(msg string, o *Outcome) {
	attrs := []any{
		"id", o.Original.ID,
		"project", o.Original.ProjectID,
		"overlap", o.Resolution.Kind.String(),
		"stored", len(o.Stored),
	}
	if o.Resolution.Kind == timeline.PartialOverlap {
		t.log.Warn(msg+" with overlap", attrs...)
		return
	}
	t.log.Info(msg, attrs...)
}

func (t *Tracker) logFailure(op string, o *Outcome, err error) {
	if errors.Is(err, timeline.ErrCompleteOverlap) && o != nil {
		t.log.Warn(op+" rejected", "project", o.Original.ProjectID,
			"overlapping", len(o.Resolution.Overlapping))
		return
	}
	t.log.Error(op+" failed", "error", err)
}
