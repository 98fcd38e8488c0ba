package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/models"
)

type SessionRepo struct {
	db db.DBTX
}

func NewSessionRepo(conn db.DBTX) *SessionRepo {
	return &SessionRepo{db: conn}
}

const sessionColumns = `id, project_id, start_time, end_time, paused_seconds, salary, hourly_payment, currency, memo, created_at`

// Create stores s as given; the caller assigns the ID.
func (r *SessionRepo) Create(s models.Session) error {
	createdAt := s.Payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.ProjectID,
		db.FormatTime(s.Start), db.FormatTime(s.End),
		s.Payload.PausedSeconds, s.Payload.Salary, s.Payload.HourlyPayment,
		s.Payload.Currency, s.Payload.Memo, db.FormatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByID(id string) (*models.Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) ListByProject(projectID string) ([]models.Session, error) {
	return r.list(`WHERE project_id = ?`, projectID)
}

// ListByProjectExcept returns the project's sessions without excludeID, the
// snapshot an edit is resolved against.
func (r *SessionRepo) ListByProjectExcept(projectID, excludeID string) ([]models.Session, error) {
	return r.list(`WHERE project_id = ? AND id <> ?`, projectID, excludeID)
}

func (r *SessionRepo) ListAll() ([]models.Session, error) {
	return r.list("")
}

// ListInRange returns sessions starting in [from, to).
func (r *SessionRepo) ListInRange(from, to time.Time) ([]models.Session, error) {
	return r.list(`WHERE start_time >= ? AND start_time < ?`, db.FormatTime(from), db.FormatTime(to))
}

func (r *SessionRepo) list(filter string, args ...any) ([]models.Session, error) {
	rows, err := r.db.Query(`SELECT `+sessionColumns+` FROM sessions `+filter+` ORDER BY start_time ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var start, end, createdAt string

	if err := row.Scan(
		&s.ID, &s.ProjectID, &start, &end,
		&s.Payload.PausedSeconds, &s.Payload.Salary, &s.Payload.HourlyPayment,
		&s.Payload.Currency, &s.Payload.Memo, &createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if s.Start, err = db.ParseTime(start); err != nil {
		return nil, fmt.Errorf("session %s start_time: %w", s.ID, err)
	}
	if s.End, err = db.ParseTime(end); err != nil {
		return nil, fmt.Errorf("session %s end_time: %w", s.ID, err)
	}
	if s.Payload.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("session %s created_at: %w", s.ID, err)
	}
	return &s, nil
}

func (r *SessionRepo) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteMany removes the given sessions and reports how many rows went away.
func (r *SessionRepo) DeleteMany(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.Exec("DELETE FROM sessions WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// DeleteByProjectID removes every session of a project and reports how many
// there were.
func (r *SessionRepo) DeleteByProjectID(projectID string) (int, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE project_id = ?", projectID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
