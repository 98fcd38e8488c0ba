package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/models"
)

type ProjectRepo struct {
	db db.DBTX
}

func NewProjectRepo(conn db.DBTX) *ProjectRepo {
	return &ProjectRepo{db: conn}
}

const projectColumns = `p.id, p.name, p.client_id, p.salary, p.hourly_payment, p.currency, p.created_at, c.name`

func (r *ProjectRepo) Create(name string, clientID *string, salary decimal.Decimal, hourly bool, currency string) (*models.Project, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(`
		INSERT INTO projects (id, name, client_id, salary, hourly_payment, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, name, clientID, salary, hourly, currency, db.FormatTime(time.Now()))
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

func (r *ProjectRepo) GetByID(id string) (*models.Project, error) {
	row := r.db.QueryRow(`
		SELECT `+projectColumns+`
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		WHERE p.id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepo) GetByName(name string) (*models.Project, error) {
	row := r.db.QueryRow(`
		SELECT `+projectColumns+`
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		WHERE p.name = ?
		ORDER BY p.created_at
		LIMIT 1
	`, name)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepo) GetAll() ([]models.Project, error) {
	return r.query(`
		SELECT ` + projectColumns + `
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		ORDER BY c.name, p.name
	`)
}

func (r *ProjectRepo) GetByClientID(clientID string) ([]models.Project, error) {
	return r.query(`
		SELECT `+projectColumns+`
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		WHERE p.client_id = ?
		ORDER BY p.name
	`, clientID)
}

func (r *ProjectRepo) GetOrphans() ([]models.Project, error) {
	return r.query(`
		SELECT ` + projectColumns + `
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		WHERE p.client_id IS NULL
		ORDER BY p.name
	`)
}

func (r *ProjectRepo) query(query string, args ...any) ([]models.Project, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner, extra ...any) (*models.Project, error) {
	var p models.Project
	var clientID sql.NullString
	var clientName sql.NullString
	var createdAt string

	dest := []any{&p.ID, &p.Name, &clientID, &p.Salary, &p.HourlyPayment, &p.Currency, &createdAt, &clientName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if clientID.Valid {
		p.ClientID = &clientID.String
	}
	p.ClientName = clientName.String

	var err error
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepo) Update(id string, name string) error {
	_, err := r.db.Exec("UPDATE projects SET name = ? WHERE id = ?", name, id)
	return err
}

func (r *ProjectRepo) SetRate(id string, salary decimal.Decimal, hourly bool, currency string) error {
	_, err := r.db.Exec(
		"UPDATE projects SET salary = ?, hourly_payment = ?, currency = ? WHERE id = ?",
		salary, hourly, currency, id,
	)
	return err
}

func (r *ProjectRepo) SetClient(id string, clientID *string) error {
	_, err := r.db.Exec("UPDATE projects SET client_id = ? WHERE id = ?", clientID, id)
	return err
}

func (r *ProjectRepo) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM projects WHERE id = ?", id)
	return err
}

type ProjectWithStats struct {
	models.Project
	SessionCount  int
	ActiveSeconds int64
}

func (r *ProjectRepo) GetAllWithStats() ([]ProjectWithStats, error) {
	query := `
		SELECT
			` + projectColumns + `,
			COUNT(s.id) as session_count,
			COALESCE(SUM(MAX(0,
				CAST(ROUND((julianday(s.end_time) - julianday(s.start_time)) * 86400) AS INTEGER)
				- s.paused_seconds)), 0) as active_seconds
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		LEFT JOIN sessions s ON s.project_id = p.id
		GROUP BY p.id
		ORDER BY c.name, p.name
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []ProjectWithStats
	for rows.Next() {
		var ps ProjectWithStats
		p, err := scanProject(rows, &ps.SessionCount, &ps.ActiveSeconds)
		if err != nil {
			return nil, err
		}
		ps.Project = *p
		projects = append(projects, ps)
	}
	return projects, rows.Err()
}
