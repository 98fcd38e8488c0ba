package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/models"
)

type ClientRepo struct {
	db db.DBTX
}

func NewClientRepo(conn db.DBTX) *ClientRepo {
	return &ClientRepo{db: conn}
}

func (r *ClientRepo) Create(name string) (*models.Client, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(
		"INSERT INTO clients (id, name, created_at) VALUES (?, ?, ?)",
		id, name, db.FormatTime(time.Now()),
	)
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

func (r *ClientRepo) GetByID(id string) (*models.Client, error) {
	var c models.Client
	var createdAt string
	err := r.db.QueryRow(
		"SELECT id, name, created_at FROM clients WHERE id = ?",
		id,
	).Scan(&c.ID, &c.Name, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepo) GetByName(name string) (*models.Client, error) {
	var id string
	err := r.db.QueryRow("SELECT id FROM clients WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *ClientRepo) GetAll() ([]models.Client, error) {
	rows, err := r.db.Query("SELECT id, name, created_at FROM clients ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *ClientRepo) Update(id string, name string) error {
	_, err := r.db.Exec("UPDATE clients SET name = ? WHERE id = ?", name, id)
	return err
}

func (r *ClientRepo) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM clients WHERE id = ?", id)
	return err
}

type ClientWithStats struct {
	models.Client
	ProjectCount int
	SessionCount int
}

func (r *ClientRepo) GetAllWithStats() ([]ClientWithStats, error) {
	query := `
		SELECT
			c.id, c.name, c.created_at,
			COUNT(DISTINCT p.id) as project_count,
			COUNT(DISTINCT s.id) as session_count
		FROM clients c
		LEFT JOIN projects p ON p.client_id = c.id
		LEFT JOIN sessions s ON s.project_id = p.id
		GROUP BY c.id
		ORDER BY c.name
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []ClientWithStats
	for rows.Next() {
		var c ClientWithStats
		var createdAt string
		if err := rows.Scan(
			&c.ID, &c.Name, &createdAt,
			&c.ProjectCount, &c.SessionCount,
		); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
