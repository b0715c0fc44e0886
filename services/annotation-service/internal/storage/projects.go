package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
}

type ProjectRepository struct {
	pool *db.Pool
}

func NewProjectRepository(pool *db.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) Create(ctx context.Context, p *Project) (string, error) {
	id := uuid.NewString()
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO projects (id, name, description, owner_id)
		VALUES ($1, $2, $3, $4)
	`, id, p.Name, p.Description, p.OwnerID)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (Project, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var p Project
	err := q.QueryRow(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
