package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Subject struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	CreatedAt   time.Time
}

type SubjectRepository struct {
	pool *db.Pool
}

func NewSubjectRepository(pool *db.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

func (r *SubjectRepository) Create(ctx context.Context, s *Subject) (string, error) {
	id := uuid.NewString()
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO subjects (id, project_id, name, description)
		VALUES ($1, $2, $3, $4)
	`, id, s.ProjectID, s.Name, s.Description)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SubjectRepository) Get(ctx context.Context, id string) (Subject, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var s Subject
	err := q.QueryRow(ctx, `
		SELECT id, project_id, name, description, created_at
		FROM subjects
		WHERE id = $1
	`, id).Scan(&s.ID, &s.ProjectID, &s.Name, &s.Description, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subject{}, ErrNotFound
	}
	if err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (r *SubjectRepository) ListByProject(ctx context.Context, projectID string) ([]Subject, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, project_id, name, description, created_at
		FROM subjects
		WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
