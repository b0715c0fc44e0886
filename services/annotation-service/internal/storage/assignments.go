package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrAlreadyAssigned = errors.New("labeler already assigned to subject")

type Assignment struct {
	ID        string
	LabelerID string
	SubjectID string
	CreatedAt time.Time
}

type AssignmentRepository struct {
	pool *db.Pool
}

func NewAssignmentRepository(pool *db.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *Assignment) (string, error) {
	id := uuid.NewString()
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO labeler_assignments (id, labeler_id, subject_id)
		VALUES ($1, $2, $3)
	`, id, a.LabelerID, a.SubjectID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrAlreadyAssigned
		}
		return "", err
	}
	return id, nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, labelerID, subjectID string) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		DELETE FROM labeler_assignments
		WHERE labeler_id = $1 AND subject_id = $2
	`, labelerID, subjectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssignmentRepository) ListBySubject(ctx context.Context, subjectID string) ([]Assignment, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, labeler_id, subject_id, created_at
		FROM labeler_assignments
		WHERE subject_id = $1
		ORDER BY created_at
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.LabelerID, &a.SubjectID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *AssignmentRepository) CountBySubject(ctx context.Context, subjectID string) (int, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var count int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM labeler_assignments WHERE subject_id = $1
	`, subjectID).Scan(&count)
	return count, err
}
