package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Label struct {
	ID        string
	SubjectID string
	Name      string
	ColorHex  string
	Shortcut  string
	CreatedAt time.Time
}

type LabelRepository struct {
	pool *db.Pool
}

func NewLabelRepository(pool *db.Pool) *LabelRepository {
	return &LabelRepository{pool: pool}
}

func (r *LabelRepository) Create(ctx context.Context, l *Label) (string, error) {
	id := uuid.NewString()
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO labels (id, subject_id, name, color_hex, shortcut)
		VALUES ($1, $2, $3, $4, $5)
	`, id, l.SubjectID, l.Name, l.ColorHex, l.Shortcut)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *LabelRepository) Get(ctx context.Context, id string) (Label, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var l Label
	err := q.QueryRow(ctx, `
		SELECT id, subject_id, name, color_hex, shortcut, created_at
		FROM labels
		WHERE id = $1
	`, id).Scan(&l.ID, &l.SubjectID, &l.Name, &l.ColorHex, &l.Shortcut, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Label{}, ErrNotFound
	}
	if err != nil {
		return Label{}, err
	}
	return l, nil
}

func (r *LabelRepository) ListBySubject(ctx context.Context, subjectID string) ([]Label, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, subject_id, name, color_hex, shortcut, created_at
		FROM labels
		WHERE subject_id = $1
		ORDER BY name
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.SubjectID, &l.Name, &l.ColorHex, &l.Shortcut, &l.CreatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (r *LabelRepository) Delete(ctx context.Context, id string) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM labels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
