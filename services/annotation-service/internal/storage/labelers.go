package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrEmailTaken = errors.New("email already registered")

type Labeler struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type LabelerRepository struct {
	pool *db.Pool
}

func NewLabelerRepository(pool *db.Pool) *LabelerRepository {
	return &LabelerRepository{pool: pool}
}

func (r *LabelerRepository) Create(ctx context.Context, l *Labeler) (string, error) {
	id := uuid.NewString()
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO labelers (id, email, password_hash, display_name)
		VALUES ($1, $2, $3, $4)
	`, id, l.Email, l.PasswordHash, l.DisplayName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return id, nil
}

func (r *LabelerRepository) Get(ctx context.Context, id string) (Labeler, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var l Labeler
	err := q.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM labelers
		WHERE id = $1
	`, id).Scan(&l.ID, &l.Email, &l.PasswordHash, &l.DisplayName, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Labeler{}, ErrNotFound
	}
	if err != nil {
		return Labeler{}, err
	}
	return l, nil
}

func (r *LabelerRepository) GetByEmail(ctx context.Context, email string) (Labeler, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var l Labeler
	err := q.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM labelers
		WHERE email = $1
	`, email).Scan(&l.ID, &l.Email, &l.PasswordHash, &l.DisplayName, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Labeler{}, ErrNotFound
	}
	if err != nil {
		return Labeler{}, err
	}
	return l, nil
}
