package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	db  DB
	now func() time.Time
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("users: pgx pool required")
	}
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const userColumns = `id, line_user_id, display_name, picture_url, phone, email, is_active,
	membership_level, points, total_spent, last_active_at, created_at, updated_at`

func (r *PostgresRepository) GetByLineID(ctx context.Context, lineUserID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE line_user_id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, lineUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: get by line id: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, req *UpsertRequest) (*User, error) {
	if req == nil {
		return nil, ErrMissingLineID
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO users (id, line_user_id, display_name, picture_url, is_active, last_active_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (line_user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			picture_url = EXCLUDED.picture_url,
			is_active = TRUE,
			last_active_at = EXCLUDED.last_active_at,
			updated_at = now()
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, uuid.New(), req.LineUserID, req.DisplayName, req.PictureURL, r.now()))
	if err != nil {
		return nil, fmt.Errorf("users: upsert: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Register(ctx context.Context, lineUserID, phone string, email *string) (*User, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return nil, ErrMissingLineID
	}
	query := `
		INSERT INTO users (id, line_user_id, display_name, phone, email, is_active, last_active_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		ON CONFLICT (line_user_id) DO UPDATE SET
			phone = EXCLUDED.phone,
			email = COALESCE(EXCLUDED.email, users.email),
			is_active = TRUE,
			last_active_at = EXCLUDED.last_active_at,
			updated_at = now()
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, uuid.New(), lineUserID, DefaultDisplayName, phone, email, r.now()))
	if err != nil {
		return nil, fmt.Errorf("users: register: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, lineUserID string, active bool) error {
	ct, err := r.db.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE line_user_id = $1`, lineUserID, active)
	if err != nil {
		return fmt.Errorf("users: set active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) Touch(ctx context.Context, lineUserID string) error {
	ct, err := r.db.Exec(ctx, `UPDATE users SET last_active_at = $2 WHERE line_user_id = $1`, lineUserID, r.now())
	if err != nil {
		return fmt.Errorf("users: touch: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(
		&user.ID,
		&user.LineUserID,
		&user.DisplayName,
		&user.PictureURL,
		&user.Phone,
		&user.Email,
		&user.IsActive,
		&user.MembershipLevel,
		&user.Points,
		&user.TotalSpent,
		&user.LastActiveAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
