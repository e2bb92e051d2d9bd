package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads services from the relational database.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const serviceColumns = `id, code, name, description, category, price, member_price, duration_minutes,
	is_active, is_featured, sort_order, required_specialties`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND is_active`
	var svc Service
	if err := scanService(r.db.QueryRow(ctx, query, id), &svc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: get service: %w", err)
	}
	return &svc, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE is_active
		ORDER BY is_featured DESC, sort_order ASC, name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list active: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var svc Service
		if err := scanService(rows, &svc); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list active: %w", err)
	}
	return out, nil
}

func scanService(row pgx.Row, svc *Service) error {
	return row.Scan(
		&svc.ID,
		&svc.Code,
		&svc.Name,
		&svc.Description,
		&svc.Category,
		&svc.Price,
		&svc.MemberPrice,
		&svc.DurationMinutes,
		&svc.IsActive,
		&svc.IsFeatured,
		&svc.SortOrder,
		&svc.RequiredSpecialties,
	)
}
