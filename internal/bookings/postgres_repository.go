package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores bookings and allocates numbers from booking_sequences.
type PostgresRepository struct {
	db  DB
	num numbering
}

func NewPostgresRepository(db DB, opts ...Option) *PostgresRepository {
	if db == nil {
		panic("bookings: pgx pool required")
	}
	num := defaultNumbering()
	for _, opt := range opts {
		opt(&num)
	}
	return &PostgresRepository{db: db, num: num}
}

// Create increments the day's sequence and inserts the booking in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateRequest) (*Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	appointmentDate, _ := time.Parse(DateLayout, req.AppointmentDate)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	day := r.num.today()
	var seq int
	if err := tx.QueryRow(ctx, `
		INSERT INTO booking_sequences (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = booking_sequences.last_value + 1
		RETURNING last_value
	`, day.Format("20060102")).Scan(&seq); err != nil {
		return nil, fmt.Errorf("bookings: next sequence: %w", err)
	}

	booking := newBooking(req, FormatNumber(r.num.prefix, day, seq), day)
	if err := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, booking_number, user_id, service_id, service_name, appointment_date,
			appointment_time, duration_minutes, total_amount, status, payment_status, customer_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`,
		booking.ID,
		booking.BookingNumber,
		booking.UserID,
		booking.ServiceID,
		booking.ServiceName,
		appointmentDate,
		booking.AppointmentTime,
		booking.DurationMinutes,
		booking.TotalAmount,
		booking.Status,
		booking.PaymentStatus,
		booking.CustomerNotes,
	).Scan(&booking.CreatedAt); err != nil {
		return nil, fmt.Errorf("bookings: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit: %w", err)
	}
	return &booking, nil
}

// ListByUser returns the user's most recent bookings first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_number, user_id, service_id, service_name,
			to_char(appointment_date, 'YYYY-MM-DD'), appointment_time, duration_minutes,
			total_amount, status, payment_status, customer_notes, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list by user: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID,
			&b.BookingNumber,
			&b.UserID,
			&b.ServiceID,
			&b.ServiceName,
			&b.AppointmentDate,
			&b.AppointmentTime,
			&b.DurationMinutes,
			&b.TotalAmount,
			&b.Status,
			&b.PaymentStatus,
			&b.CustomerNotes,
			&b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list by user: %w", err)
	}
	return out, nil
}
