package users

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var userCols = []string{"id", "line_user_id", "display_name", "picture_url", "phone", "email", "is_active",
	"membership_level", "points", "total_spent", "last_active_at", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	repo := NewPostgresRepository(mock)
	fixed := time.Date(2025, 1, 9, 3, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo, mock
}

func TestPostgresRepository_GetByLineID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	phone := "0812345678"

	mock.ExpectQuery("SELECT (.+) FROM users WHERE line_user_id").
		WithArgs("U1").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow("7f1c", "U1", "Nok", "", &phone, (*string)(nil), true, "STANDARD", 0, 0.0, (*time.Time)(nil), now, now))

	user, err := repo.GetByLineID(context.Background(), "U1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !user.Registered() || user.Email != nil {
		t.Fatalf("unexpected user %+v", user)
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE line_user_id").
		WithArgs("U2").
		WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByLineID(context.Background(), "U2"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_RegisterCoalescesEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	phone := "0812345678"
	kept := "kept@example.com"

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "U1", DefaultDisplayName, phone, (*string)(nil), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow("7f1c", "U1", "Nok", "", &phone, &kept, true, "STANDARD", 0, 0.0, &now, now, now))

	user, err := repo.Register(context.Background(), "U1", phone, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email == nil || *user.Email != kept {
		t.Fatalf("expected existing email, got %v", user.Email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_SetActive(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET is_active").
		WithArgs("U1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.SetActive(context.Background(), "U1", false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	mock.ExpectExec("UPDATE users SET is_active").
		WithArgs("ghost", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.SetActive(context.Background(), "ghost", false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
