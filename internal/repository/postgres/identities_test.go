package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

func newMockedIdentityRepo(t *testing.T) (*IdentityRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	repo := &IdentityRepository{
		exec:    mock,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	return repo, mock
}

func identityRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "wallet_address", "password_hash", "role",
		"email_verified_at", "two_factor_enabled", "created_at", "last_login_at",
	})
}

func TestIdentityRepository_Create(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	now := time.Now().UTC()
	email := "User@Example.com"
	hash := "argon2id$digest"
	identity := domain.Identity{
		ID:           "identity-1",
		Email:        &email,
		PasswordHash: &hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO auth\.identities`).
		WithArgs(
			"identity-1",
			"user@example.com",
			nil,
			hash,
			domain.RoleUser,
			nil,
			false,
			now,
			nil,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), identity); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_GetByEmail(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	now := time.Now().UTC()
	verifiedAt := now.Add(-24 * time.Hour)

	rows := identityRows().AddRow(
		"identity-1", "user@example.com", nil, "argon2id$digest", domain.RoleUser,
		verifiedAt, true, now.Add(-48*time.Hour), now,
	)

	mock.ExpectQuery(`SELECT .*FROM auth\.identities`).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	identity, err := repo.GetByEmail(context.Background(), " User@Example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if identity.ID != "identity-1" {
		t.Fatalf("unexpected identity id: %s", identity.ID)
	}
	if identity.Email == nil || *identity.Email != "user@example.com" {
		t.Fatalf("expected email populated, got %+v", identity.Email)
	}
	if identity.WalletAddress != nil {
		t.Fatalf("expected nil wallet, got %+v", identity.WalletAddress)
	}
	if identity.EmailVerifiedAt == nil || !identity.EmailVerifiedAt.Equal(verifiedAt) {
		t.Fatalf("expected verified timestamp, got %+v", identity.EmailVerifiedAt)
	}
	if !identity.TwoFactorEnabled {
		t.Fatal("expected two factor flag set")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_GetByWalletMiss(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	mock.ExpectQuery(`SELECT .*FROM auth\.identities`).
		WithArgs("0xmissing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByWallet(context.Background(), "0xmissing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityRepository_UpdatePassword(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	changedAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.identities`).
		WithArgs("new-hash", changedAt, "identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdatePassword(context.Background(), "identity-1", "new-hash", changedAt); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_UpdatePasswordMiss(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	mock.ExpectExec(`UPDATE auth\.identities`).
		WithArgs("new-hash", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePassword(context.Background(), "ghost", "new-hash", time.Now().UTC())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityRepository_SetEmail(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	mock.ExpectExec(`UPDATE auth\.identities`).
		WithArgs("new.user@example.com", nil, "identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetEmail(context.Background(), "identity-1", " New.User@Example.com "); err != nil {
		t.Fatalf("SetEmail returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_MarkEmailVerified(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	verifiedAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.identities`).
		WithArgs(verifiedAt, "identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkEmailVerified(context.Background(), "identity-1", verifiedAt); err != nil {
		t.Fatalf("MarkEmailVerified returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_SetTwoFactorEnabled(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	mock.ExpectExec(`UPDATE auth\.identities`).
		WithArgs(true, "identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetTwoFactorEnabled(context.Background(), "identity-1", true); err != nil {
		t.Fatalf("SetTwoFactorEnabled returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_UpdateLastLogin(t *testing.T) {
	repo, mock := newMockedIdentityRepo(t)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.identities`).
		WithArgs(at, "identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateLastLogin(context.Background(), "identity-1", at); err != nil {
		t.Fatalf("UpdateLastLogin returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
