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

func newMockedTokenRepo(t *testing.T) (*OneTimeTokenRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	repo := &OneTimeTokenRepository{
		exec:    mock,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	return repo, mock
}

func TestOneTimeTokenRepository_Replace(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	now := time.Now().UTC()
	token := domain.OneTimeToken{
		ID:         "token-1",
		IdentityID: "identity-1",
		TokenHash:  "hash-1",
		Purpose:    domain.PurposeResetPassword,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}

	mock.ExpectExec(`DELETE FROM auth\.one_time_tokens`).
		WithArgs(token.IdentityID, token.Purpose).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO auth\.one_time_tokens`).
		WithArgs(token.ID, token.IdentityID, token.TokenHash, token.Purpose, token.CreatedAt, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Replace(context.Background(), token); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOneTimeTokenRepository_GetByHash(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "identity_id", "token_hash", "purpose", "created_at", "expires_at",
	}).AddRow(
		"token-1", "identity-1", "hash-1", domain.PurposeResetPassword, now, now.Add(time.Hour),
	)

	mock.ExpectQuery(`SELECT .*FROM auth\.one_time_tokens`).
		WithArgs("hash-1", domain.PurposeResetPassword).
		WillReturnRows(rows)

	token, err := repo.GetByHash(context.Background(), "hash-1", domain.PurposeResetPassword)
	if err != nil {
		t.Fatalf("GetByHash returned error: %v", err)
	}
	if token.ID != "token-1" || token.IdentityID != "identity-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
	if token.Purpose != domain.PurposeResetPassword {
		t.Fatalf("unexpected purpose: %s", token.Purpose)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOneTimeTokenRepository_GetByHashMiss(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	mock.ExpectQuery(`SELECT .*FROM auth\.one_time_tokens`).
		WithArgs("missing", domain.PurposeVerifyEmail).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByHash(context.Background(), "missing", domain.PurposeVerifyEmail)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOneTimeTokenRepository_Delete(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	mock.ExpectExec(`DELETE FROM auth\.one_time_tokens`).
		WithArgs("token-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "token-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOneTimeTokenRepository_DeleteGone(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	mock.ExpectExec(`DELETE FROM auth\.one_time_tokens`).
		WithArgs("token-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "token-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for already deleted row, got %v", err)
	}
}

func TestOneTimeTokenRepository_DeleteForIdentity(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	mock.ExpectExec(`DELETE FROM auth\.one_time_tokens`).
		WithArgs("identity-1", domain.PurposeTwoFactorEmail).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	if err := repo.DeleteForIdentity(context.Background(), "identity-1", domain.PurposeTwoFactorEmail); err != nil {
		t.Fatalf("DeleteForIdentity returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
