package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

const identityColumns = "id, email, wallet_address, password_hash, role, email_verified_at, two_factor_enabled, created_at, last_login_at"

// IdentityRepository implements port.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewIdentityRepository wires a PostgreSQL-backed identity repository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *IdentityRepository) WithTx(tx pgx.Tx) *IdentityRepository {
	if tx == nil {
		return r
	}
	return &IdentityRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new identity row.
func (r *IdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	var emailValue any
	if identity.Email != nil && *identity.Email != "" {
		emailValue = strings.ToLower(*identity.Email)
	}

	var walletValue any
	if identity.WalletAddress != nil && *identity.WalletAddress != "" {
		walletValue = *identity.WalletAddress
	}

	var passwordValue any
	if identity.PasswordHash != nil && *identity.PasswordHash != "" {
		passwordValue = *identity.PasswordHash
	}

	var verifiedAtValue any
	if identity.EmailVerifiedAt != nil {
		verifiedAtValue = *identity.EmailVerifiedAt
	}

	var lastLoginValue any
	if identity.LastLoginAt != nil {
		lastLoginValue = *identity.LastLoginAt
	}

	stmt, args, err := r.builder.Insert("auth.identities").
		Columns(
			"id",
			"email",
			"wallet_address",
			"password_hash",
			"role",
			"email_verified_at",
			"two_factor_enabled",
			"created_at",
			"last_login_at",
		).
		Values(
			identity.ID,
			emailValue,
			walletValue,
			passwordValue,
			identity.Role,
			verifiedAtValue,
			identity.TwoFactorEnabled,
			identity.CreatedAt,
			lastLoginValue,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert identity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}

	return nil
}

// GetByID retrieves an identity by identifier.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an identity by email address. Lookup is case insensitive.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByWallet retrieves an identity by wallet address.
func (r *IdentityRepository) GetByWallet(ctx context.Context, wallet string) (*domain.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"wallet_address": strings.TrimSpace(wallet)})
}

func (r *IdentityRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(strings.Split(identityColumns, ", ")...).
		From("auth.identities").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	return scanIdentity(row)
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity     domain.Identity
		email        sql.NullString
		wallet       sql.NullString
		passwordHash sql.NullString
		verifiedAt   sql.NullTime
		lastLoginAt  sql.NullTime
	)

	if err := row.Scan(
		&identity.ID,
		&email,
		&wallet,
		&passwordHash,
		&identity.Role,
		&verifiedAt,
		&identity.TwoFactorEnabled,
		&identity.CreatedAt,
		&lastLoginAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	if email.Valid {
		value := email.String
		identity.Email = &value
	}
	if wallet.Valid {
		value := wallet.String
		identity.WalletAddress = &value
	}
	if passwordHash.Valid {
		value := passwordHash.String
		identity.PasswordHash = &value
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		identity.EmailVerifiedAt = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		identity.LastLoginAt = &t
	}

	return &identity, nil
}

// UpdatePassword replaces the stored password hash.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("auth.identities").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetEmail attaches an email address to an identity. The unique constraint on
// the email column rejects addresses already claimed by another identity.
func (r *IdentityRepository) SetEmail(ctx context.Context, id, email string) error {
	stmt, args, err := r.builder.Update("auth.identities").
		Set("email", strings.ToLower(strings.TrimSpace(email))).
		Set("email_verified_at", nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set email sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set email: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkEmailVerified records the verification timestamp.
func (r *IdentityRepository) MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	stmt, args, err := r.builder.Update("auth.identities").
		Set("email_verified_at", verifiedAt.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark email verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetTwoFactorEnabled flips the denormalized two-factor flag on the identity.
func (r *IdentityRepository) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	stmt, args, err := r.builder.Update("auth.identities").
		Set("two_factor_enabled", enabled).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set two factor enabled sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set two factor enabled: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLogin stores the most recent successful sign-in time.
func (r *IdentityRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("auth.identities").
		Set("last_login_at", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)
