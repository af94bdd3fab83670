package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

// OneTimeTokenRepository implements port.OneTimeTokenRepository using PostgreSQL.
type OneTimeTokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOneTimeTokenRepository constructs a new one-time token repository.
func NewOneTimeTokenRepository(pool *pgxpool.Pool) *OneTimeTokenRepository {
	return &OneTimeTokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *OneTimeTokenRepository) WithTx(tx pgx.Tx) *OneTimeTokenRepository {
	if tx == nil {
		return r
	}
	return &OneTimeTokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Replace deletes every live token for the token's identity and purpose, then
// inserts the new one. Both statements run inside a single transaction so a
// reader never observes two live tokens for the same pair.
func (r *OneTimeTokenRepository) Replace(ctx context.Context, token domain.OneTimeToken) error {
	if r.pool == nil {
		return r.replaceWithExec(ctx, r.exec, token)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace token tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.replaceWithExec(ctx, tx, token); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace token tx: %w", err)
	}

	return nil
}

func (r *OneTimeTokenRepository) replaceWithExec(ctx context.Context, exec pgExecutor, token domain.OneTimeToken) error {
	deleteStmt, deleteArgs, err := r.builder.Delete("auth.one_time_tokens").
		Where(squirrel.Eq{"identity_id": token.IdentityID}).
		Where(squirrel.Eq{"purpose": token.Purpose}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete stale tokens sql: %w", err)
	}

	if _, err := exec.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("delete stale tokens: %w", err)
	}

	insertStmt, insertArgs, err := r.builder.Insert("auth.one_time_tokens").
		Columns("id", "identity_id", "token_hash", "purpose", "created_at", "expires_at").
		Values(token.ID, token.IdentityID, token.TokenHash, token.Purpose, token.CreatedAt, token.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := exec.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByHash retrieves a token by its hashed value and purpose together. A hash
// presented under the wrong purpose does not match.
func (r *OneTimeTokenRepository) GetByHash(ctx context.Context, hash string, purpose domain.TokenPurpose) (*domain.OneTimeToken, error) {
	stmt, args, err := r.builder.
		Select("id", "identity_id", "token_hash", "purpose", "created_at", "expires_at").
		From("auth.one_time_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		Where(squirrel.Eq{"purpose": purpose}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var token domain.OneTimeToken
	if err := row.Scan(
		&token.ID,
		&token.IdentityID,
		&token.TokenHash,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	return &token, nil
}

// Delete removes a token row by id. Returns repository.ErrNotFound when the
// row was already deleted, which callers use to detect a consume race.
func (r *OneTimeTokenRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("auth.one_time_tokens").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteForIdentity removes all tokens of a purpose held by an identity.
func (r *OneTimeTokenRepository) DeleteForIdentity(ctx context.Context, identityID string, purpose domain.TokenPurpose) error {
	stmt, args, err := r.builder.Delete("auth.one_time_tokens").
		Where(squirrel.Eq{"identity_id": identityID}).
		Where(squirrel.Eq{"purpose": purpose}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}

	return nil
}

var _ port.OneTimeTokenRepository = (*OneTimeTokenRepository)(nil)
