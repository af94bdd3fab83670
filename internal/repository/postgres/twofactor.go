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

// SecondFactorRepository implements port.SecondFactorRepository using
// PostgreSQL. Backup code hashes live in a companion table so consuming a
// single code is a plain delete.
type SecondFactorRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSecondFactorRepository constructs a new second-factor repository.
func NewSecondFactorRepository(pool *pgxpool.Pool) *SecondFactorRepository {
	return &SecondFactorRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *SecondFactorRepository) WithTx(tx pgx.Tx) *SecondFactorRepository {
	if tx == nil {
		return r
	}
	return &SecondFactorRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Get retrieves the credential and its remaining backup code hashes.
func (r *SecondFactorRepository) Get(ctx context.Context, identityID string) (*domain.SecondFactorCredential, error) {
	stmt, args, err := r.builder.
		Select("identity_id", "secret", "enabled", "created_at", "updated_at").
		From("auth.second_factors").
		Where(squirrel.Eq{"identity_id": identityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select second factor sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var credential domain.SecondFactorCredential
	if err := row.Scan(
		&credential.IdentityID,
		&credential.Secret,
		&credential.Enabled,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan second factor: %w", err)
	}

	hashes, err := r.listBackupCodeHashes(ctx, identityID)
	if err != nil {
		return nil, err
	}
	credential.BackupCodeHashes = hashes

	return &credential, nil
}

func (r *SecondFactorRepository) listBackupCodeHashes(ctx context.Context, identityID string) ([]string, error) {
	stmt, args, err := r.builder.
		Select("code_hash").
		From("auth.second_factor_backup_codes").
		Where(squirrel.Eq{"identity_id": identityID}).
		OrderBy("code_hash ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select backup codes sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query backup codes: %w", err)
	}
	defer rows.Close()

	hashes := make([]string, 0)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan backup code: %w", err)
		}
		hashes = append(hashes, hash)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup codes: %w", err)
	}

	return hashes, nil
}

// Upsert replaces the stored credential wholesale. The secret, enabled flag
// and backup code set change together inside one transaction.
func (r *SecondFactorRepository) Upsert(ctx context.Context, credential domain.SecondFactorCredential) error {
	if r.pool == nil {
		return r.upsertWithExec(ctx, r.exec, credential)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert second factor tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.upsertWithExec(ctx, tx, credential); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert second factor tx: %w", err)
	}

	return nil
}

func (r *SecondFactorRepository) upsertWithExec(ctx context.Context, exec pgExecutor, credential domain.SecondFactorCredential) error {
	stmt, args, err := r.builder.Insert("auth.second_factors").
		Columns("identity_id", "secret", "enabled", "created_at", "updated_at").
		Values(credential.IdentityID, credential.Secret, credential.Enabled, credential.CreatedAt, credential.UpdatedAt).
		Suffix("ON CONFLICT (identity_id) DO UPDATE SET secret = EXCLUDED.secret, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert second factor sql: %w", err)
	}

	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert second factor: %w", err)
	}

	deleteStmt, deleteArgs, err := r.builder.Delete("auth.second_factor_backup_codes").
		Where(squirrel.Eq{"identity_id": credential.IdentityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete backup codes sql: %w", err)
	}

	if _, err := exec.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}

	if len(credential.BackupCodeHashes) == 0 {
		return nil
	}

	insert := r.builder.Insert("auth.second_factor_backup_codes").
		Columns("identity_id", "code_hash")
	for _, hash := range credential.BackupCodeHashes {
		insert = insert.Values(credential.IdentityID, hash)
	}

	insertStmt, insertArgs, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert backup codes sql: %w", err)
	}

	if _, err := exec.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("insert backup codes: %w", err)
	}

	return nil
}

// SetEnabled flips the enabled flag for an existing credential.
func (r *SecondFactorRepository) SetEnabled(ctx context.Context, identityID string, enabled bool) error {
	stmt, args, err := r.builder.Update("auth.second_factors").
		Set("enabled", enabled).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"identity_id": identityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set enabled sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set second factor enabled: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ConsumeBackupCode deletes a single backup code hash. Returns
// repository.ErrNotFound when the hash is not among the stored set, so a code
// can never be redeemed twice.
func (r *SecondFactorRepository) ConsumeBackupCode(ctx context.Context, identityID, codeHash string) error {
	stmt, args, err := r.builder.Delete("auth.second_factor_backup_codes").
		Where(squirrel.Eq{"identity_id": identityID}).
		Where(squirrel.Eq{"code_hash": codeHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume backup code sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume backup code: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the credential and its backup codes in one transaction.
func (r *SecondFactorRepository) Delete(ctx context.Context, identityID string) error {
	if r.pool == nil {
		return r.deleteWithExec(ctx, r.exec, identityID)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete second factor tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.deleteWithExec(ctx, tx, identityID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete second factor tx: %w", err)
	}

	return nil
}

func (r *SecondFactorRepository) deleteWithExec(ctx context.Context, exec pgExecutor, identityID string) error {
	codesStmt, codesArgs, err := r.builder.Delete("auth.second_factor_backup_codes").
		Where(squirrel.Eq{"identity_id": identityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete backup codes sql: %w", err)
	}

	if _, err := exec.Exec(ctx, codesStmt, codesArgs...); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}

	stmt, args, err := r.builder.Delete("auth.second_factors").
		Where(squirrel.Eq{"identity_id": identityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete second factor sql: %w", err)
	}

	ct, err := exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete second factor: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.SecondFactorRepository = (*SecondFactorRepository)(nil)
