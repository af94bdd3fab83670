package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
)

// LoginHistoryRepository appends sign-in audit rows. The table is append-only.
type LoginHistoryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLoginHistoryRepository constructs a new login history repository.
func NewLoginHistoryRepository(pool *pgxpool.Pool) *LoginHistoryRepository {
	return &LoginHistoryRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts a single audit row.
func (r *LoginHistoryRepository) Append(ctx context.Context, entry domain.LoginHistoryEntry) error {
	var identityValue any
	if entry.IdentityID != nil && *entry.IdentityID != "" {
		identityValue = *entry.IdentityID
	}

	var ipValue any
	if entry.IP != nil && *entry.IP != "" {
		ipValue = *entry.IP
	}

	var userAgentValue any
	if entry.UserAgent != nil && *entry.UserAgent != "" {
		userAgentValue = *entry.UserAgent
	}

	var reasonValue any
	if entry.FailureReason != nil && *entry.FailureReason != "" {
		reasonValue = *entry.FailureReason
	}

	stmt, args, err := r.builder.Insert("auth.login_history").
		Columns("id", "identity_id", "method", "succeeded", "failure_reason", "ip", "user_agent", "created_at").
		Values(entry.ID, identityValue, entry.Method, entry.Succeeded, reasonValue, ipValue, userAgentValue, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert login history: %w", err)
	}

	return nil
}

var _ port.LoginHistoryRepository = (*LoginHistoryRepository)(nil)
