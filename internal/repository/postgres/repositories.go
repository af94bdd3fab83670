package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Identities    *IdentityRepository
	OneTimeTokens *OneTimeTokenRepository
	SecondFactors *SecondFactorRepository
	LoginHistory  *LoginHistoryRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Identities:    NewIdentityRepository(pool),
		OneTimeTokens: NewOneTimeTokenRepository(pool),
		SecondFactors: NewSecondFactorRepository(pool),
		LoginHistory:  NewLoginHistoryRepository(pool),
	}
}
