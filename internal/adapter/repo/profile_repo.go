package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// ProfileRepositoryPG implements domain.ProfileStore backed by PostgreSQL.
type ProfileRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepositoryPG.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepositoryPG {
	return &ProfileRepositoryPG{pool: pool}
}

// Insert creates the profile row. A unique violation on the identity id is
// reported as domain.ErrDuplicate so provisioning can treat it as benign.
func (r *ProfileRepositoryPG) Insert(ctx context.Context, profile *domain.Profile) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO profiles (id, email, credits, is_admin)
VALUES ($1, $2, $3, $4);
`, profile.ID, profile.Email, profile.Credits, profile.IsAdmin)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByIdentity fetches a profile by the provider-issued identity id.
func (r *ProfileRepositoryPG) GetByIdentity(ctx context.Context, identityID string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, credits, is_admin, created_at, updated_at FROM profiles WHERE id = $1`, identityID)
	return scanProfile(row)
}

// UpdateCredits persists the new balance and refreshes updated_at.
func (r *ProfileRepositoryPG) UpdateCredits(ctx context.Context, identityID string, credits int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET credits = $2, updated_at = NOW() WHERE id = $1`, identityID, credits)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendTransaction adds one immutable audit row.
func (r *ProfileRepositoryPG) AppendTransaction(ctx context.Context, tx *domain.CreditTransaction) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO credit_transactions (id, profile_id, amount)
VALUES ($1, $2, $3);
`, tx.ID, tx.ProfileID, tx.Amount)
	return err
}

// ListTransactions returns the newest audit rows for the profile.
func (r *ProfileRepositoryPG) ListTransactions(ctx context.Context, identityID string, limit int) ([]domain.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, profile_id, amount, created_at
FROM credit_transactions
WHERE profile_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, identityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.ProfileID, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.Credits, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
