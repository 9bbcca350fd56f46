// Package ledger applies credit balance changes and keeps the append-only
// audit trail in step with them.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
)

// ErrAuditAppendFailed marks the weak-consistency window where the balance
// write landed but the audit row did not. Callers seeing it must treat the
// balance as changed and may retry the append on its own.
var ErrAuditAppendFailed = errors.New("audit append failed")

// Ledger computes the signed delta between the persisted balance and the new
// one, writes the balance, and appends a transaction row iff the delta is
// non-zero. The two writes are separate, non-transactional store calls; an
// append failure leaves the balance written and surfaces as
// domain.ErrLedgerWriteFailed so the caller can retry the append on its own.
type Ledger struct {
	store  domain.ProfileStore
	logger zerolog.Logger
}

func New(store domain.ProfileStore, logger zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// UpdateCredits sets the profile's balance to newBalance.
func (l *Ledger) UpdateCredits(ctx context.Context, identityID string, newBalance int) error {
	if identityID == "" {
		return domain.ErrUnauthenticated
	}

	current, err := l.store.GetByIdentity(ctx, identityID)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	delta := newBalance - current.Credits

	// Written even for a zero delta so the row's updated_at stays fresh.
	if err := l.store.UpdateCredits(ctx, identityID, newBalance); err != nil {
		return fmt.Errorf("%w: balance update: %v", domain.ErrLedgerWriteFailed, err)
	}

	if delta == 0 {
		return nil
	}
	tx := &domain.CreditTransaction{
		ID:        uuid.NewString(),
		ProfileID: identityID,
		Amount:    delta,
	}
	if err := l.store.AppendTransaction(ctx, tx); err != nil {
		// Balance is already written and stays written; the audit row is
		// missing until the caller retries the append.
		l.logger.Error().Err(err).Str("identity", identityID).Int("delta", delta).Msg("transaction append failed after balance write")
		return fmt.Errorf("%w: %w: %v", domain.ErrLedgerWriteFailed, ErrAuditAppendFailed, err)
	}
	return nil
}
