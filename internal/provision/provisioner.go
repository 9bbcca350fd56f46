// Package provision creates exactly one ledger-bearing profile per newly
// registered identity, absorbing the benign races around the first write.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// maxAttempts is the whole retry budget: the initial attempt plus exactly one
// retry to absorb read-after-write visibility lag. It is not a backoff loop.
const maxAttempts = 2

// Provisioner inserts the initial profile row and reads it back so the caller
// gets the server-normalized row rather than trusting its own write payload.
type Provisioner struct {
	store          domain.ProfileStore
	initialCredits int
	adminEmail     string
	logger         zerolog.Logger
}

func New(store domain.ProfileStore, initialCredits int, adminEmail string, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		store:          store,
		initialCredits: initialCredits,
		adminEmail:     adminEmail,
		logger:         logger,
	}
}

// Provision inserts the profile and reads it back by identity. A duplicate
// insert means a concurrent provisioning path or server-side trigger already
// created the row and is treated as success-so-far; a not-found read means
// the write is not visible yet and consumes one attempt from the budget.
func (p *Provisioner) Provision(ctx context.Context, identityID, email string) (*domain.Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		profile := &domain.Profile{
			ID:      identityID,
			Email:   email,
			Credits: p.initialCredits,
			IsAdmin: p.adminEmail != "" && email == p.adminEmail,
		}
		if err := p.store.Insert(ctx, profile); err != nil && !errors.Is(err, domain.ErrDuplicate) {
			lastErr = err
			p.logger.Warn().Err(err).Str("identity", identityID).Int("attempt", attempt).Msg("profile insert failed")
			continue
		}

		got, err := p.store.GetByIdentity(ctx, identityID)
		if err == nil {
			return got, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn().Str("identity", identityID).Int("attempt", attempt).Msg("provisioned profile not visible yet")
			continue
		}
		p.logger.Warn().Err(err).Str("identity", identityID).Int("attempt", attempt).Msg("profile read-back failed")
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrProvisioningFailed, lastErr)
}
