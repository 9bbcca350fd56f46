package domain

import "time"

// Profile is the application-level account record keyed by the identity
// provider's immutable subject id. Exactly one profile exists per identity;
// it is created once by provisioning and its credit balance changes only
// through the ledger.
type Profile struct {
	ID        string
	Email     string
	Credits   int
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreditTransaction is one append-only audit row per non-zero balance change.
// The profile's balance stays authoritative; the trail must sum to the
// balance minus the initial grant.
type CreditTransaction struct {
	ID        string
	ProfileID string
	Amount    int
	CreatedAt time.Time
}
