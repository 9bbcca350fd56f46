package domain

import "context"

// ProfileStore persists profiles and their credit audit trail.
//
// Insert returns ErrDuplicate when a row for the identity already exists.
// GetByIdentity returns ErrNotFound when no row is visible yet. UpdateCredits
// and AppendTransaction are two independent operations; callers own the
// ordering between them.
type ProfileStore interface {
	Insert(ctx context.Context, profile *Profile) error
	GetByIdentity(ctx context.Context, identityID string) (*Profile, error)
	UpdateCredits(ctx context.Context, identityID string, credits int) error
	AppendTransaction(ctx context.Context, tx *CreditTransaction) error
	ListTransactions(ctx context.Context, identityID string, limit int) ([]CreditTransaction, error)
}

// GarmentStore persists the catalog.
type GarmentStore interface {
	List(ctx context.Context) ([]Garment, error)
	GetByIDs(ctx context.Context, ids []string) ([]Garment, error)
	Insert(ctx context.Context, garment *Garment) (*Garment, error)
}
