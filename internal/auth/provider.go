package auth

import (
	"context"
	"time"

	"server/internal/domain"
)

// Identity is the provider-issued principal: an immutable subject id plus the
// attributes the provider vouches for.
type Identity struct {
	ID    string
	Email string
}

// ProviderSession is what the identity provider hands back on a successful
// sign-in or sign-up.
type ProviderSession struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Change is one event on the provider's session stream. Revoked means the
// identity's provider session ended (sign-out, revocation); otherwise the
// identity signed in or its token was refreshed.
type Change struct {
	IdentityID string
	Revoked    bool
}

// Provider is the external identity collaborator. Implementations map
// provider-specific rejections onto the domain error taxonomy
// (domain.ErrInvalidCredentials and friends) before returning.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*ProviderSession, error)

	// SignUp returns (nil, nil) when the provider accepted the request but
	// issued no session — its convention for an already-registered address
	// when email confirmation is disabled.
	SignUp(ctx context.Context, email, password string) (*ProviderSession, error)

	SignOut(ctx context.Context, identityID string) error

	// Subscribe registers fn on the session-change stream and returns the
	// unsubscribe handle. Events are delivered one at a time, in order.
	Subscribe(fn func(Change)) (unsubscribe func())
}

// Provisioner creates the one ledger-bearing profile for a newly registered
// identity. Implemented by internal/provision.
type Provisioner interface {
	Provision(ctx context.Context, identityID, email string) (*domain.Profile, error)
}
