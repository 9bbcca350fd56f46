// Package tryon orchestrates one AI try-on: credit gate, the single
// generation call, and the debit that follows success.
package tryon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/ledger"
	"server/internal/timeout"
)

// Request carries one ephemeral try-on. Garments keep their catalog order;
// their prompt fragments are handed to the generator in that order. MaxWait
// is optional — zero leaves the generation call unbounded, matching the
// storefront's trust in the upstream service's own limits.
type Request struct {
	SourceImage []byte
	Garments    []domain.Garment
	MaxWait     time.Duration
}

// Look is the result of a successful try-on. CreditsCharged is 0 when the
// image was produced but the debit could not be recorded, so callers can
// report the charge state without guessing.
type Look struct {
	Image            []byte
	Garments         []domain.Garment
	RemainingCredits int
	CreditsCharged   int
}

// Sessions is the slice of the session manager the orchestrator needs.
type Sessions interface {
	Profile(identityID string) (domain.Profile, bool)
	Replace(identityID string, profile *domain.Profile)
}

// CreditUpdater debits and credits balances. Implemented by internal/ledger.
type CreditUpdater interface {
	UpdateCredits(ctx context.Context, identityID string, newBalance int) error
}

// Generator is the external image-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, sourceImage []byte, promptFragments []string) ([]byte, error)
}

// Orchestrator enforces the credit gate, issues the generation call, and
// debits exactly one credit strictly after success — never before, never on
// failure. One call may be in flight per identity.
type Orchestrator struct {
	sessions  Sessions
	ledger    CreditUpdater
	generator Generator
	logger    zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New(sessions Sessions, ledger CreditUpdater, generator Generator, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		ledger:    ledger,
		generator: generator,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// TryOn runs one generation for the identity's current session.
func (o *Orchestrator) TryOn(ctx context.Context, identityID string, req Request) (*Look, error) {
	profile, ok := o.sessions.Profile(identityID)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if profile.Credits <= 0 {
		return nil, domain.ErrInsufficientCredits
	}
	if len(req.Garments) == 0 || len(req.Garments) > domain.MaxSelections {
		return nil, domain.ErrInvalidSelection
	}

	if !o.acquire(identityID) {
		return nil, domain.ErrTryOnPending
	}
	defer o.release(identityID)

	fragments := make([]string, 0, len(req.Garments))
	for _, g := range req.Garments {
		fragments = append(fragments, g.PromptFragment)
	}

	generate := func(ctx context.Context) ([]byte, error) {
		return o.generator.Generate(ctx, req.SourceImage, fragments)
	}
	var image []byte
	var err error
	if req.MaxWait > 0 {
		image, err = timeout.Guard(ctx, req.MaxWait, generate)
	} else {
		image, err = generate(ctx)
	}
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	// A purchase can land while the generation call is out. Recompute the
	// debit from the session's current balance rather than the gate-time
	// copy so the top-up is not clobbered. If the session vanished mid
	// generation the gate-time copy still settles the charge.
	if current, ok := o.sessions.Profile(identityID); ok {
		profile = current
	}
	updated := profile
	updated.Credits = profile.Credits - 1
	if err := o.ledger.UpdateCredits(ctx, identityID, updated.Credits); err != nil {
		if errors.Is(err, ledger.ErrAuditAppendFailed) {
			// Balance write landed, audit row missing: the credit was
			// consumed, only the trail is lagging.
			o.logger.Error().Err(err).Str("identity", identityID).Msg("debit recorded but audit append failed")
			o.sessions.Replace(identityID, &updated)
			return &Look{Image: image, Garments: req.Garments, RemainingCredits: updated.Credits, CreditsCharged: 1}, nil
		}
		// The user has their image; the debit did not land, so no credit was
		// consumed. Surfacing the image with CreditsCharged=0 keeps the
		// charge state unambiguous.
		o.logger.Error().Err(err).Str("identity", identityID).Msg("generation succeeded but debit failed")
		return &Look{Image: image, Garments: req.Garments, RemainingCredits: profile.Credits}, nil
	}
	o.sessions.Replace(identityID, &updated)

	return &Look{
		Image:            image,
		Garments:         req.Garments,
		RemainingCredits: updated.Credits,
		CreditsCharged:   1,
	}, nil
}

func (o *Orchestrator) acquire(identityID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[identityID]; busy {
		return false
	}
	o.inFlight[identityID] = struct{}{}
	return true
}

func (o *Orchestrator) release(identityID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, identityID)
}
