package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/timeout"
)

// Subscriber reacts to provider-pushed session changes. Revocations clear the
// session; sign-ins and token refreshes trigger a guarded profile fetch. A
// failed background fetch never downgrades an authenticated session — the
// last known profile stays in place.
type Subscriber struct {
	manager  *Manager
	store    domain.ProfileStore
	logger   zerolog.Logger
	deadline time.Duration

	// onDiscard, when set, is called each time a stale refresh is dropped.
	onDiscard func()
}

func NewSubscriber(manager *Manager, store domain.ProfileStore, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		manager:  manager,
		store:    store,
		logger:   logger,
		deadline: timeout.RefreshDeadline,
	}
}

// OnDiscard registers a hook invoked whenever a stale refresh is discarded.
func (s *Subscriber) OnDiscard(fn func()) {
	s.onDiscard = fn
}

// Start registers on the provider's change stream and returns the
// unsubscribe handle. Events are handled synchronously on the delivery
// goroutine, so they apply in order with at most one profile fetch
// outstanding at a time.
func (s *Subscriber) Start(provider Provider) (stop func()) {
	return provider.Subscribe(s.handle)
}

func (s *Subscriber) handle(ch Change) {
	if ch.IdentityID == "" {
		return
	}
	if ch.Revoked {
		s.manager.clear(ch.IdentityID)
		s.logger.Info().Str("identity", ch.IdentityID).Msg("session revoked by provider")
		return
	}

	generation := s.manager.generation(ch.IdentityID)
	profile, err := timeout.Guard(context.Background(), s.deadline, func(ctx context.Context) (*domain.Profile, error) {
		return s.store.GetByIdentity(ctx, ch.IdentityID)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("identity", ch.IdentityID).Msg("profile refresh failed, keeping current session")
		return
	}
	if !s.manager.installIfGeneration(ch.IdentityID, generation, profile) {
		s.logger.Debug().Str("identity", ch.IdentityID).Msg("discarding stale profile refresh")
		if s.onDiscard != nil {
			s.onDiscard()
		}
	}
}
