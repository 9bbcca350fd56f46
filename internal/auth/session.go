// Package auth drives sign-in and sign-up against the identity provider and
// keeps the locally trusted session view consistent with provider events.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/timeout"
)

type session struct {
	profile    domain.Profile
	generation uint64
}

// Manager owns the process-local session table: one entry per authenticated
// identity, each holding the last trusted Profile value. Mutations always
// replace the whole Profile, never patch a field.
type Manager struct {
	provider    Provider
	store       domain.ProfileStore
	provisioner Provisioner
	logger      zerolog.Logger

	authDeadline    time.Duration
	refreshDeadline time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	// generations outlive their session entry so a refresh issued before a
	// sign-out can be recognized as stale afterwards.
	generations map[string]uint64
}

// NewManager wires the session manager with its collaborators.
func NewManager(provider Provider, store domain.ProfileStore, provisioner Provisioner, logger zerolog.Logger) *Manager {
	return &Manager{
		provider:        provider,
		store:           store,
		provisioner:     provisioner,
		logger:          logger,
		authDeadline:    timeout.AuthDeadline,
		refreshDeadline: timeout.RefreshDeadline,
		sessions:        make(map[string]*session),
		generations:     make(map[string]uint64),
	}
}

// SignIn authenticates against the provider and loads the existing profile.
// A missing profile row is terminal: sign-in never provisions, so an
// out-of-band identity cannot silently acquire a credit grant.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Profile, error) {
	sess, err := timeout.Guard(ctx, m.authDeadline, func(ctx context.Context) (*ProviderSession, error) {
		return m.provider.SignIn(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}

	profile, err := timeout.Guard(ctx, m.refreshDeadline, func(ctx context.Context) (*domain.Profile, error) {
		return m.store.GetByIdentity(ctx, sess.Identity.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.logger.Error().Str("identity", sess.Identity.ID).Msg("sign-in succeeded but no profile row exists")
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	m.put(profile)
	cp := *profile
	return &cp, nil
}

// SignUp registers with the provider and provisions the profile. A provider
// success without a session is the "already registered" convention and is
// surfaced as the distinct, recoverable domain.ErrAlreadyRegistered.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*domain.Profile, error) {
	sess, err := timeout.Guard(ctx, m.authDeadline, func(ctx context.Context) (*ProviderSession, error) {
		return m.provider.SignUp(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domain.ErrAlreadyRegistered
	}

	profile, err := m.provisioner.Provision(ctx, sess.Identity.ID, sess.Identity.Email)
	if err != nil {
		return nil, err
	}

	m.put(profile)
	cp := *profile
	return &cp, nil
}

// SignOut clears the local session first — it wins unconditionally over any
// in-flight refresh — and then tells the provider. A provider failure is
// logged, not surfaced: the local session is already gone.
func (m *Manager) SignOut(ctx context.Context, identityID string) error {
	if identityID == "" {
		return domain.ErrUnauthenticated
	}
	m.clear(identityID)
	if err := m.provider.SignOut(ctx, identityID); err != nil {
		m.logger.Warn().Err(err).Str("identity", identityID).Msg("provider sign-out failed")
	}
	return nil
}

// Profile returns a copy of the identity's session profile, if present.
func (m *Manager) Profile(identityID string) (domain.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[identityID]
	if !ok {
		return domain.Profile{}, false
	}
	return s.profile, true
}

// Replace swaps the identity's session profile with a new value. It is a
// no-op when the session is gone: a replacement must never resurrect a
// signed-out session.
func (m *Manager) Replace(identityID string, profile *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[identityID]; ok {
		s.profile = *profile
	}
}

// put installs a fresh session for the profile's identity, starting a new
// generation so results issued against an older session epoch are discarded.
func (m *Manager) put(profile *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[profile.ID]++
	m.sessions[profile.ID] = &session{profile: *profile, generation: m.generations[profile.ID]}
}

func (m *Manager) clear(identityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[identityID]++
	delete(m.sessions, identityID)
}

// generation returns the identity's current session epoch.
func (m *Manager) generation(identityID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[identityID]
}

// installIfGeneration applies a refreshed profile only when the session epoch
// still matches the one the refresh was issued for. Unlike Replace it may
// create the session entry: a provider-pushed sign-in resolves to a known
// identity without a local SignIn call.
func (m *Manager) installIfGeneration(identityID string, generation uint64, profile *domain.Profile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[identityID] != generation {
		return false
	}
	if s, ok := m.sessions[identityID]; ok {
		s.profile = *profile
		return true
	}
	m.sessions[identityID] = &session{profile: *profile, generation: generation}
	return true
}
