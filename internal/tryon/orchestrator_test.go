package tryon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/ledger"
)

type fakeSessions struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newFakeSessions(profiles ...domain.Profile) *fakeSessions {
	f := &fakeSessions{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeSessions) Profile(id string) (domain.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	return p, ok
}

func (f *fakeSessions) Replace(id string, p *domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; ok {
		f.profiles[id] = *p
	}
}

type fakeLedger struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeLedger) UpdateCredits(ctx context.Context, id string, newBalance int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, newBalance)
	return nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{} // when set, Generate waits for it (or ctx)
}

func (f *fakeGenerator) Generate(ctx context.Context, source []byte, fragments []string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("generated:" + fmt.Sprint(len(fragments))), nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func garments(n int) []domain.Garment {
	gs := make([]domain.Garment, 0, n)
	for i := 0; i < n; i++ {
		gs = append(gs, domain.Garment{ID: fmt.Sprint(i), PromptFragment: fmt.Sprintf("wearing item %d", i)})
	}
	return gs
}

func TestTryOnDebitsExactlyOneCreditOnSuccess(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 5})
	led := &fakeLedger{}
	gen := &fakeGenerator{}
	o := New(sessions, led, gen, zerolog.Nop())

	look, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(2)})
	require.NoError(t, err)
	require.Equal(t, 4, look.RemainingCredits)
	require.Equal(t, 1, look.CreditsCharged)
	require.Equal(t, []int{4}, led.calls)

	p, _ := sessions.Profile("u1")
	require.Equal(t, 4, p.Credits)
}

func TestTryOnFailureLeavesBalanceUntouched(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 2})
	led := &fakeLedger{}
	gen := &fakeGenerator{err: errors.New("upstream 500")}
	o := New(sessions, led, gen, zerolog.Nop())

	_, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.ErrorIs(t, err, domain.ErrGenerationFailed)
	require.Empty(t, led.calls)

	p, _ := sessions.Profile("u1")
	require.Equal(t, 2, p.Credits)
}

func TestTryOnGateRejectsBeforeAnyNetworkCall(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 0})
	gen := &fakeGenerator{}
	o := New(sessions, &fakeLedger{}, gen, zerolog.Nop())

	_, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	require.Zero(t, gen.callCount())
}

func TestTryOnLastCreditThenGateRejected(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 1})
	gen := &fakeGenerator{}
	o := New(sessions, &fakeLedger{}, gen, zerolog.Nop())

	look, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.NoError(t, err)
	require.Equal(t, 0, look.RemainingCredits)

	_, err = o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	require.Equal(t, 1, gen.callCount())
}

func TestTryOnRequiresSession(t *testing.T) {
	o := New(newFakeSessions(), &fakeLedger{}, &fakeGenerator{}, zerolog.Nop())
	_, err := o.TryOn(context.Background(), "ghost", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTryOnRejectsOversizedSelection(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 5})
	o := New(sessions, &fakeLedger{}, &fakeGenerator{}, zerolog.Nop())

	_, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(domain.MaxSelections + 1)})
	require.ErrorIs(t, err, domain.ErrInvalidSelection)

	_, err = o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img")})
	require.ErrorIs(t, err, domain.ErrInvalidSelection)
}

func TestTryOnSingleInFlightPerIdentity(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 5})
	block := make(chan struct{})
	gen := &fakeGenerator{block: block}
	o := New(sessions, &fakeLedger{}, gen, zerolog.Nop())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
		done <- err
	}()
	<-started
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, time.Second, time.Millisecond)

	_, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.ErrorIs(t, err, domain.ErrTryOnPending)

	close(block)
	require.NoError(t, <-done)
}

func TestTryOnDebitsBalanceAtCompletion(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 5})
	led := &fakeLedger{}
	block := make(chan struct{})
	gen := &fakeGenerator{block: block}
	o := New(sessions, led, gen, zerolog.Nop())

	done := make(chan *Look, 1)
	go func() {
		look, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
		if err != nil {
			t.Error(err)
		}
		done <- look
	}()
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, time.Second, time.Millisecond)

	// A purchase lands while the generation call is still out.
	topped := domain.Profile{ID: "u1", Credits: 15}
	sessions.Replace("u1", &topped)

	close(block)
	look := <-done
	require.Equal(t, 14, look.RemainingCredits)
	require.Equal(t, []int{14}, led.calls)

	p, _ := sessions.Profile("u1")
	require.Equal(t, 14, p.Credits)
}

func TestTryOnMaxWaitTimesOutWithoutDebit(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 3})
	led := &fakeLedger{}
	gen := &fakeGenerator{block: make(chan struct{})}
	o := New(sessions, led, gen, zerolog.Nop())

	_, err := o.TryOn(context.Background(), "u1", Request{
		SourceImage: []byte("img"),
		Garments:    garments(1),
		MaxWait:     20 * time.Millisecond,
	})
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.Empty(t, led.calls)

	p, _ := sessions.Profile("u1")
	require.Equal(t, 3, p.Credits)
}

func TestTryOnDebitFailureReportsUncharged(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 2})
	led := &fakeLedger{err: fmt.Errorf("%w: balance update: down", domain.ErrLedgerWriteFailed)}
	o := New(sessions, led, &fakeGenerator{}, zerolog.Nop())

	look, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.NoError(t, err)
	require.Equal(t, 0, look.CreditsCharged)
	require.Equal(t, 2, look.RemainingCredits)

	p, _ := sessions.Profile("u1")
	require.Equal(t, 2, p.Credits)
}

func TestTryOnAuditLagStillCharges(t *testing.T) {
	sessions := newFakeSessions(domain.Profile{ID: "u1", Credits: 2})
	led := &fakeLedger{err: fmt.Errorf("%w: %w: down", domain.ErrLedgerWriteFailed, ledger.ErrAuditAppendFailed)}
	o := New(sessions, led, &fakeGenerator{}, zerolog.Nop())

	look, err := o.TryOn(context.Background(), "u1", Request{SourceImage: []byte("img"), Garments: garments(1)})
	require.NoError(t, err)
	require.Equal(t, 1, look.CreditsCharged)
	require.Equal(t, 1, look.RemainingCredits)
}
