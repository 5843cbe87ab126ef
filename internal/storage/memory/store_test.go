package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
	"github.com/yndnr/ledgergate-go/internal/storage/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.SessionStore {
		return New()
	})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_SessionExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := New(WithSessionTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	session, token, err := s.Create(ctx, "alice", "acme")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Each check slides the expiry forward.
	clock.Advance(50 * time.Second)
	if _, err := s.Check(ctx, session.Cookie(token)); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	clock.Advance(50 * time.Second)
	if _, err := s.Check(ctx, session.Cookie(token)); err != nil {
		t.Fatalf("Check() after slide error = %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := s.Check(ctx, session.Cookie(token)); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Check() error = %v, want ErrSessionExpired", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, expired session not removed", s.Len())
	}
}

func TestStore_FormExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := New(WithFormTTL(time.Minute), WithSessionTTL(0), WithClock(clock.Now))
	ctx := context.Background()

	session, _, _ := s.Create(ctx, "alice", "acme")
	form, err := s.OpenForm(ctx, session.ID)
	if err != nil {
		t.Fatalf("OpenForm() error = %v", err)
	}

	clock.Advance(2 * time.Minute)
	if ok, _ := s.CloseForm(ctx, session.ID, form); ok {
		t.Error("CloseForm() accepted an expired token")
	}
}

func TestStore_OpenFormUnknownSession(t *testing.T) {
	s := New()
	if _, err := s.OpenForm(context.Background(), "lgss-none"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("OpenForm() error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_ConcurrentClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	session, _, _ := s.Create(ctx, "alice", "acme")
	form, _ := s.OpenForm(ctx, session.ID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	closed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.CloseForm(ctx, session.ID, form); ok {
				mu.Lock()
				closed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if closed != 1 {
		t.Errorf("CloseForm() succeeded %d times, want 1", closed)
	}
}
