// Package storetest holds behaviour tests shared by every SessionStore.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
)

// Run exercises the SessionStore contract against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) service.SessionStore) {
	t.Helper()

	t.Run("create and check", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		session, token, err := store.Create(ctx, "alice", "acme")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !domain.ValidateTokenFormat(token) {
			t.Errorf("token %q has invalid format", token)
		}
		if session.TokenHash == token {
			t.Error("store kept the plaintext token")
		}

		got, err := store.Check(ctx, session.Cookie(token))
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if got.Login != "alice" || got.Company != "acme" {
			t.Errorf("Check() = %+v", got)
		}
	})

	t.Run("create rejects invalid login", func(t *testing.T) {
		store := newStore(t)
		if _, _, err := store.Create(context.Background(), "", "acme"); err == nil {
			t.Error("Create() expected error for empty login")
		}
	})

	t.Run("check rejects bad cookies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		session, token, err := store.Create(ctx, "alice", "acme")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		other, _, _ := domain.GenerateToken()

		tests := []struct {
			name   string
			cookie domain.SessionCookie
			want   error
		}{
			{"unknown session", domain.SessionCookie{SessionID: "lgss-missing", Token: token, Company: "acme"}, domain.ErrSessionNotFound},
			{"wrong token", domain.SessionCookie{SessionID: session.ID, Token: other, Company: "acme"}, domain.ErrSessionInvalid},
			{"wrong company", domain.SessionCookie{SessionID: session.ID, Token: token, Company: "other"}, domain.ErrSessionInvalid},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := store.Check(ctx, tt.cookie)
				if !errors.Is(err, tt.want) {
					t.Errorf("Check() error = %v, want %v", err, tt.want)
				}
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		session, token, _ := store.Create(ctx, "alice", "acme")

		if err := store.Delete(ctx, session.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.Check(ctx, session.Cookie(token)); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("Check() after Delete error = %v, want ErrSessionNotFound", err)
		}
		if err := store.Delete(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("second Delete() error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("form lifecycle", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		session, _, _ := store.Create(ctx, "alice", "acme")

		form, err := store.OpenForm(ctx, session.ID)
		if err != nil {
			t.Fatalf("OpenForm() error = %v", err)
		}
		if form.IsZero() {
			t.Fatal("OpenForm() returned empty token")
		}

		for i := 0; i < 2; i++ {
			if ok, err := store.CheckForm(ctx, session.ID, form); err != nil || !ok {
				t.Fatalf("CheckForm() #%d = %v, %v; want true", i, ok, err)
			}
		}
		if ok, err := store.CloseForm(ctx, session.ID, form); err != nil || !ok {
			t.Fatalf("CloseForm() = %v, %v; want true", ok, err)
		}
		if ok, _ := store.CloseForm(ctx, session.ID, form); ok {
			t.Error("second CloseForm() = true, want false")
		}
		if ok, _ := store.CheckForm(ctx, session.ID, form); ok {
			t.Error("CheckForm() after close = true, want false")
		}
	})

	t.Run("form bound to session", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		a, _, _ := store.Create(ctx, "alice", "acme")
		b, _, _ := store.Create(ctx, "bob", "acme")

		form, err := store.OpenForm(ctx, a.ID)
		if err != nil {
			t.Fatalf("OpenForm() error = %v", err)
		}
		if ok, _ := store.CheckForm(ctx, b.ID, form); ok {
			t.Error("CheckForm() accepted another session's token")
		}
		if ok, _ := store.CloseForm(ctx, b.ID, form); ok {
			t.Error("CloseForm() accepted another session's token")
		}
		if ok, _ := store.CheckForm(ctx, a.ID, "lgfm-unknown"); ok {
			t.Error("CheckForm() accepted an unknown token")
		}
	})

	t.Run("delete drops forms", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		session, _, _ := store.Create(ctx, "alice", "acme")
		form, _ := store.OpenForm(ctx, session.ID)

		_ = store.Delete(ctx, session.ID)
		if ok, _ := store.CheckForm(ctx, session.ID, form); ok {
			t.Error("form token survived session delete")
		}
	})

	t.Run("delete wins over concurrent check", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 20; i++ {
			session, token, err := store.Create(ctx, "alice", "acme")
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			var wg sync.WaitGroup
			for j := 0; j < 4; j++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Check(ctx, session.Cookie(token))
					if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
						t.Errorf("Check() error = %v", err)
					}
				}()
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.Delete(ctx, session.ID); err != nil {
					t.Errorf("Delete() error = %v", err)
				}
			}()
			wg.Wait()

			if _, err := store.Check(ctx, session.Cookie(token)); !errors.Is(err, domain.ErrSessionNotFound) {
				t.Fatalf("Check() after concurrent Delete error = %v, want ErrSessionNotFound", err)
			}
		}
	})

	t.Run("open form during concurrent checks", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		session, token, _ := store.Create(ctx, "alice", "acme")

		var wg sync.WaitGroup
		forms := make(chan domain.FormToken, 20)
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if _, err := store.Check(ctx, session.Cookie(token)); err != nil {
					t.Errorf("Check() error = %v", err)
				}
			}()
			go func() {
				defer wg.Done()
				form, err := store.OpenForm(ctx, session.ID)
				if err != nil {
					t.Errorf("OpenForm() error = %v", err)
					return
				}
				forms <- form
			}()
		}
		wg.Wait()
		close(forms)

		for form := range forms {
			if ok, err := store.CheckForm(ctx, session.ID, form); err != nil || !ok {
				t.Errorf("CheckForm(%s) = %v, %v; want true", form, ok, err)
			}
		}
	})

	t.Run("concurrent close consumes once", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		session, _, _ := store.Create(ctx, "alice", "acme")
		form, err := store.OpenForm(ctx, session.ID)
		if err != nil {
			t.Fatalf("OpenForm() error = %v", err)
		}

		var wg sync.WaitGroup
		var closed atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.CloseForm(ctx, session.ID, form)
				if err != nil {
					t.Errorf("CloseForm() error = %v", err)
				}
				if ok {
					closed.Add(1)
				}
			}()
		}
		wg.Wait()

		if n := closed.Load(); n != 1 {
			t.Errorf("CloseForm() succeeded %d times, want 1", n)
		}
	})
}
