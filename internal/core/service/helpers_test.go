package service_test

import (
	"context"
	"testing"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/locale"
	"github.com/yndnr/ledgergate-go/internal/storage/pgdb/pgdbtest"
)

func newCatalog(t *testing.T) *locale.Catalog {
	t.Helper()
	c, err := locale.NewCatalog("en", "en", "de", "es")
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

// newRequest returns a network-mode request owning a fake handle.
func newRequest(t *testing.T, mode domain.RunMode) (*request.Request, *pgdbtest.Handle) {
	t.Helper()
	h := pgdbtest.NewHandle()
	req := &request.Request{
		RunMode: mode,
		Script:  "test.pl",
		Params:  request.Params{},
		Env:     map[string]string{},
		Schema:  "public",
		Locale:  newCatalog(t).Default(),
	}
	req.SetHandle(h, true)
	return req, h
}

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (s failingStore) Create(context.Context, string, string) (*domain.Session, string, error) {
	return nil, "", s.err
}

func (s failingStore) Check(context.Context, domain.SessionCookie) (*domain.Session, error) {
	return nil, s.err
}

func (s failingStore) Delete(context.Context, string) error {
	return s.err
}

func (s failingStore) OpenForm(context.Context, string) (domain.FormToken, error) {
	return "", s.err
}

func (s failingStore) CheckForm(context.Context, string, domain.FormToken) (bool, error) {
	return false, s.err
}

func (s failingStore) CloseForm(context.Context, string, domain.FormToken) (bool, error) {
	return false, s.err
}
