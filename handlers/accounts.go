package handlers

import (
	"context"
	"net/http"

	"github.com/cloudleakage/cloudleakage-api/accounts"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

// AccountService is the part of the account service the HTTP layer needs.
type AccountService interface {
	List(limit, offset int) ([]accounts.Account, error)
	Details(id string) (accounts.Account, error)
	Create(ctx context.Context, req accounts.CreateAccountRequest) (*accounts.Account, error)
	Sync(ctx context.Context, id string) (*accounts.SyncResult, error)
	Delete(id string) (bool, error)
	Disable(id string) (accounts.Account, error)
	Enable(ctx context.Context, id string) (accounts.Account, error)
	CostData(ctx context.Context, id string, period providers.DateRange) (*providers.CostResult, error)
}

// Accounts is a HTTP server for account management.
// It uses an account service to interface with data.
type Accounts struct {
	service AccountService
}

// NewAccounts initiates a new accounts server.
func NewAccounts(service AccountService) *Accounts {
	return &Accounts{service}
}

func (s *Accounts) List() http.Handler {
	return http.HandlerFunc(s.ListFunc)
}

func (s *Accounts) Create() http.Handler {
	return http.HandlerFunc(s.CreateFunc)
}

func (s *Accounts) Details() http.Handler {
	return http.HandlerFunc(s.DetailsFunc)
}

func (s *Accounts) Sync() http.Handler {
	return http.HandlerFunc(s.SyncFunc)
}

func (s *Accounts) Delete() http.Handler {
	return http.HandlerFunc(s.DeleteFunc)
}

func (s *Accounts) Disable() http.Handler {
	return http.HandlerFunc(s.DisableFunc)
}

func (s *Accounts) Enable() http.Handler {
	return http.HandlerFunc(s.EnableFunc)
}

func (s *Accounts) Costs() http.Handler {
	return http.HandlerFunc(s.CostsFunc)
}
