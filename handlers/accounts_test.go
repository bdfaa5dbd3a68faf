package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/cloudleakage/cloudleakage-api/accounts"
	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

type stubAccountService struct {
	account  accounts.Account
	sync     accounts.SyncResult
	createFn func(accounts.CreateAccountRequest) (*accounts.Account, error)
}

func (s *stubAccountService) List(limit, offset int) ([]accounts.Account, error) {
	return []accounts.Account{}, nil
}

func (s *stubAccountService) Details(id string) (accounts.Account, error) {
	if id != s.account.ID {
		return accounts.Account{}, &errors.NotFoundError{ID: id}
	}
	return s.account, nil
}

func (s *stubAccountService) Create(_ context.Context, req accounts.CreateAccountRequest) (*accounts.Account, error) {
	return s.createFn(req)
}

func (s *stubAccountService) Sync(_ context.Context, id string) (*accounts.SyncResult, error) {
	if id != s.account.ID {
		return nil, &errors.NotFoundError{ID: id}
	}
	return &s.sync, nil
}

func (s *stubAccountService) Delete(id string) (bool, error) {
	return id == s.account.ID, nil
}

func (s *stubAccountService) Disable(id string) (accounts.Account, error) {
	return s.account, nil
}

func (s *stubAccountService) Enable(_ context.Context, id string) (accounts.Account, error) {
	return s.account, nil
}

func (s *stubAccountService) CostData(_ context.Context, id string, period providers.DateRange) (*providers.CostResult, error) {
	return &providers.CostResult{}, nil
}

func TestAccountHandlers(t *testing.T) {
	service := &stubAccountService{
		account: accounts.Account{
			ID:          "acc-1",
			DisplayName: "production",
			Provider:    providers.ProviderAWS,
			AccessType:  providers.AccessTypeAccessKey,
			Status:      accounts.StatusConnected,
		},
		sync: accounts.SyncResult{Success: false, Error: "Credentials expired"},
		createFn: func(req accounts.CreateAccountRequest) (*accounts.Account, error) {
			if req.AccessKeyID == "" {
				return nil, errors.NewValidationError(errors.CodeInvalidAccessKeyID, "Invalid Access Key ID")
			}
			return &accounts.Account{ID: "acc-1", Status: accounts.StatusConnected}, nil
		},
	}

	h := NewAccounts(service)

	router := mux.NewRouter()
	router.Handle("/accounts", h.List()).Methods(http.MethodGet)
	router.Handle("/accounts", h.Create()).Methods(http.MethodPost)
	router.Handle("/accounts/{accountId}", h.Details()).Methods(http.MethodGet)
	router.Handle("/accounts/{accountId}", h.Delete()).Methods(http.MethodDelete)
	router.Handle("/accounts/{accountId}/sync", h.Sync()).Methods(http.MethodPost)
	router.Handle("/accounts/{accountId}/costs", h.Costs()).Methods(http.MethodGet)

	steps := []struct {
		name     string
		method   string
		url      string
		body     string
		expected string
		status   int
	}{
		{
			name:     "list",
			method:   http.MethodGet,
			url:      "/accounts",
			expected: `\{"success":true,"data":\[\]\}\n`,
			status:   http.StatusOK,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			url:      "/accounts",
			body:     `{"displayName":"production","provider":"aws","accessType":"access_key","accessKeyId":"AKIA","secretAccessKey":"secret"}`,
			expected: `\{"success":true,"data":\{.*"id":"acc-1".*\}\}\n`,
			status:   http.StatusCreated,
		},
		{
			name:     "create with rejected credentials",
			method:   http.MethodPost,
			url:      "/accounts",
			body:     `{"displayName":"production","provider":"aws","accessType":"access_key"}`,
			expected: `\{"success":false,"error":"Invalid Access Key ID"\}\n`,
			status:   http.StatusBadRequest,
		},
		{
			name:     "create with invalid body",
			method:   http.MethodPost,
			url:      "/accounts",
			body:     `{not json`,
			expected: `\{"success":false,"error":"invalid body"\}\n`,
			status:   http.StatusBadRequest,
		},
		{
			name:     "details",
			method:   http.MethodGet,
			url:      "/accounts/acc-1",
			expected: `\{"success":true,"data":\{.*"id":"acc-1".*\}\}\n`,
			status:   http.StatusOK,
		},
		{
			name:     "details unknown account",
			method:   http.MethodGet,
			url:      "/accounts/missing",
			expected: `\{"success":false,"error":.*missing.*\}\n`,
			status:   http.StatusNotFound,
		},
		{
			name:     "failed sync is a result, not an error",
			method:   http.MethodPost,
			url:      "/accounts/acc-1/sync",
			expected: `\{"success":false,"error":"Credentials expired"\}\n`,
			status:   http.StatusOK,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			url:      "/accounts/acc-1",
			expected: `\{"success":true,"data":\{"deleted":true\}\}\n`,
			status:   http.StatusOK,
		},
		{
			name:     "repeat delete reports no-op",
			method:   http.MethodDelete,
			url:      "/accounts/gone",
			expected: `\{"success":false,"error":"account not found: gone"\}\n`,
			status:   http.StatusNotFound,
		},
		{
			name:     "costs without period",
			method:   http.MethodGet,
			url:      "/accounts/acc-1/costs",
			expected: `\{"success":false,"error":.*start and end.*\}\n`,
			status:   http.StatusBadRequest,
		},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			var body *strings.Reader
			if step.body != "" {
				body = strings.NewReader(step.body)
			} else {
				body = strings.NewReader("")
			}

			req := httptest.NewRequest(step.method, step.url, body)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != step.status {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, step.status)
			}

			re := regexp.MustCompile(step.expected)
			if match := re.FindString(rr.Body.String()); match == "" || match != rr.Body.String() {
				t.Errorf("handler returned unexpected body: got %q want %v", rr.Body.String(), re)
			}
		})
	}
}
