package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestIdempotencyStoreLocalConcurrentAccess(t *testing.T) {
	const n = 50

	store := NewIdempotencyStoreLocal()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			if err := store.Set(key, time.Minute); err != nil {
				t.Error(err)
			}
			if _, err := store.Get(key); err != nil {
				t.Error(err)
			}
			// Mixed readers on a shared key.
			if _, err := store.Get("shared"); err != nil {
				t.Error(err)
			}
			if err := store.Set("shared", time.Minute); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		exists, err := store.Get(fmt.Sprintf("key-%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if !exists {
			t.Errorf("expected key-%d to be present", i)
		}
	}
}

func TestIdempotencyStoreLocalExpiry(t *testing.T) {
	store := NewIdempotencyStoreLocal()

	if err := store.Set("short-lived", -time.Second); err != nil {
		t.Fatal(err)
	}

	exists, err := store.Get("short-lived")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("expected an expired key to read as absent")
	}
}

func TestUseIdempotency(t *testing.T) {
	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	opts := IdempotencyHandlerOptions{
		IgnorePaths: []string{"/v1/policy"},
		Expiry:      time.Hour,
	}
	h := UseIdempotency(next, opts, NewIdempotencyStoreLocal())

	steps := []struct {
		name     string
		method   string
		path     string
		key      string
		expected int
	}{
		{"GET passes without a key", http.MethodGet, "/v1/accounts", "", http.StatusOK},
		{"POST without a key is rejected", http.MethodPost, "/v1/accounts", "", http.StatusBadRequest},
		{"first use of a key passes", http.MethodPost, "/v1/accounts", "abc123", http.StatusOK},
		{"reused key conflicts", http.MethodPost, "/v1/accounts", "abc123", http.StatusConflict},
		{"ignored path skips the check", http.MethodPost, "/v1/policy/generate", "", http.StatusOK},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			req := httptest.NewRequest(step.method, step.path, nil)
			if step.key != "" {
				req.Header.Set("Idempotency-Key", step.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != step.expected {
				t.Errorf("expected status %d, got %d", step.expected, rec.Code)
			}
		})
	}
}
