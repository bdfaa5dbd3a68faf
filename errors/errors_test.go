package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	t.Run("classified errors map to their status", func(t *testing.T) {
		cases := []struct {
			err  error
			want int
		}{
			{&RequestError{StatusCode: http.StatusConflict, Err: fmt.Errorf("conflict")}, http.StatusConflict},
			{&NotFoundError{ID: "missing-id"}, http.StatusNotFound},
			{NewValidationError(CodeInvalidSecretKey, "Invalid Secret Access Key"), http.StatusBadRequest},
			{&ProviderTransientError{Err: fmt.Errorf("connection refused")}, http.StatusBadGateway},
			{&IntegrityError{Err: fmt.Errorf("message authentication failed")}, http.StatusConflict},
		}

		for _, c := range cases {
			if got := StatusCode(c.err); got != c.want {
				t.Errorf("StatusCode(%T) = %d, want %d", c.err, got, c.want)
			}
		}
	})

	t.Run("wrapped errors are still recognized", func(t *testing.T) {
		err := fmt.Errorf("sync failed: %w", &NotFoundError{ID: "abc"})
		if got := StatusCode(err); got != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want %d", got, http.StatusNotFound)
		}
	})

	t.Run("unclassified errors map to 500", func(t *testing.T) {
		if got := StatusCode(fmt.Errorf("boom")); got != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d, want %d", got, http.StatusInternalServerError)
		}
	})
}

func TestValidationErrorCodes(t *testing.T) {
	err := NewValidationError(CodeInvalidAccessKeyID, "Invalid Access Key ID")

	if err.Code != CodeInvalidAccessKeyID {
		t.Errorf("unexpected code: %s", err.Code)
	}

	if err.Error() != "Invalid Access Key ID" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
