package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cloudleakage/cloudleakage-api/accounts"
	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

// ListFunc returns all accounts, credentials redacted.
func (s *Accounts) ListFunc(rw http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.FormValue("limit"))
	if err != nil {
		limit = 0
	}

	offset, err := strconv.Atoi(r.FormValue("offset"))
	if err != nil {
		offset = 0
	}

	res, err := s.service.List(limit, offset)
	if err != nil {
		handleError(rw, err)
		return
	}

	handleJsonResponse(rw, http.StatusOK, res)
}

// CreateFunc registers a new account. The submitted credentials are
// validated against the provider before anything is stored.
func (s *Accounts) CreateFunc(rw http.ResponseWriter, r *http.Request) {
	var req accounts.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(rw, &errors.RequestError{
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("invalid body"),
		})
		return
	}

	res, err := s.service.Create(r.Context(), req)
	if err != nil {
		handleError(rw, err)
		return
	}

	handleJsonResponse(rw, http.StatusCreated, res)
}

// DetailsFunc returns details regarding an account.
// It reads the id for the wanted account from URL.
func (s *Accounts) DetailsFunc(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	res, err := s.service.Details(vars["accountId"])
	if err != nil {
		handleError(rw, err)
		return
	}

	handleJsonResponse(rw, http.StatusOK, res)
}

// SyncFunc re-validates an account's credentials on demand.
func (s *Accounts) SyncFunc(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	res, err := s.service.Sync(r.Context(), vars["accountId"])
	if err != nil {
		handleError(rw, err)
		return
	}

	// A failed sync is a valid outcome, the envelope carries the reason.
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(envelope{Success: res.Success, Data: res.Data, Error: res.Error})
}

// DeleteFunc removes an account. A repeat delete is not a failure, the
// envelope just reports that there was nothing left to remove.
func (s *Accounts) DeleteFunc(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	deleted, err := s.service.Delete(vars["accountId"])
	if err != nil {
		handleError(rw, err)
		return
	}

	if !deleted {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusNotFound)
		json.NewEncoder(rw).Encode(envelope{Error: fmt.Sprintf("account not found: %s", vars["accountId"])})
		return
	}

	handleJsonResponse(rw, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Accounts) DisableFunc(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	res, err := s.service.Disable(vars["accountId"])
	if err != nil {
		handleError(rw, err)
		return
	}

	handleJsonResponse(rw, http.StatusOK, res)
}

func (s *Accounts) EnableFunc(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	res, err := s.service.Enable(r.Context(), vars["accountId"])
	if err != nil {
		handleError(rw, err)
		return
	}

	handleJsonResponse(rw, http.StatusOK, res)
}

// CostsFunc runs an on-demand cost query. It reads the period from the
// start and end query parameters, dates formatted as 2006-01-02.
func (s *Accounts) CostsFunc(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	period := providers.DateRange{
		Start: r.FormValue("start"),
		End:   r.FormValue("end"),
	}
	if period.Start == "" || period.End == "" {
		handleError(rw, errors.NewValidationError(errors.CodeMissingField,
			"start and end query parameters are required"))
		return
	}

	res, err := s.service.CostData(r.Context(), vars["accountId"], period)
	if err != nil {
		handleError(rw, err)
		return
	}

	handleJsonResponse(rw, http.StatusOK, res)
}
