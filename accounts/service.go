package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/cloudleakage/cloudleakage-api/configs"
	"github.com/cloudleakage/cloudleakage-api/datastore"
	"github.com/cloudleakage/cloudleakage-api/encryption"
	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/jobs"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

// costWindowDays bounds the cost query performed during a sync.
const costWindowDays = 30

// Service defines the API for account HTTP handlers and the scheduled
// syncer. All credential handling happens here: plaintext secrets exist
// only inside a single call.
type Service struct {
	store    Store
	crypter  encryption.Crypter
	registry *providers.Registry
	wp       *jobs.WorkerPool
	cfg      *configs.Config
}

func NewService(
	cfg *configs.Config,
	store Store,
	crypter encryption.Crypter,
	registry *providers.Registry,
	wp *jobs.WorkerPool,
) *Service {
	return &Service{store, crypter, registry, wp, cfg}
}

// CreateAccountRequest carries the registration payload. The secret
// fields are write-only; they never appear in a response.
type CreateAccountRequest struct {
	DisplayName     string               `json:"displayName"`
	Provider        providers.Provider   `json:"provider"`
	AccessType      providers.AccessType `json:"accessType"`
	AccessKeyID     string               `json:"accessKeyId,omitempty"`
	SecretAccessKey string               `json:"secretAccessKey,omitempty"`
	Region          string               `json:"region,omitempty"`
	RoleArn         string               `json:"roleArn,omitempty"`
}

// SyncData is the payload of a successful sync.
type SyncData struct {
	SyncTime       time.Time `json:"syncTime"`
	CostsRetrieved bool      `json:"costsRetrieved"`
}

// SyncResult reports a sync outcome. A sync that fails because the
// account's credentials no longer work is a result, not an error; the
// account is moved to the error status and the cause is carried in Error.
type SyncResult struct {
	Success bool      `json:"success"`
	Data    *SyncData `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// List returns accounts in insertion order, credentials redacted.
func (s *Service) List(limit, offset int) ([]Account, error) {
	o := datastore.ParseListOptions(limit, offset)
	return s.store.Accounts(o)
}

// Details returns a specific account.
func (s *Service) Details(id string) (Account, error) {
	return s.store.Account(id)
}

// Create validates the submitted credentials against the provider and,
// only if they check out, encrypts and stores them. Nothing is persisted
// for a failed validation.
func (s *Service) Create(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	creds, err := s.buildCredentials(req)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.Adapter(req.Provider, req.AccessType)
	if err != nil {
		return nil, errors.NewValidationError(errors.CodeUnsupported,
			"unsupported provider %q with access type %q", req.Provider, req.AccessType)
	}

	a := &Account{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		Provider:    req.Provider,
		AccessType:  req.AccessType,
		Status:      StatusPending,
	}

	res := adapter.Validate(ctx, creds)
	if !res.Valid {
		return nil, res.Err
	}

	info, err := json.Marshal(res.AccountInfo)
	if err != nil {
		return nil, err
	}
	// LastSyncAt stays null until the first successful sync.
	a.AccountInfo = datatypes.JSON(info)
	a.Status = StatusConnected

	switch c := creds.(type) {
	case providers.AccessKey:
		plain, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		a.EncryptedCredentials, err = s.crypter.Encrypt(plain)
		if err != nil {
			return nil, err
		}
	case providers.AssumedRole:
		a.RoleArn = c.RoleArn
	}

	if err := s.store.InsertAccount(a); err != nil {
		return nil, err
	}

	log.
		WithFields(log.Fields{"accountID": a.ID, "provider": a.Provider, "accessType": a.AccessType}).
		Info("Account connected")

	return a, nil
}

// Sync re-validates an account's credentials and refreshes its cached
// metadata and cost access. Credential failures are reported in the
// result and flip the account to the error status; only infrastructure
// problems surface as errors.
func (s *Service) Sync(ctx context.Context, id string) (*SyncResult, error) {
	a, err := s.store.Account(id)
	if err != nil {
		return nil, err
	}

	if a.Status == StatusDisabled {
		return nil, &errors.RequestError{
			StatusCode: http.StatusConflict,
			Err:        fmt.Errorf("account %q is disabled", id),
		}
	}

	creds, err := s.credentials(&a)
	if err != nil {
		if _, ok := err.(*errors.IntegrityError); ok {
			log.WithFields(log.Fields{"accountID": a.ID, "error": err}).
				Error("Stored credentials failed integrity check")
			return s.failSync(&a, "credential integrity check failed, please reconnect the account")
		}
		return nil, err
	}

	adapter, err := s.registry.Adapter(a.Provider, a.AccessType)
	if err != nil {
		return nil, err
	}

	res := adapter.Validate(ctx, creds)
	if !res.Valid {
		if _, ok := res.Err.(*errors.ProviderTransientError); ok {
			return nil, res.Err
		}
		return s.failSync(&a, res.Err.Error())
	}

	costsRetrieved := false
	if a.AccessType == providers.AccessTypeAccessKey && res.AccountInfo.CostAccess {
		if _, err := adapter.FetchCost(ctx, creds, lastDays(costWindowDays)); err != nil {
			if _, ok := err.(*errors.ProviderTransientError); ok {
				return nil, err
			}
			return s.failSync(&a, err.Error())
		}
		costsRetrieved = true
	}

	info, err := json.Marshal(res.AccountInfo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := StatusConnected
	infoJSON := datatypes.JSON(info)
	// Conditional on the status observed before the provider calls, so a
	// disable that landed while the sync was in flight is not overwritten.
	if _, err := s.store.UpdateAccount(a.ID, Patch{
		FromStatus:  &a.Status,
		Status:      &status,
		AccountInfo: &infoJSON,
		LastSyncAt:  &now,
	}); err != nil {
		return nil, err
	}

	return &SyncResult{
		Success: true,
		Data:    &SyncData{SyncTime: now, CostsRetrieved: costsRetrieved},
	}, nil
}

// SyncAll enqueues a sync job for every account that is not disabled.
// Used by the scheduled syncer. Pages through the store so no account
// past the first page is left out of the sweep.
func (s *Service) SyncAll(ctx context.Context) {
	o := datastore.ListOptions{Limit: datastore.DefaultLimit}

	for {
		aa, err := s.store.Accounts(o)
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Could not list accounts for sync")
			return
		}

		for _, a := range aa {
			if a.Status == StatusDisabled {
				continue
			}
			id := a.ID
			_, err := s.wp.AddJob(jobs.TypeSync, id, func() (string, error) {
				res, err := s.Sync(ctx, id)
				if err != nil {
					return "", err
				}
				out, err := json.Marshal(res)
				return string(out), err
			})
			if err != nil {
				log.WithFields(log.Fields{"accountID": id, "error": err}).
					Warn("Could not enqueue sync job")
			}
		}

		if len(aa) < o.Limit {
			return
		}
		o.Offset += o.Limit
	}
}

// CostData runs an on-demand cost query over the given period.
func (s *Service) CostData(ctx context.Context, id string, period providers.DateRange) (*providers.CostResult, error) {
	a, err := s.store.Account(id)
	if err != nil {
		return nil, err
	}

	if a.Status == StatusDisabled {
		return nil, &errors.RequestError{
			StatusCode: http.StatusConflict,
			Err:        fmt.Errorf("account %q is disabled", id),
		}
	}

	creds, err := s.credentials(&a)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.Adapter(a.Provider, a.AccessType)
	if err != nil {
		return nil, err
	}

	return adapter.FetchCost(ctx, creds, period)
}

// Delete removes an account and its credential material. It reports
// whether anything was deleted, so callers can distinguish the repeat
// case without treating it as a failure.
func (s *Service) Delete(id string) (bool, error) {
	deleted, err := s.store.DeleteAccount(id)
	if err != nil {
		return false, err
	}
	if deleted {
		log.WithFields(log.Fields{"accountID": id}).Info("Account deleted")
	}
	return deleted, nil
}

// Disable takes an account out of rotation. Disabled accounts are
// skipped by scheduled syncs and refuse on-demand operations.
func (s *Service) Disable(id string) (Account, error) {
	a, err := s.store.Account(id)
	if err != nil {
		return Account{}, err
	}

	if a.Status == StatusDisabled {
		return a, nil
	}

	if !a.Status.CanTransition(StatusDisabled) {
		return Account{}, &errors.RequestError{
			StatusCode: http.StatusConflict,
			Err:        fmt.Errorf("account %q cannot be disabled from status %q", id, a.Status),
		}
	}

	status := StatusDisabled
	return s.store.UpdateAccount(id, Patch{FromStatus: &a.Status, Status: &status})
}

// Enable re-validates a disabled account's stored credentials and, if
// they still work, returns it to the connected status. A failed
// validation leaves the account disabled.
func (s *Service) Enable(ctx context.Context, id string) (Account, error) {
	a, err := s.store.Account(id)
	if err != nil {
		return Account{}, err
	}

	if a.Status != StatusDisabled {
		return Account{}, &errors.RequestError{
			StatusCode: http.StatusConflict,
			Err:        fmt.Errorf("account %q is not disabled", id),
		}
	}

	creds, err := s.credentials(&a)
	if err != nil {
		return Account{}, err
	}

	adapter, err := s.registry.Adapter(a.Provider, a.AccessType)
	if err != nil {
		return Account{}, err
	}

	res := adapter.Validate(ctx, creds)
	if !res.Valid {
		return Account{}, res.Err
	}

	info, err := json.Marshal(res.AccountInfo)
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	status := StatusConnected
	infoJSON := datatypes.JSON(info)
	from := StatusDisabled
	return s.store.UpdateAccount(id, Patch{
		FromStatus:  &from,
		Status:      &status,
		AccountInfo: &infoJSON,
		LastSyncAt:  &now,
	})
}

// failSync records a failed sync by flipping the account to the error
// status. The failure is an outcome, not an error return. The patch is
// conditional on the status the sync started from, so it cannot clobber
// a concurrent disable.
func (s *Service) failSync(a *Account, reason string) (*SyncResult, error) {
	status := StatusError
	if _, err := s.store.UpdateAccount(a.ID, Patch{FromStatus: &a.Status, Status: &status}); err != nil {
		return nil, err
	}
	return &SyncResult{Success: false, Error: reason}, nil
}

// credentials reconstructs the provider credentials for a stored account.
func (s *Service) credentials(a *Account) (providers.Credentials, error) {
	switch a.AccessType {
	case providers.AccessTypeAccessKey:
		plain, err := s.crypter.Decrypt(a.EncryptedCredentials)
		if err != nil {
			return nil, err
		}
		var key providers.AccessKey
		if err := json.Unmarshal(plain, &key); err != nil {
			return nil, &errors.IntegrityError{Err: err}
		}
		if key.Region == "" {
			key.Region = s.cfg.DefaultRegion
		}
		return key, nil
	case providers.AccessTypeAssumedRole:
		return providers.AssumedRole{RoleArn: a.RoleArn}, nil
	}
	return nil, errors.NewValidationError(errors.CodeUnsupported,
		"unsupported access type %q", a.AccessType)
}

// buildCredentials checks the request shape and assembles the credential
// variant for the requested access type.
func (s *Service) buildCredentials(req CreateAccountRequest) (providers.Credentials, error) {
	if req.DisplayName == "" {
		return nil, errors.NewValidationError(errors.CodeMissingField, "displayName is required")
	}
	if req.Provider == "" {
		return nil, errors.NewValidationError(errors.CodeMissingField, "provider is required")
	}

	switch req.AccessType {
	case providers.AccessTypeAccessKey:
		if req.AccessKeyID == "" {
			return nil, errors.NewValidationError(errors.CodeMissingField, "accessKeyId is required")
		}
		if req.SecretAccessKey == "" {
			return nil, errors.NewValidationError(errors.CodeMissingField, "secretAccessKey is required")
		}
		region := req.Region
		if region == "" {
			region = s.cfg.DefaultRegion
		}
		return providers.AccessKey{
			AccessKeyID:     req.AccessKeyID,
			SecretAccessKey: req.SecretAccessKey,
			Region:          region,
		}, nil
	case providers.AccessTypeAssumedRole:
		if req.RoleArn == "" {
			return nil, errors.NewValidationError(errors.CodeMissingField, "roleArn is required")
		}
		return providers.AssumedRole{RoleArn: req.RoleArn}, nil
	}

	return nil, errors.NewValidationError(errors.CodeUnsupported,
		"unsupported access type %q", req.AccessType)
}

// lastDays builds the provider date range covering the previous n days,
// end date exclusive.
func lastDays(n int) providers.DateRange {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -n)
	return providers.DateRange{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
	}
}
