package accounts

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/cloudleakage/cloudleakage-api/datastore"
	"github.com/cloudleakage/cloudleakage-api/datastore/lib"
	"github.com/cloudleakage/cloudleakage-api/errors"
)

// GormStore is the database implementation for the account store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db}
}

// Accounts lists accounts in insertion order; rows sharing a creation
// timestamp are tie-broken on id so the order is stable.
func (s *GormStore) Accounts(o datastore.ListOptions) (aa []Account, err error) {
	err = s.db.
		Order("created_at asc").Order("id asc").
		Limit(o.Limit).Offset(o.Offset).
		Find(&aa).Error
	if err != nil {
		err = &errors.StorageError{Err: err}
	}
	return
}

func (s *GormStore) Account(id string) (a Account, err error) {
	err = s.db.First(&a, "id = ?", id).Error
	err = storeError(id, err)
	return
}

func (s *GormStore) InsertAccount(a *Account) error {
	if err := s.db.Create(a).Error; err != nil {
		if isDuplicateKey(err) {
			return &errors.RequestError{
				StatusCode: http.StatusConflict,
				Err:        fmt.Errorf("account %q already exists", a.ID),
			}
		}
		return &errors.StorageError{Err: err}
	}
	return nil
}

func (s *GormStore) UpdateAccount(id string, p Patch) (a Account, err error) {
	err = lib.GormTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if err := checkStatusPatch(a.Status, p); err != nil {
			return err
		}
		if p.Status != nil {
			a.Status = *p.Status
		}
		if p.AccountInfo != nil {
			a.AccountInfo = *p.AccountInfo
		}
		if p.LastSyncAt != nil {
			a.LastSyncAt = p.LastSyncAt
		}
		return tx.Save(&a).Error
	})
	err = storeError(id, err)
	return
}

// DeleteAccount zeroes the credential material before soft deleting the
// row, so the ciphertext does not outlive the account. The soft delete
// keeps the primary key reserved.
func (s *GormStore) DeleteAccount(id string) (deleted bool, err error) {
	err = lib.GormTransaction(s.db, func(tx *gorm.DB) error {
		var a Account
		if err := tx.First(&a, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		err := tx.Model(&a).Updates(map[string]interface{}{
			"encrypted_credentials": nil,
			"account_info":          nil,
		}).Error
		if err != nil {
			return err
		}

		deleted = true
		return tx.Delete(&a).Error
	})
	if err != nil {
		return false, &errors.StorageError{Err: err}
	}
	return
}

// checkStatusPatch enforces the lifecycle rules at the point the row is
// actually written. The FromStatus guard catches callers whose view of
// the account went stale during a slow provider call.
func checkStatusPatch(current Status, p Patch) error {
	if p.FromStatus != nil && current != *p.FromStatus {
		return &errors.RequestError{
			StatusCode: http.StatusConflict,
			Err:        fmt.Errorf("account status changed from %q to %q during the operation", *p.FromStatus, current),
		}
	}
	if p.Status != nil && *p.Status != current && !current.CanTransition(*p.Status) {
		return &errors.RequestError{
			StatusCode: http.StatusConflict,
			Err:        fmt.Errorf("account cannot transition from %q to %q", current, *p.Status),
		}
	}
	return nil
}

func storeError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case err == gorm.ErrRecordNotFound:
		return &errors.NotFoundError{ID: id}
	default:
		if _, ok := err.(*errors.RequestError); ok {
			return err
		}
		return &errors.StorageError{Err: err}
	}
}

func isDuplicateKey(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
