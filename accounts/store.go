package accounts

import (
	"time"

	"gorm.io/datatypes"

	"github.com/cloudleakage/cloudleakage-api/datastore"
)

// Patch enumerates the mutable fields of a stored account. Identity,
// provider binding and credential material are immutable after creation.
//
// FromStatus, when set, makes the update conditional: the patch is
// rejected with a conflict if the row's status has moved on since the
// caller read it. Status changes are additionally checked against the
// lifecycle transition rules inside the store's transaction, so a slow
// caller cannot overwrite a status change that landed in between.
type Patch struct {
	FromStatus  *Status
	Status      *Status
	AccountInfo *datatypes.JSON
	LastSyncAt  *time.Time
}

// Store manages accounts in database.
type Store interface {
	Accounts(datastore.ListOptions) ([]Account, error)
	Account(id string) (Account, error)
	InsertAccount(a *Account) error
	// UpdateAccount applies the patch atomically and returns the
	// resulting row.
	UpdateAccount(id string, p Patch) (Account, error)
	// DeleteAccount reports whether an account was actually removed so
	// repeated deletes stay idempotent.
	DeleteAccount(id string) (bool, error)
}
