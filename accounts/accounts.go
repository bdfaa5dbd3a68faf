// Package accounts provides registration, validation, encrypted storage and
// sync for cloud provider accounts.
package accounts

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cloudleakage/cloudleakage-api/providers"
)

type Status string

const (
	// StatusPending only exists in memory while a creation is being
	// validated; it is never persisted.
	StatusPending   Status = "pending"
	StatusConnected Status = "connected"
	StatusError     Status = "error"
	StatusDisabled  Status = "disabled"
)

// CanTransition reports whether the lifecycle allows moving to the given
// status. Disabled is terminal except for an explicit re-enable, which
// routes through validation and lands on connected.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusConnected || to == StatusError
	case StatusConnected, StatusError:
		return to == StatusConnected || to == StatusError || to == StatusDisabled
	case StatusDisabled:
		return to == StatusConnected
	}
	return false
}

// Account is a storable provider account. Credential material only ever
// appears here encrypted, and is excluded from every JSON projection.
type Account struct {
	ID          string               `json:"id" gorm:"primaryKey"`
	DisplayName string               `json:"displayName" gorm:"not null"`
	Provider    providers.Provider   `json:"provider" gorm:"not null"`
	AccessType  providers.AccessType `json:"accessType" gorm:"not null"`

	// EncryptedCredentials is set only for access_key accounts,
	// RoleArn only for assumed_role accounts.
	EncryptedCredentials []byte `json:"-"`
	RoleArn              string `json:"roleArn,omitempty"`

	Status      Status         `json:"status" gorm:"not null"`
	AccountInfo datatypes.JSON `json:"accountInfo,omitempty"`

	LastSyncAt *time.Time     `json:"lastSyncAt"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
