// Package jobs provides async job processing for account syncs.
package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job types.
const (
	TypeSync = "sync"
)

// Job is a persisted unit of background work. Do carries the executable
// part and never touches the database row.
type Job struct {
	ID        uuid.UUID              `json:"jobId" gorm:"column:id;primaryKey;type:uuid"`
	Type      string                 `json:"type" gorm:"column:type"`
	Do        func() (string, error) `json:"-" gorm:"-"`
	Status    Status                 `json:"status" gorm:"column:status"`
	Error     string                 `json:"-" gorm:"column:error"`
	Result    string                 `json:"result" gorm:"column:result"`
	AccountID string                 `json:"accountId" gorm:"column:account_id;index"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	DeletedAt gorm.DeletedAt         `json:"-" gorm:"index"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
