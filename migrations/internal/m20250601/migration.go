package m20250601

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//
// Initial schema. All types are snapshot here so that the structure for this
// point in time is preserved and can be rolled back to from later
// migrations.
//

const ID = "20250601"

type Account struct {
	ID                   string         `gorm:"column:id;primaryKey"`
	DisplayName          string         `gorm:"column:display_name;not null"`
	Provider             string         `gorm:"column:provider;not null"`
	AccessType           string         `gorm:"column:access_type;not null"`
	EncryptedCredentials []byte         `gorm:"column:encrypted_credentials"`
	RoleArn              string         `gorm:"column:role_arn"`
	Status               string         `gorm:"column:status;not null"`
	AccountInfo          datatypes.JSON `gorm:"column:account_info"`
	LastSyncAt           *time.Time     `gorm:"column:last_sync_at"`
	CreatedAt            time.Time      `gorm:"column:created_at"`
	UpdatedAt            time.Time      `gorm:"column:updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Account) TableName() string {
	return "accounts"
}

type Job struct {
	ID        uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	Type      string         `gorm:"column:type"`
	Status    int            `gorm:"column:status"`
	Error     string         `gorm:"column:error"`
	Result    string         `gorm:"column:result"`
	AccountID string         `gorm:"column:account_id;index"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Job) TableName() string {
	return "jobs"
}

func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(&Account{}, &Job{})
}

func Rollback(tx *gorm.DB) error {
	return tx.Migrator().DropTable(&Account{}, &Job{})
}
