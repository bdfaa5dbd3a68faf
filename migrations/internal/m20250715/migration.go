// m20250715 adds the idempotency key table.
// NOTE: the table is only used when the idempotency middleware is enabled
// and configured to use the shared sql database.
package m20250715

import (
	"time"

	"gorm.io/gorm"
)

const ID = "20250715"

type IdempotencyStoreGormItem struct {
	Key        string    `gorm:"column:key;primary_key"`
	ExpiryDate time.Time `gorm:"column:expiry_date"`
}

func (IdempotencyStoreGormItem) TableName() string {
	return "idempotency_keys"
}

func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(&IdempotencyStoreGormItem{})
}

func Rollback(tx *gorm.DB) error {
	return tx.Migrator().DropTable(&IdempotencyStoreGormItem{})
}
