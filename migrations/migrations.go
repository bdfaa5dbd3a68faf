// Package migrations manages the database schema.
package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/cloudleakage/cloudleakage-api/migrations/internal/m20250601"
	"github.com/cloudleakage/cloudleakage-api/migrations/internal/m20250715"
)

func List() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID:       m20250601.ID,
			Migrate:  m20250601.Migrate,
			Rollback: m20250601.Rollback,
		},
		{
			ID:       m20250715.ID,
			Migrate:  m20250715.Migrate,
			Rollback: m20250715.Rollback,
		},
	}
}

// Migrate runs all pending migrations.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, List())
	return m.Migrate()
}
