package lib

import "gorm.io/gorm"

// GormTransaction runs fn inside a transaction when the dialector is mysql
// or psql. Sqlite serializes writers on its own, so it falls back to the
// plain database handle to avoid nested-transaction locking.
func GormTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	isSqlite := db.Config.Dialector.Name() == "sqlite"

	var tx *gorm.DB

	if !isSqlite {
		tx = db.Begin()
	} else {
		tx = db
	}

	if err := fn(tx); err != nil {
		if !isSqlite {
			tx.Rollback()
		}
		return err
	}

	if !isSqlite {
		tx.Commit()
	}

	return nil
}
