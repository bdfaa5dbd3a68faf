package accounts

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cloudleakage/cloudleakage-api/configs"
	"github.com/cloudleakage/cloudleakage-api/datastore"
	"github.com/cloudleakage/cloudleakage-api/encryption"
	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/jobs"
	"github.com/cloudleakage/cloudleakage-api/migrations"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := migrations.Migrate(db); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func TestGormStoreCRUD(t *testing.T) {
	store := NewGormStore(testDB(t))

	first := Account{
		ID:                   "acc-1",
		DisplayName:          "first",
		Provider:             providers.ProviderAWS,
		AccessType:           providers.AccessTypeAccessKey,
		EncryptedCredentials: []byte("ciphertext"),
		Status:               StatusConnected,
	}
	if err := store.InsertAccount(&first); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertAccount(&Account{
		ID:          "acc-2",
		DisplayName: "second",
		Provider:    providers.ProviderAWS,
		AccessType:  providers.AccessTypeAssumedRole,
		RoleArn:     "arn:aws:iam::123456789012:role/CostReader",
		Status:      StatusConnected,
	}); err != nil {
		t.Fatal(err)
	}

	t.Run("duplicate id is rejected", func(t *testing.T) {
		dup := first
		if err := store.InsertAccount(&dup); err == nil {
			t.Error("expected duplicate insert to fail")
		}
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		aa, err := store.Accounts(datastore.ListOptions{Limit: datastore.DefaultLimit})
		if err != nil {
			t.Fatal(err)
		}
		if len(aa) != 2 {
			t.Fatalf("expected 2 accounts, got %d", len(aa))
		}
		if aa[0].ID != "acc-1" || aa[1].ID != "acc-2" {
			t.Errorf("unexpected order: %s, %s", aa[0].ID, aa[1].ID)
		}
	})

	t.Run("update patches mutable fields", func(t *testing.T) {
		status := StatusError
		now := time.Now().UTC()
		a, err := store.UpdateAccount("acc-1", Patch{Status: &status, LastSyncAt: &now})
		if err != nil {
			t.Fatal(err)
		}
		if a.Status != StatusError {
			t.Errorf("expected status %q, got %q", StatusError, a.Status)
		}
		if a.LastSyncAt == nil {
			t.Error("expected lastSyncAt to be set")
		}
		if string(a.EncryptedCredentials) != "ciphertext" {
			t.Error("update must not touch credential material")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := store.Account("missing"); err == nil {
			t.Error("expected a not found error")
		}
		if _, err := store.UpdateAccount("missing", Patch{}); err == nil {
			t.Error("expected a not found error")
		}
	})

	t.Run("delete removes credential material", func(t *testing.T) {
		deleted, err := store.DeleteAccount("acc-1")
		if err != nil {
			t.Fatal(err)
		}
		if !deleted {
			t.Fatal("expected the account to be deleted")
		}

		if _, err := store.Account("acc-1"); err == nil {
			t.Error("deleted account must not be readable")
		}

		var count int64
		store.db.Model(&Account{}).Unscoped().
			Where("id = ? AND encrypted_credentials IS NOT NULL", "acc-1").
			Count(&count)
		if count != 0 {
			t.Error("credential material must not outlive the account")
		}

		deleted, err = store.DeleteAccount("acc-1")
		if err != nil {
			t.Fatal(err)
		}
		if deleted {
			t.Error("expected repeat delete to be a no-op")
		}
	})
}

func TestGormStoreStatusConflicts(t *testing.T) {
	store := NewGormStore(testDB(t))

	disabled := StatusDisabled
	connected := StatusConnected
	pending := StatusPending

	if err := store.InsertAccount(&Account{
		ID:         "acc-1",
		Provider:   providers.ProviderAWS,
		AccessType: providers.AccessTypeAccessKey,
		Status:     StatusDisabled,
	}); err != nil {
		t.Fatal(err)
	}

	t.Run("stale expected status is rejected", func(t *testing.T) {
		// A writer that last saw the account connected must not win
		// against the disable that landed in the meantime.
		_, err := store.UpdateAccount("acc-1", Patch{FromStatus: &connected, Status: &connected})
		var reqErr *errors.RequestError
		if !stdAs(err, &reqErr) || reqErr.StatusCode != http.StatusConflict {
			t.Fatalf("expected a conflict error, got %v", err)
		}

		a, err := store.Account("acc-1")
		if err != nil {
			t.Fatal(err)
		}
		if a.Status != StatusDisabled {
			t.Errorf("expected status %q, got %q", StatusDisabled, a.Status)
		}
	})

	t.Run("illegal transition is rejected", func(t *testing.T) {
		_, err := store.UpdateAccount("acc-1", Patch{FromStatus: &disabled, Status: &pending})
		var reqErr *errors.RequestError
		if !stdAs(err, &reqErr) || reqErr.StatusCode != http.StatusConflict {
			t.Fatalf("expected a conflict error, got %v", err)
		}
	})

	t.Run("matching expected status goes through", func(t *testing.T) {
		a, err := store.UpdateAccount("acc-1", Patch{FromStatus: &disabled, Status: &connected})
		if err != nil {
			t.Fatal(err)
		}
		if a.Status != StatusConnected {
			t.Errorf("expected status %q, got %q", StatusConnected, a.Status)
		}
	})
}

func TestScheduledSync(t *testing.T) {
	db := testDB(t)
	store := NewGormStore(db)

	wp := jobs.NewWorkerPool(jobs.NewGormStore(db), 10, 1)
	wp.Start()
	defer wp.Stop()

	crypter, err := encryption.NewAESCrypter([]byte(testKey))
	if err != nil {
		t.Fatal(err)
	}

	registry := providers.NewRegistry()
	registry.Register(providers.ProviderAWS, providers.AccessTypeAccessKey, validAdapter())

	svc := NewService(&configs.Config{DefaultRegion: "us-east-1"}, store, crypter, registry, wp)

	a, err := svc.Create(context.Background(), accessKeyRequest())
	if err != nil {
		t.Fatal(err)
	}

	disabled, err := svc.Create(context.Background(), accessKeyRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Disable(disabled.ID); err != nil {
		t.Fatal(err)
	}

	svc.SyncAll(context.Background())

	deadline := time.After(5 * time.Second)
	for {
		jj, err := jobs.NewGormStore(db).Jobs(datastore.ListOptions{Limit: datastore.DefaultLimit})
		if err != nil {
			t.Fatal(err)
		}
		if len(jj) == 1 && jj[0].Status == jobs.Complete {
			if jj[0].AccountID != a.ID {
				t.Errorf("expected a sync job for %q, got %q", a.ID, jj[0].AccountID)
			}
			return
		}
		if len(jj) > 1 {
			t.Fatalf("expected one sync job, got %d", len(jj))
		}

		select {
		case <-deadline:
			t.Fatal("timed out waiting for the sync job to complete")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
