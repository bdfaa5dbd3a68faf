package configs

import (
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("CLOUDLEAKAGE_ENCRYPTION_KEY", "testkeytestkeytestkeytestkeytest")
	t.Setenv("CLOUDLEAKAGE_ENCRYPTION_KEY_TYPE", "local")
	t.Setenv("CLOUDLEAKAGE_DATABASE_DSN", "test.db")
	t.Setenv("CLOUDLEAKAGE_DATABASE_TYPE", "sqlite")
	t.Setenv("CLOUDLEAKAGE_WORKER_COUNT", "1")
	t.Setenv("CLOUDLEAKAGE_SYNC_INTERVAL", "30m")

	cfg, err := Parse()

	if err != nil {
		t.Fatal(err)
	}

	if cfg.EncryptionKey != "testkeytestkeytestkeytestkeytest" {
		t.Errorf(`expected "EncryptionKey" to equal "testkeytestkeytestkeytestkeytest", got "%s"`, cfg.EncryptionKey)
	}

	if cfg.WorkerCount != 1 {
		t.Errorf(`expected "WorkerCount" to equal 1, got %d`, cfg.WorkerCount)
	}

	if cfg.SyncInterval != 30*time.Minute {
		t.Errorf(`expected "SyncInterval" to equal 30m, got %s`, cfg.SyncInterval)
	}

	if cfg.DefaultRegion != "us-east-1" {
		t.Errorf(`expected "DefaultRegion" to default to "us-east-1", got "%s"`, cfg.DefaultRegion)
	}
}

func TestParseConfigDevKeyFallback(t *testing.T) {
	t.Setenv("CLOUDLEAKAGE_ENCRYPTION_KEY", "")

	cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.EncryptionKey != devEncryptionKey {
		t.Errorf("expected fallback to the development key, got %q", cfg.EncryptionKey)
	}
}
