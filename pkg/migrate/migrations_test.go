package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShippedMigrationsValidate(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestCoreTablesMigrationDefinesIdempotencyIndex(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var core string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_core_tables.sql") {
			core = filepath.Join("migrations", e.Name())
		}
	}
	if core == "" {
		t.Fatal("core tables migration not found")
	}

	b, err := os.ReadFile(core)
	if err != nil {
		t.Fatalf("read core migration: %v", err)
	}
	txt := string(b)

	if !strings.Contains(txt, "uniq_ledger_user_reference") {
		t.Fatal("expected unique (user_id, reference_id) index on ledger_entries")
	}
	if !strings.Contains(txt, "CHECK (coins >= 0)") {
		t.Fatal("expected non-negative coins check on users")
	}
}
