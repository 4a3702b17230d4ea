package snapshot_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/sqlbench/internal/snapshot"
)

func seedDemo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.db")
	if err := snapshot.SeedDemo(path); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	return path
}

func TestSeedDemo(t *testing.T) {
	path := seedDemo(t)
	db, err := snapshot.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var customers int
	if err := db.Get(&customers, `SELECT COUNT(*) FROM customers`); err != nil {
		t.Fatalf("counting customers: %v", err)
	}
	if customers != 8 {
		t.Errorf("customers = %d, want 8", customers)
	}
	var overLimit int
	if err := db.Get(&overLimit, `
		SELECT COUNT(*) FROM customers c JOIN plans p ON c.plan_id = p.id
		WHERE c.data_used_gb > p.data_limit_gb`); err != nil {
		t.Fatal(err)
	}
	if overLimit == 0 {
		t.Error("demo data should include over-limit customers")
	}
}

func TestCopyIsolation(t *testing.T) {
	source := seedDemo(t)

	copyA, err := snapshot.Copy(source, t.TempDir())
	if err != nil {
		t.Fatalf("Copy A: %v", err)
	}
	copyB, err := snapshot.Copy(source, t.TempDir())
	if err != nil {
		t.Fatalf("Copy B: %v", err)
	}

	dbA, err := snapshot.Open(copyA)
	if err != nil {
		t.Fatal(err)
	}
	defer dbA.Close()
	if _, err := dbA.Exec(`DELETE FROM customers`); err != nil {
		t.Fatalf("mutating copy A: %v", err)
	}

	dbB, err := snapshot.Open(copyB)
	if err != nil {
		t.Fatal(err)
	}
	defer dbB.Close()
	var count int
	if err := dbB.Get(&count, `SELECT COUNT(*) FROM customers`); err != nil {
		t.Fatal(err)
	}
	if count != 8 {
		t.Errorf("mutation in copy A visible in copy B: count = %d", count)
	}

	// Source untouched either.
	dbS, err := snapshot.Open(source)
	if err != nil {
		t.Fatal(err)
	}
	defer dbS.Close()
	if err := dbS.Get(&count, `SELECT COUNT(*) FROM customers`); err != nil {
		t.Fatal(err)
	}
	if count != 8 {
		t.Errorf("source mutated: count = %d", count)
	}
}

func TestDescribeSchema(t *testing.T) {
	path := seedDemo(t)
	desc, err := snapshot.DescribeSchema(path)
	if err != nil {
		t.Fatalf("DescribeSchema: %v", err)
	}
	for _, table := range []string{"customers", "plans", "transactions"} {
		if !strings.Contains(desc, table) {
			t.Errorf("schema description missing table %q", table)
		}
	}
	// Cached second call returns the same description.
	again, err := snapshot.DescribeSchema(path)
	if err != nil {
		t.Fatal(err)
	}
	if again != desc {
		t.Error("cached description differs")
	}
}

func TestCopyMissingSource(t *testing.T) {
	_, err := snapshot.Copy(filepath.Join(t.TempDir(), "missing.db"), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
