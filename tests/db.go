package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/storage/database"
)

var tables = []string{"cash_handovers", "payment_transactions", "emi_details", "academic_records", "students", "staff"}

// PrepareDB opens the postgres test database, migrates it and empties every table.
// Tests using it are skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST is not set")
	}
	if err := os.Setenv("ENV", "TEST"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	conf := core.NewConfig()
	ctx := context.Background()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("ResetDB(%s): %v", table, err)
		}
	}
}
