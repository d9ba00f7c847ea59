// Package dbtest connects tests to a disposable PostgreSQL database named by
// PORTAL_TEST_DATABASE_URL. Tests that need it are skipped when it is unset.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrr-automobiles/portal/internal/platform/db"
)

// EnvDSN names the variable holding the test database DSN.
const EnvDSN = "PORTAL_TEST_DATABASE_URL"

// Pool returns a migrated pool that is closed when t finishes. Packages run
// in parallel against the same database, so tests must pick keys no other
// package uses.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(pool); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return pool
}
