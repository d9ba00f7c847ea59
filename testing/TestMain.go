// Package testing flips binaries into test mode so that importing them from a
// test never dials Postgres or Redis.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("PORTAL_TEST_MODE", "1")
		if os.Getenv("SHOP_TIMEZONE") == "" {
			_ = os.Setenv("SHOP_TIMEZONE", "Asia/Kolkata")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
