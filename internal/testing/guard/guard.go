// Package guard is imported for its side effect by tests of the binaries: it
// switches them into test mode so main returns before dialing any backend.
package guard

import (
	"os"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
)

func init() {
	if _, ok := os.LookupEnv(app.TestModeEnv); !ok {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
	app.RefreshTestMode()
}
