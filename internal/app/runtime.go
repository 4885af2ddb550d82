package app

import (
	"os"
	"sync/atomic"
)

// TestModeEnv set to "1" makes the binaries return before dialing Postgres or Redis.
const TestModeEnv = "ODYSSEY_TEST_MODE"

const (
	modeUnknown int32 = iota
	modeOff
	modeOn
)

var testMode atomic.Int32

// InTestMode reports whether the process runs under test. The environment is
// read once; RefreshTestMode re-reads it.
func InTestMode() bool {
	switch testMode.Load() {
	case modeOn:
		return true
	case modeOff:
		return false
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads TestModeEnv and returns the new state.
func RefreshTestMode() bool {
	on := os.Getenv(TestModeEnv) == "1"
	if on {
		testMode.Store(modeOn)
	} else {
		testMode.Store(modeOff)
	}
	return on
}
