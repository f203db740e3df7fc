package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "DISASTER_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should skip runtime side effects. The
// flag is read from DISASTER_TEST_MODE on first use.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads DISASTER_TEST_MODE and returns the new value.
func RefreshTestMode() bool {
	on := os.Getenv(testModeEnv) == "1"
	testMode.Store(&on)
	return on
}
