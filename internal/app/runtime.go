package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// TestModeEnv makes serve and worker return before opening connections and
// silences the request logger.
const TestModeEnv = "MUNIADMIN_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

// InTestMode reports whether MUNIADMIN_TEST_MODE was set when first asked.
func InTestMode() bool {
	return testMode()
}

func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && on
}
