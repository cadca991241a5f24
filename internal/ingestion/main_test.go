package ingestion

import (
	"os"
	"testing"

	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// The package under test logs through the process-wide logger, which must be
// initialized before any test exercises Retrieve.
func TestMain(m *testing.M) {
	if err := logger.Init("debug", "console", "stdout"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
