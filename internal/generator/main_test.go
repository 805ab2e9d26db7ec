package generator

import (
	"testing"

	"go.uber.org/goleak"
)

// GenerateAll must not leave workers behind, canceled or not.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
