package runtime

import (
	"testing"

	"go.uber.org/zap"
)

func TestSetLogger_NilFallsBackToNop(t *testing.T) {
	SetLogger(nil)
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	if Logger() == nil {
		t.Fatal("Logger() = nil after SetLogger(nil)")
	}
	Logger().Debug("still logging")
}
