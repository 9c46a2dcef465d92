package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferLoggerCapturesMessages(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("connecting to %s", "nas01")
	l.Info("collected %d disks", 3)
	l.Error("scan failed: %v", "timeout")

	assert.Len(t, l.Messages, 3)
	assert.Equal(t, "debug", l.Messages[0].Level)
	assert.Equal(t, "connecting to nas01", l.Messages[0].Message)
	assert.Equal(t, "collected 3 disks", l.Messages[1].Message)

	assert.True(t, l.HasLevel("error"))
	assert.False(t, l.HasLevel("warn"))

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestNoopLoggerDiscards(t *testing.T) {
	l := Noop()
	// Just exercise every level; nothing should panic.
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
}

func TestNewEnvLoggerImplementsInterface(t *testing.T) {
	var _ Logger = NewEnvLogger("[test]")
}
