package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		level     string
		wantDebug bool
	}{
		{name: "local is verbose", env: "local", wantDebug: true},
		{name: "production defaults to info", env: "production", wantDebug: false},
		{name: "level override", env: "production", level: "debug", wantDebug: true},
		{name: "local quietened", env: "local", level: "warn", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.env, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("production", "loud")
	assert.Error(t, err)
}
