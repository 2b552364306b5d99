package logger

import (
	"edu_platform_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		name  string
		mode  string
		level string
		want  zapcore.Level
	}{
		{"debug mode default", "debug", "", zapcore.DebugLevel},
		{"release mode default", "release", "", zapcore.InfoLevel},
		{"explicit level wins", "debug", "warn", zapcore.WarnLevel},
		{"unknown level falls back", "release", "loud", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Server: config.ServerConfig{Mode: tc.mode}, Log: config.LogConfig{Level: tc.level}}
			assert.Equal(t, tc.want, levelFor(cfg))
		})
	}
}
