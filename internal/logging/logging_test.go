package logging

import (
	"bytes"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf)
	h.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	logger := &log.Logger{Handler: h, Level: log.DebugLevel}
	logger.WithFields(log.Fields{"total": 3, "path": "items.json"}).Info("stats recomputed")

	assert.Equal(t, "2025-01-02 03:04:05 I stats recomputed path=items.json total=3\n", buf.String())
}

func TestInitLogger_EnvOverride(t *testing.T) {
	t.Setenv(LevelEnv, "debug")
	InitLogger("error")

	logger, ok := log.Log.(*log.Logger)
	if assert.True(t, ok) {
		assert.Equal(t, log.DebugLevel, logger.Level)
	}
}

func TestInitLogger_UnknownLevel(t *testing.T) {
	t.Setenv(LevelEnv, "")
	InitLogger("chatty")

	logger, ok := log.Log.(*log.Logger)
	if assert.True(t, ok) {
		assert.Equal(t, log.InfoLevel, logger.Level)
	}
}
