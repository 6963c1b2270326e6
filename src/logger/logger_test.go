package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "text", false)

	log.Info("[WatchAgent] watching %s", "app")
	log.Debug("hidden %d", 1)

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, "[WatchAgent] watching app")
	assert.NotContains(t, out, "hidden")
}

func TestConsoleLogger_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "text", true)

	log.Debug("poll %d", 3)

	assert.Contains(t, buf.String(), "poll 3")
}

func TestConsoleLogger_JSONWithField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "JSON", false).WithField("component", "watch")

	log.Error("status query failed: %v", "boom")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "watch", entry["component"])
	assert.Equal(t, "status query failed: boom", entry["msg"])
}

func TestSilentLogger(t *testing.T) {
	var log Logger = NewSilentLogger()
	log.Info("nothing")
	log.Error("nothing")
	log.Debug("nothing")
}
