package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"error": LogLevelError,
		"WARN":  LogLevelWarn,
		"info":  LogLevelInfo,
		"":      LogLevelInfo,
		"debug": LogLevelDebug,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LogLevelWarn)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	// each line is "<date> <time> {json}"
	idx := strings.Index(lines[0], "{")
	require.GreaterOrEqual(t, idx, 0)
	var entry map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0][idx:]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown 2", entry["msg"])

	l.SetLevel(LogLevelDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
