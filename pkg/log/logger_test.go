package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var out bytes.Buffer
	Init(Options{LogLevel: zerolog.InfoLevel, Type: JSONLogger, Output: &out})
	t.Cleanup(func() {
		Root, Native, Store = zerolog.Nop(), zerolog.Nop(), zerolog.Nop()
	})

	Store.Info().Str("path", "casket.kch").Msg("database opened")
	Native.Debug().Msg("filtered out")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, "casket.kch", entry["path"])
	assert.Equal(t, "database opened", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestInitConsole(t *testing.T) {
	var out bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: ConsoleLogger, Output: &out})
	t.Cleanup(func() {
		Root, Native, Store = zerolog.Nop(), zerolog.Nop(), zerolog.Nop()
	})

	Native.Debug().Str("path", "libkyotocabinet.so").Msg("library loaded")
	Root.Info().Msg("started")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "DEBUG native library loaded path=libkyotocabinet.so")
	assert.NotContains(t, lines[0], "component=")
	assert.Contains(t, lines[1], "INFO  started")
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}
