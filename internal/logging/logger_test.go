package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-saverr/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "PROD", "debug")
	logger.Debug().Str("component", "session").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "session", line["component"])
	require.Equal(t, "hello", line["message"])
}

func TestNewWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "PROD", "chatty")
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Debug().Msg("dropped")
	require.Empty(t, buf.String())
}

func TestNewWithWriter_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "DEV", "info")
	logger.Info().Msg("started")
	require.Contains(t, buf.String(), "started")
	require.False(t, json.Valid(buf.Bytes()))
}
