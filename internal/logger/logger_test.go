package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log := Init(Options{Output: &buf})

	log.Debug("hidden")
	log.Info("account created", "account_id", "a1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "account created", entry["msg"])
	assert.Equal(t, "a1", entry["account_id"])
}

func TestInitDevelopmentWritesText(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Init(Options{Development: true, Output: &buf})

	slog.Debug("token issued", "purpose", "password_reset")
	assert.Contains(t, buf.String(), "purpose=password_reset")
}
