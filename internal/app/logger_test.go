package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json format emits JSON records", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newLogger("info", "json", buf).Info("pipeline started", "cells", 2)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "pipeline started", record["msg"])
	})

	t.Run("debug level lets debug records through", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newLogger("debug", "text", buf).Debug("gate open")
		assert.Contains(t, buf.String(), "gate open")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger("chatty", "text", buf)
		logger.Debug("suppressed")
		logger.Info("kept")
		assert.NotContains(t, buf.String(), "suppressed")
		assert.Contains(t, buf.String(), "kept")
	})
}
