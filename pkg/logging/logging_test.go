package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"covertype/pkg/config"
)

func TestBuildJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Build(config.LogConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("visible")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "visible", entry["msg"])
	_, err = uuid.Parse(entry["run_id"].(string))
	assert.NoError(t, err)
}

func TestBuildWritesFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := Build(config.LogConfig{Level: "DEBUG", Format: "console", File: path, MaxSizeMB: 1}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("fitting", HostFields()...)
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "DEBUG")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"fitting"`)
	assert.Contains(t, string(content), `"logical_cores"`)
}

func TestBuildErrors(t *testing.T) {
	var buf bytes.Buffer
	_, err := Build(config.LogConfig{Level: "loud"}, zapcore.AddSync(&buf))
	assert.Error(t, err)
	_, err = Build(config.LogConfig{Level: "info", Format: "xml"}, zapcore.AddSync(&buf))
	assert.Error(t, err)
}

func TestWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, Workers(), 1)
}
