package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverride(t *testing.T) {
	t.Setenv("GITHUB_EVENT_NAME", "push")
	t.Setenv("GITHUB_EVENT_PATH", "/env/event.json")
	t.Setenv("TELEGRAM_TOPIC_ID", "")

	f := flags{configPath: filepath.Join(t.TempDir(), "absent.yaml")}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&f.eventName, "event-name", "", "")
	cmd.Flags().StringVar(&f.eventPath, "event-path", "", "")
	require.NoError(t, cmd.Flags().Set("event-name", "create"))
	f.dryRun = true

	cfg, err := loadConfig(f, cmd)
	require.NoError(t, err)
	assert.Equal(t, "create", cfg.EventName)
	assert.Equal(t, "/env/event.json", cfg.EventPath)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 6, cfg.TopicID)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "text", "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")

	buf.Reset()
	newLogger(&buf, "", "").Info("json")
	assert.Contains(t, buf.String(), `"msg":"json"`)
}

func TestExitError(t *testing.T) {
	err := exitError{code: 130}
	assert.Equal(t, 130, err.ExitCode())
	assert.Equal(t, "exit with code 130", err.Error())
}
