package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunClosesLogWhenCommandFails(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "assettrack.log")
	a := &app{v: viper.New()}

	err := run(a, []string{
		"verify-ledger",
		"--db", filepath.Join(dir, "missing", "assets.sqlite3"),
		"--log", logPath,
	})
	require.Error(t, err)

	assert.Nil(t, a.closeLog, "log file must be closed after a failed command")
	_, statErr := os.Stat(logPath)
	assert.NoError(t, statErr)
}

func TestRunClosesLogOnSuccess(t *testing.T) {
	dir := t.TempDir()
	a := &app{v: viper.New()}

	err := run(a, []string{
		"migrate",
		"--db", filepath.Join(dir, "assets.sqlite3"),
		"--log", filepath.Join(dir, "assettrack.log"),
	})
	require.NoError(t, err)
	assert.Nil(t, a.closeLog)
}
