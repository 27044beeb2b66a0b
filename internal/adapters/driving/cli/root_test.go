package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/logger"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"record", "queue", "sync", "status", "locate", "run", "settings", "mcp", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	defer logger.SetVerbose(false)

	_, err := execute(t, "--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestDirs_EnvOverride(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/herbtrace-data")
	t.Setenv(EnvConfigDir, "/tmp/herbtrace-config")

	assert.Equal(t, "/tmp/herbtrace-data", DataDir())
	assert.Equal(t, "/tmp/herbtrace-config", ConfigDir())
	assert.Equal(t, "/tmp/herbtrace-data/inbox", InboxDir())

	t.Setenv(EnvInboxDir, "/srv/drop")
	assert.Equal(t, "/srv/drop", InboxDir())
}

func TestDirs_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvConfigDir, "")

	assert.Equal(t, "herbtrace", filepath.Base(DataDir()))
	assert.Equal(t, "herbtrace", filepath.Base(ConfigDir()))
}

func TestLoadEnv_MissingFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.NoError(t, LoadEnv())
}

func TestVerboseRequested(t *testing.T) {
	assert.True(t, VerboseRequested([]string{"sync", "--verbose"}))
	assert.True(t, VerboseRequested([]string{"-v", "status"}))
	assert.False(t, VerboseRequested([]string{"status", "--watch"}))
}

func TestCommands_WithoutServices(t *testing.T) {
	withServices(t, Services{})

	for _, args := range [][]string{
		{"record", "add", "--kind", "herb-collection", "--payload", "{}"},
		{"queue", "list"},
		{"queue", "retry"},
		{"sync"},
		{"status"},
		{"locate"},
		{"settings", "show"},
	} {
		_, err := execute(t, args...)
		assert.ErrorContains(t, err, "not configured", "args %v", args)
	}
}
