package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/logger"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "herbtrace version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	originalVersion := version
	version = "dev"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "herbtrace version dev")
}

func TestVersionCmd_VerboseShowsPaths(t *testing.T) {
	t.Setenv(EnvConfigDir, "/tmp/herbtrace-config")
	t.Setenv(EnvDataDir, "/tmp/herbtrace-data")
	t.Setenv(EnvInboxDir, "")
	t.Cleanup(func() {
		verbose = false
		logger.SetVerbose(false)
	})

	out, err := execute(t, "version", "--verbose")

	require.NoError(t, err)
	assert.Contains(t, out, "config: /tmp/herbtrace-config")
	assert.Contains(t, out, "data: /tmp/herbtrace-data")
	assert.Contains(t, out, "inbox: /tmp/herbtrace-data/inbox")
	assert.Contains(t, out, "go: go")
}
