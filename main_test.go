package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/dota-analytics/internal/constants"
)

func TestResolveConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(constants.EnvConfigFile, "")

	assert.Equal(t, "", resolveConfigFile(""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.DefaultConfigFile), []byte("{}"), 0o644))
	assert.Equal(t, constants.DefaultConfigFile, resolveConfigFile(""))

	t.Setenv(constants.EnvConfigFile, "/etc/dota/env.yaml")
	assert.Equal(t, "/etc/dota/env.yaml", resolveConfigFile(""))

	assert.Equal(t, "flag.yaml", resolveConfigFile("flag.yaml"))
}
