package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"search", "info", "serve", "doctor", "logs", "config", "version"})
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := runCmd(t, "index")

	assert.Error(t, err)
}

func TestRootCmd_ProfilesAroundCommand(t *testing.T) {
	// Given: profile flags
	testEnv(t)
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	mem := filepath.Join(dir, "mem.prof")

	// When: running any command
	_, err := runCmd(t, "--profile-cpu", cpu, "--profile-mem", mem, "version")

	// Then: both profiles are written
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, mem)
}

func TestRootCmd_DebugRaisesLogLevel(t *testing.T) {
	testEnv(t)
	opts := &globalOptions{configDir: t.TempDir(), debug: true}

	cfg, err := opts.loadConfig()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NotEmpty(t, loggingConfig(cfg).FilePath)
}
