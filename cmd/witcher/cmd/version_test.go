package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/pkg/version"
)

func TestVersionCmd_Default(t *testing.T) {
	out, err := runCmd(t, "version")

	require.NoError(t, err)
	assert.Equal(t, version.String(), lines(out)[0])
}

func TestVersionCmd_Short(t *testing.T) {
	out, err := runCmd(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, version.Version, lines(out)[0])
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := runCmd(t, "version", "--json")

	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}
