package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nbrun/nbrun/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigFromDirectory(t *testing.T) {
	dir := t.TempDir()
	content := `
[tools.black]
args = ["--line-length=96"]
mutate = true

[tools.flake8]
args = ["--ignore=E203"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.ConfigFilename), []byte(content), 0644))

	config, err := core.ReadConfigFromDirectory(dir)
	require.NoError(t, err)

	black := config.Tool("black")
	assert.Equal(t, []string{"--line-length=96"}, black.Args)
	assert.True(t, black.Mutate)

	flake8 := config.Tool("flake8")
	assert.Equal(t, []string{"--ignore=E203"}, flake8.Args)
	assert.False(t, flake8.Mutate)

	// Unknown tools get zero-value defaults.
	assert.Empty(t, config.Tool("mypy").Args)
}

func TestReadConfigFromDirectory_SearchesParents(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "notebooks", "experiments")
	require.NoError(t, os.MkdirAll(nested, 0755))
	content := `
[tools.isort]
mutate = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.ConfigFilename), []byte(content), 0644))

	config, err := core.ReadConfigFromDirectory(nested)
	require.NoError(t, err)
	assert.True(t, config.Tool("isort").Mutate)
}

func TestReadConfigFromDirectory_Missing(t *testing.T) {
	// No configuration anywhere up the tree: defaults apply.
	config, err := core.ReadConfigFromDirectory(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, config.Tool("black").Args)
	assert.False(t, config.Tool("black").Mutate)
}

func TestReadConfigFromDirectory_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.ConfigFilename), []byte("not [valid toml"), 0644))

	_, err := core.ReadConfigFromDirectory(dir)
	require.Error(t, err)
}
