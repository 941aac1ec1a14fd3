package skeleton

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/manifest"
)

func TestFiles(t *testing.T) {
	assert.ElementsMatch(t, []string{"config.yaml", "index.md", "statique.yaml", "template/layout.html"}, Files())
}

func TestWrite_FreshDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	res, err := Write(dir, false)
	require.NoError(t, err)
	assert.Len(t, res.Written, 4)
	assert.Empty(t, res.Conflicts)

	m, err := manifest.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "My statique site", m.Title)
	assert.FileExists(t, filepath.Join(dir, "template", "layout.html"))
}

func TestWrite_RefusesWithoutForce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("mine"), 0o644))

	res, err := Write(dir, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryAlreadyExists))
	assert.Equal(t, []string{"index.md"}, res.Conflicts)
	assert.Empty(t, res.Written)

	b, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(b))
	assert.NoFileExists(t, filepath.Join(dir, "config.yaml"))
}

func TestWrite_ForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("mine"), 0o644))

	res, err := Write(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.md"}, res.Conflicts)
	assert.Len(t, res.Written, 4)

	b, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "# Welcome")
}
