package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName),
		[]byte("title: My site\nlang: fr-CH\ncharset: UTF-8\n"), 0o644))

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "My site", m.Title)
	assert.Equal(t, "fr-CH", m.Lang)
	assert.Equal(t, "utf-8", m.CanonicalCharset())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "title: [x"},
		{"bad lang", "lang: not a tag!"},
		{"bad charset", "charset: klingon-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "config.yaml")
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		})
	}
}

func TestCanonicalCharset(t *testing.T) {
	m := &Manifest{}
	assert.Equal(t, "utf-8", m.CanonicalCharset())

	m, err := Parse([]byte("charset: latin1\n"), "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", m.CanonicalCharset())
}
