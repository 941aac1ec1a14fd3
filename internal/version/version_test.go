package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	s := String()
	assert.True(t, strings.HasPrefix(s, "statique "), s)
	assert.Contains(t, s, "commit "+GitCommit)
}

func TestString_UsesLinkedVersion(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v9.9.9"
	assert.Contains(t, String(), "statique v9.9.9 ")
}
