package sets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetMembership(t *testing.T) {
	s := New("yaml", "toml")
	s.Add("json")

	assert.True(t, s.Has("yaml"))
	assert.True(t, s.Has("json"))
	assert.False(t, s.Has("md"))
	assert.Equal(t, 3, s.Len())

	var empty Set[string]
	assert.False(t, empty.Has("yaml"))
}

func TestNormalizedDropsEmpty(t *testing.T) {
	s := Normalized([]string{" .yaml", "", "  ", ".toml"}, func(v string) string {
		return strings.TrimPrefix(v, ".")
	})

	assert.Equal(t, []string{"toml", "yaml"}, Sorted(s))
}
