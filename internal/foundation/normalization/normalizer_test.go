package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

type color string

var colors = NewNormalizer("color", map[string]color{"Red": "red", "blue": "blue"}, "red")

func TestNormalize(t *testing.T) {
	assert.Equal(t, color("blue"), colors.Normalize("  BLUE "))
	assert.Equal(t, color("red"), colors.Normalize("red"))
	assert.Equal(t, color("red"), colors.Normalize("purple"))
	assert.Equal(t, color("red"), colors.Normalize(""))
}

func TestParse(t *testing.T) {
	v, err := colors.Parse("Blue")
	require.NoError(t, err)
	assert.Equal(t, color("blue"), v)

	v, err = colors.Parse("")
	require.NoError(t, err)
	assert.Equal(t, color("red"), v)

	_, err = colors.Parse("purple")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.Contains(t, err.Error(), "invalid color")
}

func TestValidKeys(t *testing.T) {
	assert.Equal(t, []string{"blue", "red"}, colors.ValidKeys())
}
