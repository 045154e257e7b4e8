package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RenderLabel(t *testing.T) {
	eng := NewEngine()
	out, err := eng.RenderLabel("a photo of a {{.label}}", "tabby cat")
	require.NoError(t, err)
	assert.Equal(t, "a photo of a tabby cat", out)
}

func TestEngine_RenderLabel_DefaultTemplate(t *testing.T) {
	eng := NewEngine()
	out, err := eng.RenderLabel("", "dog")
	require.NoError(t, err)
	assert.Equal(t, "a photo of a dog", out)
}

func TestEngine_RenderAll_PreservesOrder(t *testing.T) {
	eng := NewEngine()
	out, err := eng.RenderAll("{{.label}}, a type of pet", []string{"cat", "dog"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat, a type of pet", "dog, a type of pet"}, out)
}

func TestEngine_Validate(t *testing.T) {
	eng := NewEngine()
	assert.NoError(t, eng.Validate("a photo of a {{.label}}"))
	assert.ErrorIs(t, eng.Validate("a photo of a thing"), ErrLabelNotReferenced)
	assert.Error(t, eng.Validate("{{.label"))
}

func TestEngine_Funcs(t *testing.T) {
	eng := NewEngine()
	out, err := eng.RenderLabel("a photo of a {{lower .label}}", "CAT")
	require.NoError(t, err)
	assert.Equal(t, "a photo of a cat", out)
}
