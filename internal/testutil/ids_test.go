package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedIDGenerator(t *testing.T) {
	gen := NewScriptedIDGenerator("", "tune-1", "stop-1")

	assert.Equal(t, "tune-1", gen.Generate())
	assert.Equal(t, "stop-1", gen.Generate())
	assert.Equal(t, "act-3", gen.Generate())
	assert.Equal(t, "act-4", gen.Generate())
}

func TestScriptedIDGenerator_NoScript(t *testing.T) {
	gen := NewScriptedIDGenerator("cmd")
	assert.Equal(t, "cmd-1", gen.Generate())
	assert.Equal(t, "cmd-2", gen.Generate())
}

func TestFixedIDGenerator(t *testing.T) {
	assert.Equal(t, "act-fixed", FixedIDGenerator("").Generate())

	gen := FixedIDGenerator("same")
	assert.Equal(t, "same", gen.Generate())
	assert.Equal(t, "same", gen.Generate())
}
