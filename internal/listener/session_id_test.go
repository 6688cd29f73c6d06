package listener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDManager_GenerateValidateTerminate(t *testing.T) {
	m := newSessionIDManager()

	id := m.Generate()
	require.NotEmpty(t, id)
	assert.NotEqual(t, id, m.Generate())

	terminated, err := m.Validate(id)
	assert.NoError(t, err)
	assert.False(t, terminated)

	notAllowed, err := m.Terminate(id)
	assert.NoError(t, err)
	assert.False(t, notAllowed)

	terminated, err = m.Validate(id)
	assert.Error(t, err)
	assert.True(t, terminated)
}

func TestSessionIDManager_RejectsForeignID(t *testing.T) {
	m := newSessionIDManager()
	_, err := m.Validate("never-issued")
	assert.Error(t, err)
}
