package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_PrintsInjectedVersion(t *testing.T) {
	SetVersion("1.2.3-test")

	cmd := newVersionCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "mcp-gateway version 1.2.3-test")
}
