package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/queryserverd/internal/protoerr"
	"github.com/codefionn/queryserverd/internal/term"
)

func TestParseCommandRun(t *testing.T) {
	p := term.NewParser()
	cmd, err := ParseCommand(p, "run(member(X,[a,b,c]), -1)")
	require.NoError(t, err)
	assert.Equal(t, CmdRun, cmd.Kind)
	assert.Equal(t, -1, cmd.Timeout)
	assert.True(t, cmd.FindAll)
	assert.Equal(t, []string{"X"}, cmd.BindingNames)
}

func TestParseCommandRunAsync(t *testing.T) {
	p := term.NewParser()
	cmd, err := ParseCommand(p, "run_async(member(X,[1,2]), -1, false)")
	require.NoError(t, err)
	assert.Equal(t, CmdRunAsync, cmd.Kind)
	assert.False(t, cmd.FindAll)
}

func TestParseCommandAsyncResult(t *testing.T) {
	p := term.NewParser()
	cmd, err := ParseCommand(p, "async_result(0)")
	require.NoError(t, err)
	assert.Equal(t, CmdAsyncResult, cmd.Kind)
	assert.Equal(t, 0, cmd.Timeout)
}

func TestParseCommandAsyncResultBareAtomWaitsForever(t *testing.T) {
	p := term.NewParser()
	cmd, err := ParseCommand(p, "async_result")
	require.NoError(t, err)
	assert.Equal(t, CmdAsyncResult, cmd.Kind)
	assert.Equal(t, -1, cmd.Timeout)
}

func TestParseCommandZeroArityCommands(t *testing.T) {
	p := term.NewParser()

	cmd, err := ParseCommand(p, "cancel_async")
	require.NoError(t, err)
	assert.Equal(t, CmdCancelAsync, cmd.Kind)

	cmd, err = ParseCommand(p, "close")
	require.NoError(t, err)
	assert.Equal(t, CmdClose, cmd.Kind)

	cmd, err = ParseCommand(p, "quit")
	require.NoError(t, err)
	assert.Equal(t, CmdQuit, cmd.Kind)
}

func TestParseCommandUnknownAtomIsUnknownCommand(t *testing.T) {
	p := term.NewParser()
	_, err := ParseCommand(p, "frobnicate")
	require.Error(t, err)
	atom, ok := protoerr.AsAtom(err)
	require.True(t, ok)
	assert.Equal(t, protoerr.UnknownCommand, atom)
}

func TestParseCommandMalformedSyntaxIsCouldNotParse(t *testing.T) {
	p := term.NewParser()
	_, err := ParseCommand(p, "run(member(X,[a,b,c")
	require.Error(t, err)
	atom, ok := protoerr.AsAtom(err)
	require.True(t, ok)
	assert.Equal(t, protoerr.CouldNotParseCommand, atom)
}

func TestParseCommandWrongArityIsUnknownCommand(t *testing.T) {
	p := term.NewParser()
	_, err := ParseCommand(p, "run(member(X,[a]))")
	require.Error(t, err)
	atom, ok := protoerr.AsAtom(err)
	require.True(t, ok)
	assert.Equal(t, protoerr.UnknownCommand, atom)
}
