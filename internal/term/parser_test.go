package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAtomsAndNumbers(t *testing.T) {
	p := NewParser()

	got, names, err := p.Parse("member(X,[a,b,c]).\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, names)
	assert.Equal(t, Compound{Functor: "member", Args: []Term{
		Var{Name: "X"},
		List{Atom("a"), Atom("b"), Atom("c")},
	}}, got)
}

func TestParseNegativeInteger(t *testing.T) {
	p := NewParser()
	got, _, err := p.Parse("-1")
	require.NoError(t, err)
	assert.Equal(t, Int(-1), got)
}

func TestParseFloat(t *testing.T) {
	p := NewParser()
	got, _, err := p.Parse("3.5")
	require.NoError(t, err)
	assert.Equal(t, Float(3.5), got)
}

func TestParseString(t *testing.T) {
	p := NewParser()
	got, _, err := p.Parse(`"hello world"`)
	require.NoError(t, err)
	assert.Equal(t, String("hello world"), got)
}

func TestParseBoolKeywords(t *testing.T) {
	p := NewParser()

	got, _, err := p.Parse("true")
	require.NoError(t, err)
	assert.Equal(t, Bool(true), got)

	got, _, err = p.Parse("false")
	require.NoError(t, err)
	assert.Equal(t, Bool(false), got)
}

func TestParseZeroArityCommand(t *testing.T) {
	p := NewParser()
	got, names, err := p.Parse("cancel_async")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, Atom("cancel_async"), got)
}

func TestParseRepeatedVariableSharesName(t *testing.T) {
	p := NewParser()
	_, names, err := p.Parse("=(X,X)")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, names)
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	p := NewParser()
	_, _, err := p.Parse("foo(X) bar")
	require.Error(t, err)
}

func TestParseUnterminatedListIsError(t *testing.T) {
	p := NewParser()
	_, _, err := p.Parse("[1,2")
	require.Error(t, err)
}
