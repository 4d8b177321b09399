package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeScalars(t *testing.T) {
	enc := NewEncoder()

	v, err := enc.Encode(Atom("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = enc.Encode(Int(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = enc.Encode(Var{Name: "X"})
	require.NoError(t, err)
	assert.Equal(t, "X", v)
}

func TestEncodeCompound(t *testing.T) {
	enc := NewEncoder()
	v, err := enc.Encode(Compound{Functor: "threads", Args: []Term{Atom("c1"), Atom("g1")}})
	require.NoError(t, err)
	assert.Equal(t, jsonFunctor{Functor: "threads", Args: []any{"c1", "g1"}}, v)
}

func TestEncodeBinding(t *testing.T) {
	enc := NewEncoder()
	v, err := enc.Encode(Binding{Name: "X", Value: Atom("a")})
	require.NoError(t, err)
	assert.Equal(t, jsonFunctor{Functor: "=", Args: []any{"X", "a"}}, v)
}

func TestEncodeAnswerZeroBindings(t *testing.T) {
	enc := NewEncoder()
	v, err := enc.EncodeAnswer(Answer{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)
}

func TestEncodeAnswerWithBindings(t *testing.T) {
	enc := NewEncoder()
	v, err := enc.EncodeAnswer(Answer{{Name: "X", Value: Atom("a")}})
	require.NoError(t, err)
	assert.Equal(t, []any{jsonFunctor{Functor: "=", Args: []any{"X", "a"}}}, v)
}
