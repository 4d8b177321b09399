package wire

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/codefionn/queryserverd/internal/protoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"run(member(X,[a,b,c]), -1)",
		strings.Repeat("x", 10_000),
	}

	for _, payload := range cases {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, []byte(payload)))

		got, err := Decode(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
	}
}

func TestEncodeDeclaredLengthMatchesPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []byte("hi")))

	// "hi" + ".\n" = 4 bytes, so the frame is "4.\nhi.\n"
	assert.Equal(t, "4.\nhi.\n", buf.String())
}

func TestDecodeNonNumericLengthIsFrameError(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("abc\nhi.\n"))
	_, err := Decode(r)
	require.Error(t, err)
	atom, ok := protoerr.AsAtom(err)
	require.True(t, ok)
	assert.Equal(t, protoerr.FrameError, atom)
}

func TestDecodePrematureEOFIsConnectionClosed(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("100.\nshort.\n"))
	_, err := Decode(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, protoerr.ErrConnectionClosed())
}

func TestDecodeMissingTrailerIsFrameError(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("5.\nhello"))
	_, err := Decode(r)
	require.Error(t, err)
	atom, ok := protoerr.AsAtom(err)
	require.True(t, ok)
	assert.Equal(t, protoerr.FrameError, atom)
}

func TestDecodeSkipsLeadingHeartbeatBytes(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("...4.\nhi.\n"))
	got, err := Decode(r)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestWriteHeartbeatIsSingleRawByte(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeartbeat(&buf))
	assert.Equal(t, ".", buf.String())
}
