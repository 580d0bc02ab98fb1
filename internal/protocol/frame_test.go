package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"type":"ping"}`),
		[]byte(""),
		[]byte(`{"type":"play_combination","payload":{"cards":[{"rank":14,"suit":2}]}}`),
		bytes.Repeat([]byte("x"), 4096),
	}

	for _, payload := range payloads {
		var buf bytes.Buffer
		require.NoError(t, EncodeFrame(&buf, payload))

		decoded, err := DecodeFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
		assert.Zero(t, buf.Len(), "no trailing bytes")
	}
}

func TestFrameHeaderFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, []byte("hello")))

	// 8 lowercase hex digits, zero padded, then the separator.
	assert.Equal(t, "00000005:hello", buf.String())
}

func TestDecodeSequentialFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, []byte("first")))
	require.NoError(t, EncodeFrame(&buf, []byte("second")))

	a, err := DecodeFrame(&buf)
	require.NoError(t, err)
	b, err := DecodeFrame(&buf)
	require.NoError(t, err)

	assert.Equal(t, "first", string(a))
	assert.Equal(t, "second", string(b))
}

func TestDecodeMalformedLength(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"non-hex digits", "zzzzzzzz:payload"},
		{"missing separator", "000000050hello"},
		{"negative length", "-0000005:hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMalformedLength)
		})
	}
}

func TestDecodeTruncatedFrame(t *testing.T) {
	// Header promises more bytes than the stream holds.
	_, err := DecodeFrame(strings.NewReader("000000ff:short"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	_, err := DecodeFrame(strings.NewReader("0000"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeEmptyStream(t *testing.T) {
	_, err := DecodeFrame(strings.NewReader(""))
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameSizeLimit(t *testing.T) {
	assert := assert.New(t)

	// A length field above the cap is rejected before any allocation.
	_, err := DecodeFrame(strings.NewReader("ffffffff:"))
	assert.ErrorIs(err, ErrFrameTooLarge)

	var buf bytes.Buffer
	err = EncodeFrame(&buf, make([]byte, MaxFrameSize+1))
	assert.ErrorIs(err, ErrFrameTooLarge)
}
