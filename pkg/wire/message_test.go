package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	payload := []byte("hello")
	m := NewMessage(TestNet, CmdPing, payload)

	assert.Equal(t, uint32(len(payload)), m.Length)
	assert.Equal(t, checksum(payload), m.Checksum)
}

func TestMessageEncodeDecode(t *testing.T) {
	m := NewMessage(TestNet, CmdVersion, []byte("payload-bytes"))

	buf := &bytes.Buffer{}
	require.NoError(t, m.Encode(buf))

	md := &Message{}
	require.NoError(t, md.Decode(buf))

	assert.Equal(t, m.Magic, md.Magic)
	assert.Equal(t, m.Command, md.Command)
	assert.Equal(t, m.Payload, md.Payload)
}

func TestMessageInvalidChecksum(t *testing.T) {
	m := NewMessage(TestNet, CmdPing, []byte("x"))
	m.Checksum = 1337

	buf := &bytes.Buffer{}
	require.NoError(t, m.Encode(buf))

	md := &Message{}
	err := md.Decode(buf)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestMessageCommandPadding(t *testing.T) {
	m := NewMessage(TestNet, CmdPing, nil)
	buf := &bytes.Buffer{}
	require.NoError(t, m.Encode(buf))

	// command field is exactly CommandSize bytes, NUL padded.
	raw := buf.Bytes()
	cmdField := raw[4 : 4+CommandSize]
	assert.Equal(t, "ping", string(bytes.TrimRight(cmdField, "\x00")))
	assert.Len(t, cmdField, CommandSize)
}
