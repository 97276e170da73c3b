package charsets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_UTF8Passthrough(t *testing.T) {
	out, err := Decode([]byte("héllo"), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "héllo", out)
}

func TestDecode_Windows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in windows-1252
	out, err := Decode([]byte{0x93, 'h', 'i', 0x94}, "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "“hi”", out)
}

func TestDecode_ISO88591(t *testing.T) {
	// 0xE9 is é in iso-8859-1
	out, err := Decode([]byte{'c', 'a', 'f', 0xE9}, "ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "café", out, "Charset names are matched case-insensitively")
}

func TestDecode_EmptyNameDetects(t *testing.T) {
	out, err := Decode([]byte("plain ascii text"), "")
	require.NoError(t, err)
	assert.Equal(t, "plain ascii text", out)
}

func TestDecode_UnknownCharsetFallsBackToDetection(t *testing.T) {
	out, _ := Decode([]byte("still readable"), "x-no-such-charset")
	assert.Equal(t, "still readable", out, "Unknown charsets degrade to best-effort output, never to data loss")
}
