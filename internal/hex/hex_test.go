package hex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUint64(t *testing.T) {
	assert.Equal(t, "0x0", EncodeUint64(0))
	assert.Equal(t, "0x1", EncodeUint64(1))
	assert.Equal(t, "0x10d4f", EncodeUint64(68943))
}

func TestParseUint64(t *testing.T) {
	n, err := ParseUint64("0x10d4f")
	require.NoError(t, err)
	assert.Equal(t, uint64(68943), n)

	n, err = ParseUint64("0X1A")
	require.NoError(t, err)
	assert.Equal(t, uint64(26), n)

	n, err = ParseUint64("0x0")
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, bad := range []string{"", "0x", "10d4f", "0xzz", "latest"} {
		_, err := ParseUint64(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := []byte{0xde, 0xad, 0xbe, 0xef}
	s := Encode(b)
	assert.Equal(t, "0xdeadbeef", s)

	got, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestDecodeOddLength(t *testing.T) {
	got, err := Decode("0xf")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0f}, got)
}
