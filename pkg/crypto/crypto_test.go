package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString()
	require.NoError(t, err)
	b, err := GenerateRandomString()
	require.NoError(t, err)

	require.NotEqual(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestSHA256(t *testing.T) {
	require.Equal(t, SHA256([]byte("foo")), SHA256([]byte("foo")))
	require.NotEqual(t, SHA256([]byte("foo")), SHA256([]byte("bar")))
}

func TestEqual(t *testing.T) {
	require.True(t, Equal("nonce", "nonce"))
	require.False(t, Equal("nonce", "nonc"))
	require.False(t, Equal("", "nonce"))
}
