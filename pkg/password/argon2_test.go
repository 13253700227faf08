package password_test

import (
	"context"
	"testing"

	"github.com/questx-lab/authserver/pkg/password"
	"github.com/stretchr/testify/require"
)

func newTestHasher(t *testing.T) password.Hasher {
	hasher, err := password.NewArgon2Hasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	return hasher
}

func Test_argon2Hasher(t *testing.T) {
	ctx := context.Background()
	hasher := newTestHasher(t)

	salt, hash, err := hasher.Hash(ctx, "Correct-Horse1")
	require.NoError(t, err)
	require.NotEmpty(t, salt)
	require.NotEmpty(t, hash)

	ok, err := hasher.Compare(ctx, "Correct-Horse1", salt, hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = hasher.Compare(ctx, "Correct-Horse2", salt, hash)
	require.NoError(t, err)
	require.False(t, ok)

	salt2, hash2, err := hasher.Hash(ctx, "Correct-Horse1")
	require.NoError(t, err)
	require.NotEqual(t, salt, salt2)
	require.NotEqual(t, hash, hash2)
}

func Test_argon2Hasher_InvalidInput(t *testing.T) {
	ctx := context.Background()
	hasher := newTestHasher(t)

	_, err := hasher.Compare(ctx, "x", "not base64!", "aGFzaA==")
	require.Error(t, err)

	_, err = hasher.Compare(ctx, "x", "c2FsdA==", "c2hvcnQ=")
	require.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = hasher.Hash(cancelled, "x")
	require.ErrorIs(t, err, context.Canceled)
}

func Test_NewArgon2Hasher_InvalidConfig(t *testing.T) {
	_, err := password.NewArgon2Hasher(password.Config{})
	require.Error(t, err)

	_, err = password.NewArgon2Hasher(password.DefaultConfig())
	require.NoError(t, err)
}
