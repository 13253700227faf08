package errorx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := errorx.New(errorx.AlreadyExists, "Email address %s already in use", "a@b.com")
	require.Equal(t, errorx.AlreadyExists, err.Code)
	require.Equal(t, "Email address a@b.com already in use", err.Error())
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", errorx.New(errorx.Unauthenticated, "Expired refresh token"))

	require.True(t, errors.Is(err, errorx.Error{Code: errorx.Unauthenticated}))
	require.False(t, errors.Is(err, errorx.Error{Code: errorx.Internal}))

	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, "Expired refresh token", errx.Message)
}
