package enum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	type EnumString string
	type OtherEnum string

	bar := New(EnumString("bar"))
	require.Equal(t, EnumString("bar"), bar)
	New(OtherEnum("baz"))

	v, err := ToEnum[EnumString]("bar")
	require.NoError(t, err)
	require.Equal(t, bar, v)

	_, err = ToEnum[EnumString]("Bar")
	require.Error(t, err)

	// Members of another type are not visible.
	_, err = ToEnum[EnumString]("baz")
	require.Error(t, err)

	type Unregistered string
	_, err = ToEnum[Unregistered]("bar")
	require.Error(t, err)
}
