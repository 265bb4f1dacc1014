package optional

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromPtr(t *testing.T) {
	t.Parallel()
	require.False(t, FromPtr[string](nil).IsPresent())
	v := "42"
	o := FromPtr(&v)
	v = "changed"
	require.True(t, o.IsPresent())
	require.Equal(t, "42", o.Value())
	require.Equal(t, "", None[string]().Value())
}
