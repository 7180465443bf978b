package flags

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

func TestSnapshot(t *testing.T) {
	p := NewProvider("US", []string{"eu", " "}, []string{"lamination", pricing.FlagMinimumOrder})

	def, err := p.Snapshot("")
	require.NoError(t, err)
	require.Equal(t, "us", def.Region())
	require.True(t, def.Enabled("lamination"))
	require.True(t, def.Enabled(pricing.FlagMinimumOrder))

	eu, err := p.Snapshot("EU")
	require.NoError(t, err)
	require.Equal(t, "eu", eu.Region())
	require.Equal(t, def.Flags(), eu.Flags())

	_, err = p.Snapshot("mars")
	require.ErrorIs(t, err, ErrUnknownRegion)
}

func TestRestore(t *testing.T) {
	ctx := Restore("ca", []string{"b", "a"})
	require.Equal(t, "ca", ctx.Region())
	require.Equal(t, []string{"a", "b"}, ctx.Flags())
}
