package chain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSui(t *testing.T) {
	p := Sui()
	require.NoError(t, p.Validate())
	assert.Len(t, p.FrameworkAddress, 66)
	assert.True(t, strings.HasSuffix(p.FrameworkAddress, "02"))
	assert.Equal(t, p.FrameworkAddress+"::sui::SUI", p.NativeCoinType())
	assert.Equal(t, "0x"+strings.Repeat("1", 64), p.DefaultAddress)
}

func TestIsFramework(t *testing.T) {
	p := Sui()
	assert.True(t, p.IsFramework(p.FrameworkAddress))
	assert.False(t, p.IsFramework("0x2"))
	assert.False(t, p.IsFramework(strings.ToUpper(p.FrameworkAddress)))

	assert.True(t, p.IsFrameworkLoose("0X"+strings.Repeat("0", 63)+"2"))
	assert.False(t, p.IsFrameworkLoose("0x2"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"sui"}, r.Names())

	_, err := r.Get("devnet")
	assert.ErrorContains(t, err, "unknown network profile")

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `profiles:
  - name: localnet
    clock_id: "0x106"
  - name: other
    framework_address: "0x` + strings.Repeat("0", 63) + `3"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, r.LoadFile(path))

	assert.Equal(t, []string{"localnet", "other", "sui"}, r.Names())
	local, err := r.Get("localnet")
	require.NoError(t, err)
	assert.Equal(t, "0x106", local.ClockID)
	assert.Equal(t, Sui().FrameworkAddress, local.FrameworkAddress)

	other, err := r.Get("other")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(other.NativeCoinType(), "3::sui::SUI"))
}

func TestRegistry_RejectsBadProfile(t *testing.T) {
	r := NewRegistry()
	err := r.Add(Profile{Name: "short", FrameworkAddress: "0x2"})
	assert.Error(t, err)

	bad := WithDefaults(Profile{Name: "short", FrameworkAddress: "0x2"})
	assert.ErrorContains(t, r.Add(bad), "framework_address")
}
