package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterminism(t *testing.T) {
	a := NewGenerator(42)
	b := NewGenerator(42)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(), b.Generate(), "same seed must yield the same persona sequence")
	}

	assert.NotEqual(t, NewGenerator(42).Generate().NoiseSeed, NewGenerator(43).Generate().NoiseSeed,
		"a different seed should diverge")
}

func TestGenerateInternalConsistency(t *testing.T) {
	g := NewGenerator(7)

	for i := 0; i < 50; i++ {
		p := g.Generate()

		assert.True(t, p.UserAgentMatchesPlatform(),
			"UA %q must carry the OS token for platform %q", p.UserAgent, p.Platform)

		require.NotEmpty(t, p.Languages)
		assert.Equal(t, p.Languages[0], p.Locale)

		assert.Contains(t, memoryChoices, p.DeviceMemory)
		assert.GreaterOrEqual(t, p.HardwareConcurrency, 2)
		assert.LessOrEqual(t, p.HardwareConcurrency, 32)

		assert.Greater(t, p.Screen.Width, int64(0))
		assert.Less(t, p.Screen.AvailHeight, p.Screen.Height,
			"availHeight must leave taskbar/dock space")
		assert.Equal(t, p.Screen.Width, p.Screen.AvailWidth)

		require.NotNil(t, p.ClientHintsData)
		assert.NotEmpty(t, p.ClientHintsData.Brands)
		assert.NotEmpty(t, p.WebGLVendor)
		assert.NotEmpty(t, p.WebGLRenderer)
	}
}

func TestVaryMemoryStaysNearBase(t *testing.T) {
	g := NewGenerator(1)
	for i := 0; i < 100; i++ {
		m := g.varyMemory(8)
		assert.GreaterOrEqual(t, m, 4)
		assert.LessOrEqual(t, m, 16)
	}
}

func TestVaryConcurrencyByArchitecture(t *testing.T) {
	g := NewGenerator(1)

	arm := baseProfiles[1] // Apple Silicon profile
	require.Equal(t, "arm", arm.hints.Architecture)
	for i := 0; i < 50; i++ {
		assert.Contains(t, []int{8, 10, 12}, g.varyConcurrency(arm))
	}

	x86 := baseProfiles[0]
	for i := 0; i < 50; i++ {
		c := g.varyConcurrency(x86)
		assert.LessOrEqual(t, c, x86.concurrency*2)
	}
}
