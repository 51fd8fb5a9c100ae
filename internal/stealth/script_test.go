package stealth

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jennylv001/s1/api/schemas"
)

func TestRenderEvasionScript(t *testing.T) {
	p := schemas.Persona{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		Platform:            "Win32",
		Languages:           []string{"en-US", "en"},
		Timezone:            "America/New_York",
		HardwareConcurrency: 8,
		DeviceMemory:        8,
		WebGLVendor:         "Test Vendor",
		WebGLRenderer:       "Test Renderer",
		Screen:              schemas.ScreenProperties{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040},
	}

	t.Run("Empty bundle yields no payload", func(t *testing.T) {
		script, err := RenderEvasionScript(p, schemas.ScriptEvasionParams{})
		require.NoError(t, err)
		assert.Empty(t, script)
	})

	t.Run("Full bundle embeds persona and toggles", func(t *testing.T) {
		script, err := RenderEvasionScript(p, schemas.FullEvasionBundle())
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(script, "const S1_PERSONA = "))
		assert.Contains(t, script, "const S1_EVASIONS = ")
		assert.Contains(t, script, `"Test Renderer"`)
		assert.Contains(t, script, `"webdriver":true`)
	})

	t.Run("Payload parses as JavaScript", func(t *testing.T) {
		script, err := RenderEvasionScript(p, schemas.FullEvasionBundle())
		require.NoError(t, err)

		_, err = goja.Compile("evasions.js", script, true)
		assert.NoError(t, err, "the rendered payload must be syntactically valid")
	})
}
