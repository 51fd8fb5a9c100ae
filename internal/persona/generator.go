// internal/persona/generator.go
package persona

import (
	"math/rand"
	"sync"

	"github.com/chromedp/cdproto/emulation"

	"github.com/jennylv001/s1/api/schemas"
)

// baseProfile is a curated, internally consistent hardware/software
// identity. Variations are applied on top of these rather than sampling
// free-form values, so every generated persona stays plausible for its
// platform family.
type baseProfile struct {
	userAgent     string
	platform      string
	vendor        string
	languages     []string
	timezone      string
	concurrency   int
	memoryGB      int
	screen        schemas.ScreenProperties
	webGLVendor   string
	webGLRenderer string
	hints         schemas.ClientHints
}

var baseProfiles = []baseProfile{
	{
		userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:    "Win32",
		vendor:      "Google Inc.",
		languages:   []string{"en-US", "en"},
		timezone:    "America/New_York",
		concurrency: 8,
		memoryGB:    8,
		screen: schemas.ScreenProperties{
			Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040,
			ColorDepth: 24, PixelDepth: 24,
		},
		webGLVendor:   "Google Inc. (Intel)",
		webGLRenderer: "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		hints: schemas.ClientHints{
			Brands: []*emulation.UserAgentBrandVersion{
				{Brand: "Chromium", Version: "125"},
				{Brand: "Google Chrome", Version: "125"},
				{Brand: ";Not A Brand", Version: "99"},
			},
			FullVersionList: []*emulation.UserAgentBrandVersion{
				{Brand: "Chromium", Version: "125.0.6422.142"},
				{Brand: "Google Chrome", Version: "125.0.6422.142"},
				{Brand: ";Not A Brand", Version: "99.0.0.0"},
			},
			Platform:        "Windows",
			PlatformVersion: "10.0.0",
			Architecture:    "x86",
			Bitness:         "64",
		},
	},
	{
		userAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:    "MacIntel",
		vendor:      "Google Inc.",
		languages:   []string{"en-US", "en"},
		timezone:    "America/Los_Angeles",
		concurrency: 10,
		memoryGB:    16,
		screen: schemas.ScreenProperties{
			Width: 1728, Height: 1117, AvailWidth: 1728, AvailHeight: 1079,
			ColorDepth: 24, PixelDepth: 24,
		},
		webGLVendor:   "Google Inc. (Apple)",
		webGLRenderer: "ANGLE (Apple, Apple M1 Pro, Metal)",
		hints: schemas.ClientHints{
			Brands: []*emulation.UserAgentBrandVersion{
				{Brand: "Chromium", Version: "125"},
				{Brand: "Google Chrome", Version: "125"},
				{Brand: ";Not A Brand", Version: "99"},
			},
			FullVersionList: []*emulation.UserAgentBrandVersion{
				{Brand: "Chromium", Version: "125.0.6422.142"},
				{Brand: "Google Chrome", Version: "125.0.6422.142"},
				{Brand: ";Not A Brand", Version: "99.0.0.0"},
			},
			Platform:        "macOS",
			PlatformVersion: "10.15.7",
			Architecture:    "arm",
			Bitness:         "64",
		},
	},
	{
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:    "Linux x86_64",
		vendor:      "Google Inc.",
		languages:   []string{"en-US", "en"},
		timezone:    "Europe/Berlin",
		concurrency: 8,
		memoryGB:    16,
		screen: schemas.ScreenProperties{
			Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1053,
			ColorDepth: 24, PixelDepth: 24,
		},
		webGLVendor:   "Google Inc. (NVIDIA Corporation)",
		webGLRenderer: "ANGLE (NVIDIA Corporation, NVIDIA GeForce GTX 1660/PCIe/SSE2, OpenGL 4.5.0)",
		hints: schemas.ClientHints{
			Brands: []*emulation.UserAgentBrandVersion{
				{Brand: "Chromium", Version: "125"},
				{Brand: "Google Chrome", Version: "125"},
				{Brand: ";Not A Brand", Version: "99"},
			},
			FullVersionList: []*emulation.UserAgentBrandVersion{
				{Brand: "Chromium", Version: "125.0.6422.142"},
				{Brand: "Google Chrome", Version: "125.0.6422.142"},
				{Brand: ";Not A Brand", Version: "99.0.0.0"},
			},
			Platform:        "Linux",
			PlatformVersion: "6.5.0",
			Architecture:    "x86",
			Bitness:         "64",
		},
	},
}

// memoryChoices is the set of plausible navigator.deviceMemory values.
// Chromium only ever reports powers of two from this set.
var memoryChoices = []int{2, 4, 8, 16, 32}

// Generator produces self-consistent personas from a seed. It is safe for
// concurrent use; the rng is the only shared state and is guarded.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a persona generator seeded for reproducibility.
// The same seed yields the same persona sequence.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate synthesizes a persona from one of the curated base profiles with
// bounded hardware and screen variations applied on top.
func (g *Generator) Generate() schemas.Persona {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := baseProfiles[g.rng.Intn(len(baseProfiles))]
	hints := base.hints

	p := schemas.Persona{
		UserAgent:           base.userAgent,
		Platform:            base.platform,
		Vendor:              base.vendor,
		Languages:           append([]string(nil), base.languages...),
		Locale:              base.languages[0],
		Timezone:            base.timezone,
		HardwareConcurrency: g.varyConcurrency(base),
		DeviceMemory:        g.varyMemory(base.memoryGB),
		Screen:              g.varyScreen(base.screen),
		WebGLVendor:         base.webGLVendor,
		WebGLRenderer:       base.webGLRenderer,
		NoiseSeed:           g.rng.Int63(),
		ClientHintsData:     &hints,
	}
	return p
}

// varyMemory picks a plausible deviceMemory near the base value, never more
// than one power-of-two step away.
func (g *Generator) varyMemory(base int) int {
	var candidates []int
	for _, m := range memoryChoices {
		if m >= base/2 && m <= base*2 {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return base
	}
	return candidates[g.rng.Intn(len(candidates))]
}

// varyConcurrency picks a core count realistic for the platform family.
// Intel desktop parts cluster at 4-16 cores, Apple Silicon at 8-12.
func (g *Generator) varyConcurrency(base baseProfile) int {
	var options []int
	switch base.hints.Architecture {
	case "arm":
		options = []int{8, 10, 12}
	default:
		options = []int{4, 6, 8, 12, 16}
	}
	var candidates []int
	for _, c := range options {
		if c <= base.concurrency*2 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return base.concurrency
	}
	return candidates[g.rng.Intn(len(candidates))]
}

// varyScreen jitters the resolution between common variants for the base
// width, keeping availHeight below height to leave taskbar/dock space.
func (g *Generator) varyScreen(base schemas.ScreenProperties) schemas.ScreenProperties {
	widths := []int64{base.Width}
	heights := []int64{base.Height}
	switch base.Width {
	case 1920:
		heights = []int64{1080, 1200}
	case 1440:
		widths = []int64{1440, 1536}
		heights = []int64{900, 960}
	}

	out := base
	out.Width = widths[g.rng.Intn(len(widths))]
	out.Height = heights[g.rng.Intn(len(heights))]
	out.AvailWidth = out.Width
	out.AvailHeight = out.Height - 40
	return out
}
