// internal/stealth/validator.go
package stealth

import (
	"fmt"
	"strings"
	"time"

	"github.com/jennylv001/s1/api/schemas"
)

// Field names used by Inconsistency records and ApplyCorrection.
const (
	FieldUserAgent           = "persona.user_agent"
	FieldPlatform            = "persona.platform"
	FieldLocale              = "persona.locale"
	FieldLanguages           = "persona.languages"
	FieldTimezone            = "persona.timezone"
	FieldHardwareConcurrency = "persona.hardware_concurrency"
	FieldDeviceMemory        = "persona.device_memory"
	FieldScreen              = "persona.screen"
	FieldEngine              = "engine"
	FieldRequiredChannel     = "required_channel"
	FieldScriptParams        = "script_params"
)

// Plausibility bounds. Values outside these ranges are inconsistencies even
// without a cross-field conflict.
const (
	minHardwareConcurrency = 2
	maxHardwareConcurrency = 32
	minScreenWidth         = 800
	maxScreenWidth         = 7680
	minScreenHeight        = 600
	maxScreenHeight        = 4320
)

var plausibleDeviceMemory = []int{2, 4, 8, 16, 32}

// Inconsistency names a field that contradicts the rest of the profile and
// carries a suggested corrected value the resolver can normalize to.
type Inconsistency struct {
	Field     string      `json:"field"`
	Conflicts []string    `json:"conflicts,omitempty"`
	Suggested interface{} `json:"suggested"`
	Message   string      `json:"message"`
}

// Validator checks a resolved profile for internal contradictions across
// every identity-leaking surface. It is a pure function over the profile
// and safe to use standalone for audit tooling.
type Validator struct{}

// NewValidator returns a stateless consistency validator.
func NewValidator() *Validator { return &Validator{} }

// Validate returns every detected inconsistency. Re-validating a profile
// after all suggestions have been applied returns an empty list.
func (v *Validator) Validate(p *schemas.ResolvedStealthProfile) []Inconsistency {
	var out []Inconsistency
	out = append(out, v.validatePersona(&p.Persona)...)
	out = append(out, v.validateLevelCoupling(p)...)
	return out
}

func (v *Validator) validatePersona(p *schemas.Persona) []Inconsistency {
	var out []Inconsistency

	// UA platform token must agree with navigator.platform. The side that
	// still carries a recognizable OS identity is trusted and the other
	// corrected toward it, so applying the suggestions always converges.
	if !p.UserAgentMatchesPlatform() {
		if inferred, ok := platformFromUserAgent(p.UserAgent); ok {
			out = append(out, Inconsistency{
				Field:     FieldPlatform,
				Conflicts: []string{"persona.user_agent"},
				Suggested: inferred,
				Message: fmt.Sprintf("navigator.platform %q does not match the OS token in the User-Agent; expected platform %q",
					p.Platform, inferred),
			})
		} else if p.PlatformToken() != "" {
			out = append(out, Inconsistency{
				Field:     FieldUserAgent,
				Conflicts: []string{"persona.platform"},
				Suggested: canonicalUserAgent(p.Platform),
				Message: fmt.Sprintf("User-Agent %q carries no OS token for platform %q",
					p.UserAgent, p.Platform),
			})
		} else {
			// Neither side is recognizable; normalize both to the most
			// common real-world pair.
			out = append(out,
				Inconsistency{
					Field:     FieldPlatform,
					Conflicts: []string{"persona.user_agent"},
					Suggested: "Win32",
					Message:   fmt.Sprintf("platform %q is not a value Chromium reports", p.Platform),
				},
				Inconsistency{
					Field:     FieldUserAgent,
					Conflicts: []string{"persona.platform"},
					Suggested: canonicalUserAgent("Win32"),
					Message:   fmt.Sprintf("User-Agent %q carries no recognizable OS token", p.UserAgent),
				})
		}
	}

	// Accept-Language is derived from languages[0]; the locale must agree
	// with it or script-visible language leaks against the header.
	if len(p.Languages) == 0 {
		out = append(out, Inconsistency{
			Field:     FieldLanguages,
			Suggested: []string{"en-US", "en"},
			Message:   "persona has no languages; Accept-Language cannot be derived",
		})
	} else if p.Locale != "" && p.Locale != p.Languages[0] {
		out = append(out, Inconsistency{
			Field:     FieldLocale,
			Conflicts: []string{"persona.languages"},
			Suggested: p.Languages[0],
			Message: fmt.Sprintf("locale %q disagrees with languages[0] %q used for the Accept-Language header",
				p.Locale, p.Languages[0]),
		})
	}

	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			out = append(out, Inconsistency{
				Field:     FieldTimezone,
				Suggested: "America/New_York",
				Message:   fmt.Sprintf("timezone %q is not a valid IANA identifier", p.Timezone),
			})
		}
	}

	if p.HardwareConcurrency < minHardwareConcurrency || p.HardwareConcurrency > maxHardwareConcurrency {
		out = append(out, Inconsistency{
			Field:     FieldHardwareConcurrency,
			Suggested: clampInt(p.HardwareConcurrency, minHardwareConcurrency, maxHardwareConcurrency),
			Message: fmt.Sprintf("hardwareConcurrency %d is outside the plausible range [%d, %d]",
				p.HardwareConcurrency, minHardwareConcurrency, maxHardwareConcurrency),
		})
	}

	if !containsInt(plausibleDeviceMemory, p.DeviceMemory) {
		out = append(out, Inconsistency{
			Field:     FieldDeviceMemory,
			Suggested: nearestDeviceMemory(p.DeviceMemory),
			Message: fmt.Sprintf("deviceMemory %dGB is not a value Chromium ever reports %v",
				p.DeviceMemory, plausibleDeviceMemory),
		})
	}

	if sc, ok := correctedScreen(p.Screen); !ok {
		out = append(out, Inconsistency{
			Field:     FieldScreen,
			Suggested: sc,
			Message: fmt.Sprintf("screen %dx%d (avail %dx%d) is outside plausible display geometry",
				p.Screen.Width, p.Screen.Height, p.Screen.AvailWidth, p.Screen.AvailHeight),
		})
	}

	return out
}

func (v *Validator) validateLevelCoupling(p *schemas.ResolvedStealthProfile) []Inconsistency {
	var out []Inconsistency
	if p.Level.AtLeast(schemas.LevelAdvanced) {
		if p.Engine != schemas.EnginePatched {
			out = append(out, Inconsistency{
				Field:     FieldEngine,
				Conflicts: []string{"level"},
				Suggested: schemas.EnginePatched,
				Message:   fmt.Sprintf("level %s requires the patched engine", p.Level),
			})
		}
		if !p.RequiredChannel.IsChromiumFamily() {
			out = append(out, Inconsistency{
				Field:     FieldRequiredChannel,
				Conflicts: []string{"level"},
				Suggested: schemas.ChannelChrome,
				Message: fmt.Sprintf("level %s requires a Chromium-family channel, got %q",
					p.Level, p.RequiredChannel),
			})
		}
	}
	if p.Level == schemas.LevelMilitaryGrade && !p.ScriptParams.Complete() {
		out = append(out, Inconsistency{
			Field:     FieldScriptParams,
			Conflicts: []string{"level"},
			Suggested: schemas.FullEvasionBundle(),
			Message:   "military-grade requires the complete script evasion bundle",
		})
	}
	return out
}

// ApplyCorrection normalizes the offending field to the validator's
// suggested value. Unknown fields are ignored.
func ApplyCorrection(p *schemas.ResolvedStealthProfile, inc Inconsistency) {
	switch inc.Field {
	case FieldUserAgent:
		if s, ok := inc.Suggested.(string); ok {
			p.Persona.UserAgent = s
		}
	case FieldPlatform:
		if s, ok := inc.Suggested.(string); ok {
			p.Persona.Platform = s
		}
	case FieldLocale:
		if s, ok := inc.Suggested.(string); ok {
			p.Persona.Locale = s
		}
	case FieldLanguages:
		if s, ok := inc.Suggested.([]string); ok {
			p.Persona.Languages = append([]string(nil), s...)
			p.Persona.Locale = s[0]
		}
	case FieldTimezone:
		if s, ok := inc.Suggested.(string); ok {
			p.Persona.Timezone = s
		}
	case FieldHardwareConcurrency:
		if n, ok := inc.Suggested.(int); ok {
			p.Persona.HardwareConcurrency = n
		}
	case FieldDeviceMemory:
		if n, ok := inc.Suggested.(int); ok {
			p.Persona.DeviceMemory = n
		}
	case FieldScreen:
		if sc, ok := inc.Suggested.(schemas.ScreenProperties); ok {
			p.Persona.Screen = sc
		}
	case FieldEngine:
		if e, ok := inc.Suggested.(schemas.EngineChoice); ok {
			p.Engine = e
		}
	case FieldRequiredChannel:
		if c, ok := inc.Suggested.(schemas.BrowserChannel); ok {
			p.RequiredChannel = c
		}
	case FieldScriptParams:
		if sp, ok := inc.Suggested.(schemas.ScriptEvasionParams); ok {
			p.ScriptParams = sp
		}
	}
}

// ValidateLaunchConfirmation checks the channel reported by the external
// launcher against the profile's requirement. A mismatch yields a
// LaunchMismatchWarning record, never an error; the session is already
// running and the caller decides severity.
func (v *Validator) ValidateLaunchConfirmation(p *schemas.ResolvedStealthProfile, confirmed schemas.BrowserChannel, pid int) *schemas.LaunchMismatchWarning {
	if p.RequiredChannel == "" || confirmed == p.RequiredChannel {
		return nil
	}
	return &schemas.LaunchMismatchWarning{
		ProfileID:        p.ID,
		RequiredChannel:  p.RequiredChannel,
		ConfirmedChannel: confirmed,
		ProcessID:        pid,
		Observed:         time.Now(),
	}
}

// canonicalUserAgents are known-good UA strings per navigator.platform,
// used when a persona's UA carries no OS token and must be replaced.
var canonicalUserAgents = map[string]string{
	"Win32":        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Win64":        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"MacIntel":     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Linux x86_64": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Linux i686":   "Mozilla/5.0 (X11; Linux i686) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

func canonicalUserAgent(platform string) string {
	if ua, ok := canonicalUserAgents[platform]; ok {
		return ua
	}
	return canonicalUserAgents["Win32"]
}

// platformFromUserAgent maps the UA's OS token back to the matching
// navigator.platform value. The second return reports whether the UA
// carries a recognizable token at all.
func platformFromUserAgent(ua string) (string, bool) {
	switch {
	case strings.Contains(ua, "Windows NT"):
		return "Win32", true
	case strings.Contains(ua, "Macintosh"):
		return "MacIntel", true
	case strings.Contains(ua, "Linux"):
		return "Linux x86_64", true
	}
	return "", false
}

// correctedScreen returns a corrected geometry and whether the original was
// already plausible.
func correctedScreen(s schemas.ScreenProperties) (schemas.ScreenProperties, bool) {
	out := s
	ok := true
	if s.Width < minScreenWidth || s.Width > maxScreenWidth {
		out.Width = clampInt64(s.Width, minScreenWidth, maxScreenWidth)
		ok = false
	}
	if s.Height < minScreenHeight || s.Height > maxScreenHeight {
		out.Height = clampInt64(s.Height, minScreenHeight, maxScreenHeight)
		ok = false
	}
	if out.AvailWidth <= 0 || out.AvailWidth > out.Width {
		out.AvailWidth = out.Width
		if s.AvailWidth != out.AvailWidth {
			ok = false
		}
	}
	if out.AvailHeight <= 0 || out.AvailHeight > out.Height {
		out.AvailHeight = out.Height - 40
		if s.AvailHeight != out.AvailHeight {
			ok = false
		}
	}
	return out, ok
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func nearestDeviceMemory(v int) int {
	best := plausibleDeviceMemory[0]
	for _, m := range plausibleDeviceMemory {
		if abs(m-v) < abs(best-v) {
			best = m
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
