// api/schemas/stealth.go
package schemas

import (
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
)

// -- Stealth Level & Engine Schemas --

// StealthLevel is the ordered protection tier controlling which evasion
// feature groups are active. Higher levels are supersets of lower ones.
type StealthLevel string

const (
	LevelBasic         StealthLevel = "basic"
	LevelAdvanced      StealthLevel = "advanced"
	LevelMilitaryGrade StealthLevel = "military-grade"
)

// Rank returns the ordering of the level (1..3), or 0 for an unknown value.
func (l StealthLevel) Rank() int {
	switch l {
	case LevelBasic:
		return 1
	case LevelAdvanced:
		return 2
	case LevelMilitaryGrade:
		return 3
	default:
		return 0
	}
}

// Valid reports whether the level is a member of the enum domain.
func (l StealthLevel) Valid() bool { return l.Rank() > 0 }

// AtLeast reports whether the level meets or exceeds the given tier.
func (l StealthLevel) AtLeast(other StealthLevel) bool {
	return l.Rank() >= other.Rank() && l.Valid()
}

// EngineChoice selects between the standard automation engine and the
// patched engine with the automation fingerprints compiled out.
type EngineChoice string

const (
	EngineStandard EngineChoice = "standard"
	EnginePatched  EngineChoice = "patched"
)

// BrowserChannel identifies the release channel the external launcher
// should start. Stealth levels above basic require a Chromium-family
// channel because the flag set and the patched engine target Chromium.
type BrowserChannel string

const (
	ChannelChrome       BrowserChannel = "chrome"
	ChannelChromium     BrowserChannel = "chromium"
	ChannelChromeBeta   BrowserChannel = "chrome-beta"
	ChannelChromeCanary BrowserChannel = "chrome-canary"
	ChannelMSEdge       BrowserChannel = "msedge"
	ChannelFirefox      BrowserChannel = "firefox"
	ChannelWebKit       BrowserChannel = "webkit"
)

// IsChromiumFamily reports whether the channel is backed by a Chromium build.
func (c BrowserChannel) IsChromiumFamily() bool {
	switch c {
	case ChannelChrome, ChannelChromium, ChannelChromeBeta, ChannelChromeCanary, ChannelMSEdge:
		return true
	}
	return false
}

// -- Persona Schemas --

// ScreenProperties defines the resolution and depth of the spoofed display.
type ScreenProperties struct {
	Width       int64 `json:"width"`
	Height      int64 `json:"height"`
	AvailWidth  int64 `json:"availWidth,omitempty"`
	AvailHeight int64 `json:"availHeight,omitempty"`
	ColorDepth  int   `json:"colorDepth,omitempty"`
	PixelDepth  int   `json:"pixelDepth,omitempty"`
}

// ClientHints defines the structure for User-Agent Client Hints (Sec-CH-UA).
type ClientHints struct {
	Brands          []*emulation.UserAgentBrandVersion `json:"brands"`
	FullVersionList []*emulation.UserAgentBrandVersion `json:"fullVersionList,omitempty"`
	Mobile          bool                               `json:"mobile"`
	Platform        string                             `json:"platform"`
	PlatformVersion string                             `json:"platformVersion"`
	Architecture    string                             `json:"architecture,omitempty"`
	Model           string                             `json:"model,omitempty"`
	Bitness         string                             `json:"bitness,omitempty"`
}

// Persona defines a mutually consistent synthesized hardware/software
// identity used across every fingerprint-visible surface: HTTP headers,
// script-visible navigator properties, and hardware-derived values.
type Persona struct {
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"` // Legacy JS navigator.platform (e.g., Win32).
	Vendor    string   `json:"vendor,omitempty"`
	Languages []string `json:"languages"`
	Locale    string   `json:"locale,omitempty"`
	Timezone  string   `json:"timezoneId,omitempty"` // IANA identifier.

	// Hardware & Rendering
	HardwareConcurrency int              `json:"hardwareConcurrency"`
	DeviceMemory        int              `json:"deviceMemory"` // GB.
	Screen              ScreenProperties `json:"screen"`
	WebGLVendor         string           `json:"webGLVendor,omitempty"`
	WebGLRenderer       string           `json:"webGLRenderer,omitempty"`
	NoiseSeed           int64            `json:"noiseSeed,omitempty"`

	// Client Hints configuration.
	ClientHintsData *ClientHints `json:"clientHintsData,omitempty"`
}

// AcceptLanguageHeader derives the Accept-Language header value from the
// ordered language list, assigning descending q-values floored at 0.7.
func (p Persona) AcceptLanguageHeader() string {
	if len(p.Languages) == 0 {
		return ""
	}
	formatted := p.Languages[0]
	for i := 1; i < len(p.Languages); i++ {
		qValue := 1.0 - float64(i)*0.1
		if qValue < 0.7 {
			qValue = 0.7
		}
		formatted += fmt.Sprintf(",%s;q=%.1f", p.Languages[i], qValue)
	}
	return formatted
}

// PlatformToken returns the OS token expected in the User-Agent string for
// the persona's navigator.platform value, or "" when the platform is unknown.
func (p Persona) PlatformToken() string {
	switch p.Platform {
	case "Win32", "Win64":
		return "Windows NT"
	case "MacIntel":
		return "Macintosh"
	case "Linux x86_64", "Linux i686":
		return "Linux"
	}
	return ""
}

// UserAgentMatchesPlatform reports whether the UA string carries the OS
// token implied by navigator.platform.
func (p Persona) UserAgentMatchesPlatform() bool {
	token := p.PlatformToken()
	if token == "" {
		return false
	}
	return strings.Contains(p.UserAgent, token)
}

// -- Injected Script Schemas --

// ScriptEvasionParams is the structured bundle of evasion toggles consumed
// by the page-script-injection mechanism. Each field guards one patch group
// in the injected evasion script.
type ScriptEvasionParams struct {
	WebDriver      bool `json:"webdriver"`
	Plugins        bool `json:"plugins"`
	Permissions    bool `json:"permissions"`
	Canvas         bool `json:"canvas"`
	WebGL          bool `json:"webgl"`
	WebRTC         bool `json:"webrtc"`
	AudioContext   bool `json:"audioContext"`
	NavigatorProps bool `json:"navigatorProps"`
	Timing         bool `json:"timing"`
	ClientHints    bool `json:"clientHints"`
}

// FullEvasionBundle returns the complete toggle set required at the
// military-grade level.
func FullEvasionBundle() ScriptEvasionParams {
	return ScriptEvasionParams{
		WebDriver:      true,
		Plugins:        true,
		Permissions:    true,
		Canvas:         true,
		WebGL:          true,
		WebRTC:         true,
		AudioContext:   true,
		NavigatorProps: true,
		Timing:         true,
		ClientHints:    true,
	}
}

// Complete reports whether every evasion toggle is enabled.
func (s ScriptEvasionParams) Complete() bool {
	return s == FullEvasionBundle()
}

// Empty reports whether no evasion toggle is enabled.
func (s ScriptEvasionParams) Empty() bool {
	return s == ScriptEvasionParams{}
}

// -- Resolved Profile Schema --

// ResolvedStealthProfile is the concrete, internally consistent bundle of
// configuration produced by the resolver. It is immutable after resolution;
// any change in requested parameters produces a new profile (see Clone and
// the lineage tracker) rather than mutating this one in place.
type ResolvedStealthProfile struct {
	ID              string              `json:"id"`
	Level           StealthLevel        `json:"level"`
	Engine          EngineChoice        `json:"engine"`
	RequiredChannel BrowserChannel      `json:"requiredChannel,omitempty"`
	Headless        bool                `json:"headless"`
	UserDataDir     string              `json:"userDataDir,omitempty"`
	LaunchFlags     []string            `json:"launchFlags"`
	Persona         Persona             `json:"persona"`
	ScriptParams    ScriptEvasionParams `json:"scriptParams"`

	// EffectivenessScore is a pure function of which feature groups are
	// present; it is computed by the resolver, never set by a caller.
	EffectivenessScore int      `json:"effectivenessScore"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Clone returns a copy of the profile carrying a fresh identity, suitable
// for re-resolution with layered overrides. Slices are copied so the
// original stays untouched.
func (p *ResolvedStealthProfile) Clone(newID string) *ResolvedStealthProfile {
	out := *p
	out.ID = newID
	out.LaunchFlags = append([]string(nil), p.LaunchFlags...)
	out.Warnings = append([]string(nil), p.Warnings...)
	out.Persona.Languages = append([]string(nil), p.Persona.Languages...)
	return &out
}

// -- Lineage Diagnostic Events --

// EventKind tags the structured diagnostic records emitted by the lineage
// tracker and the launch confirmation path.
type EventKind string

const (
	EventConfigDrift    EventKind = "CONFIG_DRIFT_WARNING"
	EventSharingHazard  EventKind = "CONCURRENT_SHARING_HAZARD"
	EventLaunchMismatch EventKind = "LAUNCH_MISMATCH_WARNING"
)

// ConfigDriftWarning records a copy whose stealth-relevant configuration
// diverged from an ancestor that was in concurrent use at the time.
type ConfigDriftWarning struct {
	ParentNodeID string    `json:"parentNodeId"`
	ChildNodeID  string    `json:"childNodeId"`
	Fields       []string  `json:"fields"`
	Observed     time.Time `json:"observed"`
}

// Kind implements the event tag.
func (ConfigDriftWarning) Kind() EventKind { return EventConfigDrift }

// ConcurrentSharingHazard records two distinct owners claiming the same
// profile node without an intervening release. It is diagnostic only; the
// tracker never prevents the second claim.
type ConcurrentSharingHazard struct {
	NodeID        string    `json:"nodeId"`
	HolderToken   string    `json:"holderToken"`
	ClaimantToken string    `json:"claimantToken"`
	Observed      time.Time `json:"observed"`
}

// Kind implements the event tag.
func (ConcurrentSharingHazard) Kind() EventKind { return EventSharingHazard }

// LaunchMismatchWarning records a launcher confirmation whose channel does
// not match the profile's required channel.
type LaunchMismatchWarning struct {
	ProfileID        string         `json:"profileId"`
	RequiredChannel  BrowserChannel `json:"requiredChannel"`
	ConfirmedChannel BrowserChannel `json:"confirmedChannel"`
	ProcessID        int            `json:"processId"`
	Observed         time.Time      `json:"observed"`
}

// Kind implements the event tag.
func (LaunchMismatchWarning) Kind() EventKind { return EventLaunchMismatch }

// Event is implemented by every structured diagnostic record.
type Event interface {
	Kind() EventKind
}
