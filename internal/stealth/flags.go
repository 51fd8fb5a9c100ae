// internal/stealth/flags.go
package stealth

// Chromium launch flags grouped by concern. The groups are merged and
// deduplicated in a stable order so a resolved profile's flag list is
// reproducible run to run.

// coreStealthFlags strip the switches that advertise automation control.
var coreStealthFlags = []string{
	"--disable-blink-features=AutomationControlled",
	"--exclude-switches=enable-automation",
}

// processAndSecurityFlags relax process isolation behaviors that interfere
// with instrumentation or leak the automated origin of the session.
var processAndSecurityFlags = []string{
	"--disable-features=IsolateOrigins,site-per-process,TranslateUI,CertificateTransparencyComponentUpdater,LazyFrameLoading,OutOfBlinkCors,ImprovedCookieControls,PrivacySandboxSettings4,HeavyAdIntervention,HeavyAdPrivacyMitigations",
	"--disable-ipc-flooding-protection",
	"--disable-renderer-backgrounding",
	"--disable-features=BlockInsecurePrivateNetworkRequests",
}

// fingerprintProtectionFlags close the channels that expose hardware or
// network identity. WebRTC parameter spoofing beyond this is handled by the
// injected script, not flags.
var fingerprintProtectionFlags = []string{
	"--disable-features=AudioServiceOutOfProcess",
	"--force-webrtc-ip-handling-policy=disable_non_proxied_udp",
	"--disable-webrtc-encryption",
}

// telemetryReductionFlags silence background services whose traffic or
// side effects distinguish a managed browser from a user-launched one.
var telemetryReductionFlags = []string{
	"--disable-logging",
	"--no-first-run",
	"--no-default-browser-check",
	"--disable-background-timer-throttling",
	"--disable-features=CalculateNativeWinOcclusion",
	"--disable-hang-monitor",
	"--disable-sync",
	"--disable-translate",
	"--metrics-recording-only",
	"--disable-default-apps",
	"--no-pings",
	"--disable-breakpad",
	"--disable-cloud-import",
	"--disable-gesture-typing",
	"--disable-offer-store-unmasked-wallet-cards",
	"--disable-offer-upload-credit-cards",
	"--disable-print-preview",
	"--disable-wake-on-wifi",
	"--disable-notifications",
	"--disable-prompt-on-repost",
	"--disable-background-networking",
	"--disable-client-side-phishing-detection",
	"--disable-component-cloud-policy",
	"--disable-component-update",
	"--disable-domain-reliability",
	"--disable-password-generation",
	"--disable-plugins-discovery",
	"--disable-renderer-accessibility",
	"--disable-search-geolocation-disclosure",
	"--disable-shader-name-hashing",
	"--disable-smooth-scrolling",
	"--disable-suggestions-ui",
	"--disable-sync-preferences",
	"--disable-tab-for-desktop-share",
	"--disable-threaded-animation",
	"--disable-threaded-scrolling",
	"--disable-touch-adjustment",
	"--disable-touch-drag-drop",
	"--disable-touch-editing",
	"--disable-usb-keyboard-detect",
	"--disable-v8-idle-notification-after-commit",
	"--disable-vibrate",
	"--disable-xss-auditor",
	"--disable-zero-suggest",
	"--hide-scrollbars",
	"--disable-features=IdleDetection",
	"--disable-features=GlobalMediaControls,GlobalMediaControlsPlayPause,GlobalMediaControlsPictureInPicture,GlobalMediaControlsSeekBar,GlobalMediaControlsModernUI",
	"--disable-features=MediaEngagementBypassAutoplayPolicies,NetworkTimeServiceQuerying",
}

// gpuRenderingFlags keep real GPU rendering enabled so WebGL parameter
// spoofing in the injected script has something genuine to sit on top of.
// Outright disabling the GPU is itself a strong fingerprint.
var gpuRenderingFlags = []string{
	"--ignore-gpu-blocklist",
	"--enable-webgl",
	"--force-color-profile=srgb",
}

// StealthFlagSet returns the full flag set applied at Advanced and above,
// deduplicated with first-occurrence order preserved.
func StealthFlagSet() []string {
	groups := [][]string{
		coreStealthFlags,
		processAndSecurityFlags,
		fingerprintProtectionFlags,
		telemetryReductionFlags,
		gpuRenderingFlags,
	}
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	return dedupeFlags(all)
}

// DockerFlags returns the additional flags required when the browser runs
// inside a container without a usable sandbox.
func DockerFlags() []string {
	return []string{
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu-sandbox",
	}
}

// dedupeFlags removes duplicates while preserving the first occurrence, so
// flag order is stable for reproducibility.
func dedupeFlags(flags []string) []string {
	seen := make(map[string]struct{}, len(flags))
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
