package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jennylv001/s1/api/schemas"
	"github.com/jennylv001/s1/internal/lineage"
	"github.com/jennylv001/s1/internal/persona"
)

func newTestResolver(t *testing.T) (*Resolver, *lineage.Tracker) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	tracker := lineage.NewTracker(logger)
	return NewResolver(persona.NewGenerator(1), tracker, logger), tracker
}

func TestResolveEffectivenessByLevel(t *testing.T) {
	r, _ := newTestResolver(t)

	cases := []struct {
		level schemas.StealthLevel
		score int
	}{
		{schemas.LevelBasic, 10},
		{schemas.LevelAdvanced, 90},
		{schemas.LevelMilitaryGrade, 100},
	}
	for _, tc := range cases {
		t.Run(string(tc.level), func(t *testing.T) {
			p, err := r.Resolve(tc.level, Overrides{})
			require.NoError(t, err)
			assert.Equal(t, tc.score, p.EffectivenessScore)
		})
	}
}

func TestResolveBasic(t *testing.T) {
	r, _ := newTestResolver(t)

	p, err := r.Resolve(schemas.LevelBasic, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, schemas.EnginePatched, p.Engine, "the engine switch is the one basic feature")
	assert.Empty(t, p.LaunchFlags)
	assert.Empty(t, p.RequiredChannel)
	assert.True(t, p.ScriptParams.Empty())
	assert.NotEmpty(t, p.ID)
}

func TestResolveAdvanced(t *testing.T) {
	r, _ := newTestResolver(t)

	p, err := r.Resolve(schemas.LevelAdvanced, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, schemas.EnginePatched, p.Engine)
	assert.Equal(t, schemas.ChannelChrome, p.RequiredChannel)
	assert.Equal(t, StealthFlagSet(), p.LaunchFlags)
	assert.True(t, p.ScriptParams.Empty(), "the full script bundle is military-grade only")
	assert.True(t, p.Persona.UserAgentMatchesPlatform())
}

func TestResolveMilitaryGrade(t *testing.T) {
	r, _ := newTestResolver(t)

	p, err := r.Resolve(schemas.LevelMilitaryGrade, Overrides{})
	require.NoError(t, err)

	assert.True(t, p.ScriptParams.Complete())
	assert.Equal(t, schemas.ChannelChrome, p.RequiredChannel)
	assert.NotEmpty(t, p.LaunchFlags)

	// A fully resolved profile must already be internally consistent.
	assert.Empty(t, NewValidator().Validate(p))
}

func TestResolveInvalidLevel(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.Resolve(schemas.StealthLevel("ultra"), Overrides{})
	require.Error(t, err)
	var invalidErr *InvalidLevelError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, schemas.StealthLevel("ultra"), invalidErr.Level)
}

func TestResolveHeadlessKeptWithWarning(t *testing.T) {
	r, _ := newTestResolver(t)

	headless := true
	p, err := r.Resolve(schemas.LevelMilitaryGrade, Overrides{Headless: &headless})
	require.NoError(t, err)

	assert.True(t, p.Headless, "an explicit headless override is honored")
	assert.Equal(t, 100, p.EffectivenessScore, "the warning does not change the score")
	require.NotEmpty(t, p.Warnings)
	found := false
	for _, w := range p.Warnings {
		if strings.Contains(w, "headless") {
			found = true
		}
	}
	assert.True(t, found, "warnings %v should mention headless", p.Warnings)
}

func TestResolveNonChromiumChannelCorrected(t *testing.T) {
	r, _ := newTestResolver(t)

	t.Run("Corrected at advanced", func(t *testing.T) {
		p, err := r.Resolve(schemas.LevelAdvanced, Overrides{Channel: schemas.ChannelFirefox})
		require.NoError(t, err)
		assert.Equal(t, schemas.ChannelChrome, p.RequiredChannel)
		assert.NotEmpty(t, p.Warnings)
	})

	t.Run("Honored at basic", func(t *testing.T) {
		p, err := r.Resolve(schemas.LevelBasic, Overrides{Channel: schemas.ChannelFirefox})
		require.NoError(t, err)
		assert.Equal(t, schemas.ChannelFirefox, p.RequiredChannel)
	})
}

func TestResolveCustomFlagsDeduped(t *testing.T) {
	r, _ := newTestResolver(t)

	p, err := r.Resolve(schemas.LevelAdvanced, Overrides{
		CustomFlags: []string{"--disable-logging", "--my-flag", "--my-flag"},
	})
	require.NoError(t, err)

	seen := map[string]int{}
	for _, f := range p.LaunchFlags {
		seen[f]++
	}
	assert.Equal(t, 1, seen["--disable-logging"])
	assert.Equal(t, 1, seen["--my-flag"])
}

func TestResolvePersonaReuse(t *testing.T) {
	r, _ := newTestResolver(t)

	custom := schemas.Persona{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		Platform:            "Win32",
		Languages:           []string{"de-DE", "de"},
		Locale:              "de-DE",
		Timezone:            "Europe/Berlin",
		HardwareConcurrency: 8,
		DeviceMemory:        16,
		Screen:              schemas.ScreenProperties{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040},
	}

	p, err := r.Resolve(schemas.LevelAdvanced, Overrides{Persona: &custom})
	require.NoError(t, err)
	assert.Equal(t, custom.UserAgent, p.Persona.UserAgent)
	assert.Equal(t, []string{"de-DE", "de"}, p.Persona.Languages)

	// The profile holds its own copy of the language list.
	p.Persona.Languages[0] = "xx"
	assert.Equal(t, "de-DE", custom.Languages[0])
}

func TestResolveNormalizesTokenlessUserAgent(t *testing.T) {
	r, _ := newTestResolver(t)

	custom := schemas.Persona{
		UserAgent:           "CustomAgent/1.0",
		Platform:            "Win32",
		Languages:           []string{"en-US", "en"},
		Locale:              "en-US",
		Timezone:            "America/New_York",
		HardwareConcurrency: 8,
		DeviceMemory:        8,
		Screen:              schemas.ScreenProperties{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040},
	}

	p, err := r.Resolve(schemas.LevelAdvanced, Overrides{Persona: &custom})
	require.NoError(t, err)

	assert.True(t, p.Persona.UserAgentMatchesPlatform(),
		"the UA must be replaced with one matching the platform")
	assert.NotEmpty(t, p.Warnings)
	assert.Empty(t, NewValidator().Validate(p),
		"a resolved profile must always re-validate clean")
}

func TestDeriveRegistersLineage(t *testing.T) {
	r, tracker := newTestResolver(t)

	parent, err := r.Resolve(schemas.LevelAdvanced, Overrides{})
	require.NoError(t, err)

	parentNodeID, ok := tracker.NodeForProfile(parent.ID)
	require.True(t, ok, "Resolve must register a lineage root")

	child, err := r.Derive(parentNodeID, parent, Overrides{UserDataDir: "/tmp/clone"},
		lineage.CreationSite{Location: "resolver_test.go", Operation: "TestDeriveRegistersLineage"})
	require.NoError(t, err)

	assert.NotEqual(t, parent.ID, child.ID, "a derivation is a new profile")
	assert.Equal(t, parent.Level, child.Level)
	assert.Equal(t, parent.Persona.UserAgent, child.Persona.UserAgent)
	assert.Equal(t, "/tmp/clone", child.UserDataDir)
	assert.Empty(t, parent.UserDataDir, "the parent is never mutated")
}

func TestDeriveUnknownParent(t *testing.T) {
	r, _ := newTestResolver(t)

	parent, err := r.Resolve(schemas.LevelBasic, Overrides{})
	require.NoError(t, err)

	_, err = r.Derive("no-such-node", parent, Overrides{}, lineage.CreationSite{})
	assert.Error(t, err)
}

func TestConfirmLaunch(t *testing.T) {
	r, tracker := newTestResolver(t)

	p, err := r.Resolve(schemas.LevelAdvanced, Overrides{})
	require.NoError(t, err)

	t.Run("Match", func(t *testing.T) {
		assert.Nil(t, r.ConfirmLaunch(p, schemas.ChannelChrome, 4242))
	})

	t.Run("Mismatch records event", func(t *testing.T) {
		before := len(tracker.Events())
		w := r.ConfirmLaunch(p, schemas.ChannelFirefox, 4243)
		require.NotNil(t, w)
		assert.Equal(t, schemas.ChannelChrome, w.RequiredChannel)
		assert.Equal(t, schemas.ChannelFirefox, w.ConfirmedChannel)
		assert.Equal(t, 4243, w.ProcessID)
		assert.Len(t, tracker.Events(), before+1)
	})
}

func TestConfirmLaunchMismatchIsLogged(t *testing.T) {
	core, observedLogs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	r := NewResolver(persona.NewGenerator(1), lineage.NewTracker(zap.NewNop()), logger)

	p, err := r.Resolve(schemas.LevelAdvanced, Overrides{})
	require.NoError(t, err)

	require.NotNil(t, r.ConfirmLaunch(p, schemas.ChannelFirefox, 7))

	logs := observedLogs.FilterMessage("Launch channel mismatch").All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "chrome", fields["required"])
	assert.Equal(t, "firefox", fields["confirmed"])
}

func TestEffectivenessScoreMonotonic(t *testing.T) {
	base := featureSet{engineSwitch: true}
	withFlags := featureSet{engineSwitch: true, flagSet: true}
	withHeaders := featureSet{engineSwitch: true, flagSet: true, personaHeaders: true}
	full := featureSet{engineSwitch: true, flagSet: true, personaHeaders: true, fullScripts: true}

	assert.Less(t, effectivenessScore(base), effectivenessScore(withFlags))
	assert.Less(t, effectivenessScore(withFlags), effectivenessScore(withHeaders))
	assert.Less(t, effectivenessScore(withHeaders), effectivenessScore(full))
	assert.Equal(t, 100, effectivenessScore(full))
}
