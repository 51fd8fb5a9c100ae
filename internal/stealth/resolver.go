// internal/stealth/resolver.go
package stealth

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jennylv001/s1/api/schemas"
	"github.com/jennylv001/s1/internal/lineage"
	"github.com/jennylv001/s1/internal/persona"
)

// InvalidLevelError is the single fatal resolver error: the requested level
// is outside the enum domain. The resolver does not guess an intended level.
type InvalidLevelError struct {
	Level schemas.StealthLevel
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("stealth: invalid stealth level %q", e.Level)
}

// Overrides is the fixed, enumerated set of caller options layered onto a
// level's feature table. A nil Headless means "no preference".
type Overrides struct {
	Channel     schemas.BrowserChannel
	Headless    *bool
	UserDataDir string
	CustomFlags []string

	// Persona, when set, is reused instead of generating a fresh one.
	Persona *schemas.Persona
}

// featureSet records which evasion feature groups a profile carries. The
// effectiveness score is a pure function of this set.
type featureSet struct {
	engineSwitch   bool
	flagSet        bool
	personaHeaders bool
	fullScripts    bool
}

// effectivenessScore weighs the present feature groups: engine switch 10,
// flag set 70, persona header spoofing 10, full script evasion 10. Capped
// at 100. Adding a feature group never decreases the score.
func effectivenessScore(f featureSet) int {
	score := 0
	if f.engineSwitch {
		score += 10
	}
	if f.flagSet {
		score += 70
	}
	if f.personaHeaders {
		score += 10
	}
	if f.fullScripts {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Resolver maps a requested stealth level plus explicit overrides to a
// concrete, internally consistent ResolvedStealthProfile.
type Resolver struct {
	personas  *persona.Generator
	validator *Validator
	tracker   *lineage.Tracker
	logger    *zap.Logger
}

// NewResolver wires the resolver to its collaborators. A nil tracker
// falls back to the process-wide default; a nil logger is replaced with a
// no-op.
func NewResolver(gen *persona.Generator, tracker *lineage.Tracker, logger *zap.Logger) *Resolver {
	if tracker == nil {
		tracker = lineage.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		personas:  gen,
		validator: NewValidator(),
		tracker:   tracker,
		logger:    logger,
	}
}

// Resolve builds a profile for the level, applies overrides with
// correct-and-warn conflict handling, normalizes validator findings,
// computes the effectiveness score and registers the result as a lineage
// root. It fails only for a level outside the enum domain.
func (r *Resolver) Resolve(level schemas.StealthLevel, ov Overrides) (*schemas.ResolvedStealthProfile, error) {
	p, err := r.resolve(level, ov)
	if err != nil {
		return nil, err
	}

	site := lineage.CreationSite{Location: "stealth/resolver.go", Operation: "Resolver.Resolve"}
	nodeID := r.tracker.RegisterRoot(p, site)
	r.logger.Debug("Stealth profile resolved",
		zap.String("profile", p.ID),
		zap.String("node", nodeID),
		zap.String("level", string(p.Level)),
		zap.Int("score", p.EffectivenessScore),
		zap.Int("warnings", len(p.Warnings)))
	return p, nil
}

// Derive re-resolves a parent profile with additional overrides layered on
// top and registers the result as a lineage child of parentNodeID. The
// parent is never mutated.
func (r *Resolver) Derive(parentNodeID string, parent *schemas.ResolvedStealthProfile, ov Overrides, site lineage.CreationSite) (*schemas.ResolvedStealthProfile, error) {
	merged := ov
	if merged.Persona == nil {
		reuse := parent.Persona
		merged.Persona = &reuse
	}
	if merged.Channel == "" {
		merged.Channel = parent.RequiredChannel
	}
	if merged.Headless == nil {
		headless := parent.Headless
		merged.Headless = &headless
	}
	if merged.UserDataDir == "" {
		merged.UserDataDir = parent.UserDataDir
	}

	child, err := r.resolve(parent.Level, merged)
	if err != nil {
		return nil, err
	}

	nodeID, err := r.tracker.RegisterCopy(parentNodeID, child, site)
	if err != nil {
		return nil, fmt.Errorf("stealth: registering derived profile: %w", err)
	}
	r.logger.Debug("Stealth profile derived",
		zap.String("parent_node", parentNodeID),
		zap.String("node", nodeID),
		zap.String("profile", child.ID))
	return child, nil
}

// ConfirmLaunch is the callback for the external launcher: it reports the
// actually used channel and process ID. A mismatch against the profile's
// required channel is recorded as a LaunchMismatchWarning, never an error.
func (r *Resolver) ConfirmLaunch(p *schemas.ResolvedStealthProfile, confirmed schemas.BrowserChannel, pid int) *schemas.LaunchMismatchWarning {
	warning := r.validator.ValidateLaunchConfirmation(p, confirmed, pid)
	if warning == nil {
		r.logger.Debug("Launch confirmed",
			zap.String("profile", p.ID),
			zap.String("channel", string(confirmed)),
			zap.Int("pid", pid))
		return nil
	}
	r.tracker.Record(*warning)
	r.logger.Warn("Launch channel mismatch",
		zap.String("profile", p.ID),
		zap.String("required", string(warning.RequiredChannel)),
		zap.String("confirmed", string(confirmed)),
		zap.Int("pid", pid))
	return warning
}

// resolve performs steps 1-5: feature table, overrides, persona,
// validation, scoring. Registration is left to the public entry points.
func (r *Resolver) resolve(level schemas.StealthLevel, ov Overrides) (*schemas.ResolvedStealthProfile, error) {
	if !level.Valid() {
		return nil, &InvalidLevelError{Level: level}
	}

	features := featureSet{
		engineSwitch:   true,
		flagSet:        level.AtLeast(schemas.LevelAdvanced),
		personaHeaders: level.AtLeast(schemas.LevelAdvanced),
		fullScripts:    level == schemas.LevelMilitaryGrade,
	}

	p := &schemas.ResolvedStealthProfile{
		ID:     uuid.NewString(),
		Level:  level,
		Engine: schemas.EnginePatched,
	}

	if features.flagSet {
		p.LaunchFlags = StealthFlagSet()
		p.RequiredChannel = schemas.ChannelChrome
	}
	if features.fullScripts {
		p.ScriptParams = schemas.FullEvasionBundle()
	}

	r.applyOverrides(p, ov)

	// Persona: reuse the caller's or synthesize a fresh one.
	if ov.Persona != nil {
		p.Persona = *ov.Persona
		p.Persona.Languages = append([]string(nil), ov.Persona.Languages...)
	} else {
		p.Persona = r.personas.Generate()
	}

	// Normalize every validator finding to its suggested value. Resolution
	// never fails for internal inconsistency: a usable profile plus a
	// warning beats blocking the caller.
	for _, inc := range r.validator.Validate(p) {
		ApplyCorrection(p, inc)
		p.Warnings = append(p.Warnings, inc.Message)
	}

	p.EffectivenessScore = effectivenessScore(features)
	return p, nil
}

// applyOverrides layers the caller's overrides onto the level's feature
// table. Conflicting overrides are not silently honored: the conflicting
// field is corrected and a human-readable warning appended, except for
// headless, which is an explicit caller decision and is kept with an
// informational warning only.
func (r *Resolver) applyOverrides(p *schemas.ResolvedStealthProfile, ov Overrides) {
	if ov.Channel != "" {
		if p.Level.AtLeast(schemas.LevelAdvanced) && !ov.Channel.IsChromiumFamily() {
			p.Warnings = append(p.Warnings, fmt.Sprintf(
				"channel %q is not Chromium-family and cannot satisfy stealth level %s; corrected to %q",
				ov.Channel, p.Level, schemas.ChannelChrome))
			p.RequiredChannel = schemas.ChannelChrome
		} else {
			p.RequiredChannel = ov.Channel
		}
	}

	if ov.Headless != nil {
		p.Headless = *ov.Headless
		if p.Headless && p.Level == schemas.LevelMilitaryGrade {
			p.Warnings = append(p.Warnings,
				"headless=true is detectable and reduces realism at military-grade; keeping explicit override")
		}
	}

	p.UserDataDir = ov.UserDataDir

	if len(ov.CustomFlags) > 0 {
		p.LaunchFlags = dedupeFlags(append(p.LaunchFlags, ov.CustomFlags...))
	}
}
