// File: cmd/resolve.go
package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/jennylv001/s1/api/schemas"
	"github.com/jennylv001/s1/internal/config"
	"github.com/jennylv001/s1/internal/lineage"
	"github.com/jennylv001/s1/internal/observability"
	"github.com/jennylv001/s1/internal/persona"
	"github.com/jennylv001/s1/internal/stealth"
)

var resolveOpts struct {
	level       string
	channel     string
	headless    bool
	userDataDir string
	customFlags []string
	docker      bool
	withScript  bool
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a stealth profile for a protection level.",
	Long: `Resolve maps a stealth level plus explicit overrides to a concrete,
internally consistent profile and prints it as JSON. Conflicting overrides
are corrected or kept with a warning; resolution only fails for an unknown
level.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		logger := observability.GetLogger()

		level := schemas.StealthLevel(resolveOpts.level)
		if resolveOpts.level == "" {
			level = schemas.StealthLevel(cfg.Stealth.Level)
		}

		seed := cfg.Stealth.PersonaSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		resolver := stealth.NewResolver(persona.NewGenerator(seed), lineage.Default(), logger)

		ov := stealth.Overrides{
			Channel:     schemas.BrowserChannel(resolveOpts.channel),
			UserDataDir: resolveOpts.userDataDir,
			CustomFlags: resolveOpts.customFlags,
		}
		if resolveOpts.channel == "" {
			ov.Channel = schemas.BrowserChannel(cfg.Stealth.Channel)
		}
		if cmd.Flags().Changed("headless") || cfg.Stealth.Headless {
			headless := resolveOpts.headless || cfg.Stealth.Headless
			ov.Headless = &headless
		}
		if resolveOpts.docker || cfg.Stealth.Docker {
			ov.CustomFlags = append(ov.CustomFlags, stealth.DockerFlags()...)
		}

		profile, err := resolver.Resolve(level, ov)
		if err != nil {
			return err
		}

		out := struct {
			*schemas.ResolvedStealthProfile
			AcceptLanguage string `json:"acceptLanguage,omitempty"`
			Script         string `json:"script,omitempty"`
		}{
			ResolvedStealthProfile: profile,
			AcceptLanguage:         profile.Persona.AcceptLanguageHeader(),
		}
		if resolveOpts.withScript {
			script, err := stealth.RenderEvasionScript(profile.Persona, profile.ScriptParams)
			if err != nil {
				return err
			}
			out.Script = script
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	f := resolveCmd.Flags()
	f.StringVarP(&resolveOpts.level, "level", "l", "", "stealth level: basic, advanced or military-grade")
	f.StringVar(&resolveOpts.channel, "channel", "", "browser channel override")
	f.BoolVar(&resolveOpts.headless, "headless", false, "request a headless launch")
	f.StringVar(&resolveOpts.userDataDir, "user-data-dir", "", "persistent browser profile directory")
	f.StringArrayVar(&resolveOpts.customFlags, "flag", nil, "extra Chromium switch (repeatable)")
	f.BoolVar(&resolveOpts.docker, "docker", false, "add container sandbox flags")
	f.BoolVar(&resolveOpts.withScript, "script", false, "include the rendered evasion script in the output")
}
