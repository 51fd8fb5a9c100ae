// File: cmd/audit.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jennylv001/s1/api/schemas"
	"github.com/jennylv001/s1/internal/stealth"
)

var auditOpts struct {
	profilePath    string
	confirmChannel string
	confirmPID     int
	strict         bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a resolved profile for fingerprint inconsistencies.",
	Long: `Audit re-validates a previously resolved profile and reports every
cross-field contradiction with its suggested correction. With
--confirm-channel it also checks a launcher confirmation against the
profile's required channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(auditOpts.profilePath)
		if err != nil {
			return fmt.Errorf("reading profile: %w", err)
		}
		var profile schemas.ResolvedStealthProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return fmt.Errorf("parsing profile: %w", err)
		}

		validator := stealth.NewValidator()
		report := struct {
			ProfileID       string                         `json:"profileId"`
			Inconsistencies []stealth.Inconsistency        `json:"inconsistencies"`
			LaunchMismatch  *schemas.LaunchMismatchWarning `json:"launchMismatch,omitempty"`
		}{
			ProfileID:       profile.ID,
			Inconsistencies: validator.Validate(&profile),
		}
		if auditOpts.confirmChannel != "" {
			report.LaunchMismatch = validator.ValidateLaunchConfirmation(
				&profile, schemas.BrowserChannel(auditOpts.confirmChannel), auditOpts.confirmPID)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}

		if auditOpts.strict && (len(report.Inconsistencies) > 0 || report.LaunchMismatch != nil) {
			return fmt.Errorf("audit: %d inconsistencies found", len(report.Inconsistencies))
		}
		return nil
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVarP(&auditOpts.profilePath, "profile", "p", "", "path to a resolved profile JSON file")
	f.StringVar(&auditOpts.confirmChannel, "confirm-channel", "", "channel reported by the launcher")
	f.IntVar(&auditOpts.confirmPID, "confirm-pid", 0, "process id reported by the launcher")
	f.BoolVar(&auditOpts.strict, "strict", false, "exit non-zero when findings exist")
	_ = auditCmd.MarkFlagRequired("profile")
}
