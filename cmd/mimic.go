// File: cmd/mimic.go
package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jennylv001/s1/internal/config"
	"github.com/jennylv001/s1/internal/mimicry"
	"github.com/jennylv001/s1/internal/observability"
)

var mimicOpts struct {
	from    string
	to      string
	speed   string
	typeLen int
}

var mimicCmd = &cobra.Command{
	Use:   "mimic",
	Short: "Synthesize a pointer trajectory or typing cadence.",
	Long: `Mimic prints a timed pointer movement plan between two viewport
coordinates, and optionally the inter-keystroke delays for typing a given
number of characters. Plans are synthesis only; dispatching the events is
the caller's concern.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		from, err := parsePoint(mimicOpts.from)
		if err != nil {
			return fmt.Errorf("parsing --from: %w", err)
		}
		to, err := parsePoint(mimicOpts.to)
		if err != nil {
			return fmt.Errorf("parsing --to: %w", err)
		}

		speed := mimicry.SpeedClass(mimicOpts.speed)
		if mimicOpts.speed == "" {
			speed = mimicry.SpeedClass(cfg.Mimicry.Speed)
		}

		seed := cfg.Mimicry.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		engineCfg := mimicry.DefaultConfig()
		if cfg.Mimicry.PerlinAmplitude > 0 {
			engineCfg.PerlinAmplitude = cfg.Mimicry.PerlinAmplitude
		}
		if cfg.Mimicry.GaussianStrength > 0 {
			engineCfg.GaussianStrength = cfg.Mimicry.GaussianStrength
		}
		if cfg.Mimicry.OvershootProbability > 0 {
			engineCfg.OvershootProbability = cfg.Mimicry.OvershootProbability
		}

		engine := mimicry.NewEngine(seed, engineCfg, observability.GetLogger())

		out := struct {
			Path    []mimicry.PathPoint `json:"path"`
			Typing  []time.Duration     `json:"typing,omitempty"`
			Seed    int64               `json:"seed"`
			Speed   mimicry.SpeedClass  `json:"speed"`
			TypeLen int                 `json:"typeLen,omitempty"`
		}{
			Path:  engine.PointerPath(from, to, speed),
			Seed:  seed,
			Speed: speed,
		}
		if mimicOpts.typeLen > 0 {
			intervals, err := engine.TypingIntervals(mimicOpts.typeLen, speed)
			if err != nil {
				return err
			}
			out.Typing = intervals
			out.TypeLen = mimicOpts.typeLen
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// parsePoint parses an "x,y" coordinate pair.
func parsePoint(s string) (mimicry.Vector2D, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return mimicry.Vector2D{}, fmt.Errorf("expected x,y got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return mimicry.Vector2D{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return mimicry.Vector2D{}, err
	}
	return mimicry.Vector2D{X: x, Y: y}, nil
}

func init() {
	f := mimicCmd.Flags()
	f.StringVar(&mimicOpts.from, "from", "0,0", "start coordinate as x,y")
	f.StringVar(&mimicOpts.to, "to", "0,0", "end coordinate as x,y")
	f.StringVar(&mimicOpts.speed, "speed", "", "pace class: deliberate, average or swift")
	f.IntVar(&mimicOpts.typeLen, "type-len", 0, "also plan typing delays for this many characters")
}
