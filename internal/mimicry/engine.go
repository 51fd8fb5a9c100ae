// internal/mimicry/engine.go
//
// Trajectory and cadence synthesis for pointer movement and typing. The
// engine produces timed event plans only; dispatching them to a browser is
// the caller's concern. All output is driven by a seeded rng plus two
// Perlin noise generators, so a fixed seed reproduces the exact plan.
package mimicry

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"
)

// SpeedClass selects the overall pace of synthesized behavior.
type SpeedClass string

const (
	SpeedDeliberate SpeedClass = "deliberate"
	SpeedAverage    SpeedClass = "average"
	SpeedSwift      SpeedClass = "swift"
)

// speedParams are the per-class pacing constants. Movement time follows a
// Fitts-style law (base + slope * index of difficulty); typing intervals
// follow a log-normal around meanKeyMs.
type speedParams struct {
	fittsBaseMs  float64
	fittsSlopeMs float64
	meanKeyMs    float64
	keySigma     float64
	hesitateProb float64
}

var speedTable = map[SpeedClass]speedParams{
	SpeedDeliberate: {fittsBaseMs: 180, fittsSlopeMs: 190, meanKeyMs: 210, keySigma: 0.45, hesitateProb: 0.10},
	SpeedAverage:    {fittsBaseMs: 120, fittsSlopeMs: 140, meanKeyMs: 140, keySigma: 0.35, hesitateProb: 0.06},
	SpeedSwift:      {fittsBaseMs: 80, fittsSlopeMs: 100, meanKeyMs: 90, keySigma: 0.28, hesitateProb: 0.03},
}

// InvalidTextLengthError reports a negative character count passed to
// TypingIntervals.
type InvalidTextLengthError struct {
	Length int
}

func (e *InvalidTextLengthError) Error() string {
	return fmt.Sprintf("mimicry: invalid text length %d", e.Length)
}

// PathPoint is one timed sample of a pointer trajectory. At is the offset
// from the start of the movement; offsets are strictly increasing along a
// path.
type PathPoint struct {
	Pos Vector2D      `json:"pos"`
	At  time.Duration `json:"at"`
}

// Config tunes the noise layered onto synthesized trajectories.
type Config struct {
	// PerlinAmplitude scales the low-frequency drift applied along a path,
	// in pixels.
	PerlinAmplitude float64
	// PerlinFrequency controls how fast the drift direction wanders.
	PerlinFrequency float64
	// GaussianStrength scales the high-frequency tremor, in pixels.
	GaussianStrength float64
	// OvershootProbability is the chance a long movement overshoots the
	// target and corrects back. Only movements longer than
	// overshootMinDistance are eligible.
	OvershootProbability float64
	// MinStepSpacing is the floor between consecutive sample timestamps.
	MinStepSpacing time.Duration
}

// DefaultConfig returns tuning that reads as an unremarkable desktop user.
func DefaultConfig() Config {
	return Config{
		PerlinAmplitude:      2.5,
		PerlinFrequency:      0.8,
		GaussianStrength:     0.6,
		OvershootProbability: 0.25,
		MinStepSpacing:       2 * time.Millisecond,
	}
}

const (
	minPathSteps         = 15
	maxPathSteps         = 50
	overshootMinDistance = 70.0
	fittsTargetWidth     = 30.0
)

// Engine synthesizes pointer trajectories and typing cadences. Safe for
// concurrent use; the rng and noise generators are guarded by a single
// mutex held only for the duration of one synthesis call.
type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates a mimicry engine seeded for reproducibility. The same
// seed yields the same trajectories and cadences.
func NewEngine(seed int64, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rng:    rand.New(rand.NewSource(seed)),
		noiseX: perlin.NewPerlin(2, 2, 3, seed),
		noiseY: perlin.NewPerlin(2, 2, 3, seed+1),
		cfg:    cfg,
		logger: logger,
	}
}

// PointerPath synthesizes a timed pointer trajectory from start to end. The
// path follows a cubic Bezier whose control points are perpendicular
// offsets from the direct line, sampled on an ease-in-out velocity profile
// with Perlin drift and Gaussian tremor layered on top. Long movements may
// overshoot the target and correct back. The final sample is exactly end;
// timestamps are strictly increasing from zero. A zero-length movement
// yields a single sample.
func (e *Engine) PointerPath(start, end Vector2D, speed SpeedClass) []PathPoint {
	e.mu.Lock()
	defer e.mu.Unlock()

	if start == end {
		return []PathPoint{{Pos: start, At: 0}}
	}

	params, ok := speedTable[speed]
	if !ok {
		params = speedTable[SpeedAverage]
	}

	dist := start.Dist(end)
	overshoots := dist > overshootMinDistance && e.rng.Float64() < e.cfg.OvershootProbability

	var points []Vector2D
	if overshoots {
		// Carry past the target by 5-15% of the distance, then come back.
		past := end.Add(end.Sub(start).Normalize().Mul(dist * (0.05 + e.rng.Float64()*0.10)))
		points = e.bezierSamples(start, past, dist)
		points = append(points, e.correctionSamples(past, end)...)
	} else {
		points = e.bezierSamples(start, end, dist)
	}
	// The landing coordinate is exact regardless of layered noise.
	points[len(points)-1] = end

	total := e.movementTime(dist, params)
	path := make([]PathPoint, len(points))
	mean := total / time.Duration(len(points))
	elapsed := time.Duration(0)
	for i, pos := range points {
		if i > 0 {
			step := time.Duration(float64(mean) * (0.7 + e.rng.Float64()*0.6))
			if step < e.cfg.MinStepSpacing {
				step = e.cfg.MinStepSpacing
			}
			elapsed += step
		}
		path[i] = PathPoint{Pos: pos, At: elapsed}
	}

	e.logger.Debug("Pointer path synthesized",
		zap.Float64("distance", dist),
		zap.Int("samples", len(path)),
		zap.Bool("overshoot", overshoots),
		zap.Duration("duration", elapsed))
	return path
}

// TypingIntervals synthesizes the inter-keystroke delays for typing n
// characters. Delays follow a log-normal distribution around the class
// mean, with occasional longer hesitation pauses. Every interval is
// positive. A negative n is an InvalidTextLengthError; n == 0 yields an
// empty plan.
func (e *Engine) TypingIntervals(n int, speed SpeedClass) ([]time.Duration, error) {
	if n < 0 {
		return nil, &InvalidTextLengthError{Length: n}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, ok := speedTable[speed]
	if !ok {
		params = speedTable[SpeedAverage]
	}

	intervals := make([]time.Duration, n)
	mu := math.Log(params.meanKeyMs)
	for i := range intervals {
		ms := math.Exp(mu + e.rng.NormFloat64()*params.keySigma)
		if e.rng.Float64() < params.hesitateProb {
			// A thinking pause, 2-6x the normal gap.
			ms *= 2 + e.rng.Float64()*4
		}
		if ms < 1 {
			ms = 1
		}
		intervals[i] = time.Duration(ms * float64(time.Millisecond))
	}
	return intervals, nil
}

// bezierSamples traces a cubic Bezier from start to end with bowed control
// points, ease-in-out pacing along the curve, and noise layered on the
// interior samples. Endpoints are returned noise-free.
func (e *Engine) bezierSamples(start, end Vector2D, totalDist float64) []Vector2D {
	segDist := start.Dist(end)
	steps := int(segDist / (5 + e.rng.Float64()*10))
	if steps < minPathSteps {
		steps = minPathSteps
	}
	if steps > maxPathSteps {
		steps = maxPathSteps
	}

	dir := end.Sub(start)
	perp := dir.Perpendicular().Normalize()
	// Bow the curve off the direct line by up to 20% of the distance,
	// independently per control point so the arc is asymmetric.
	c1 := start.Add(dir.Mul(0.25)).Add(perp.Mul(segDist * (e.rng.Float64()*0.4 - 0.2)))
	c2 := start.Add(dir.Mul(0.75)).Add(perp.Mul(segDist * (e.rng.Float64()*0.4 - 0.2)))

	out := make([]Vector2D, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		t = t * t * (3 - 2*t) // ease in/out
		pos := cubicBezier(start, c1, c2, end, t)
		if i > 0 && i < steps {
			drift := Vector2D{
				X: e.noiseX.Noise1D(t*e.cfg.PerlinFrequency) * e.cfg.PerlinAmplitude,
				Y: e.noiseY.Noise1D(t*e.cfg.PerlinFrequency) * e.cfg.PerlinAmplitude,
			}
			pos = pos.Add(drift)
			pos.X += e.rng.NormFloat64() * e.cfg.GaussianStrength
			pos.Y += e.rng.NormFloat64() * e.cfg.GaussianStrength
		}
		out = append(out, pos)
	}
	return out
}

// correctionSamples traces the short corrective return after an overshoot.
// The correction is slower and straighter than the main movement.
func (e *Engine) correctionSamples(from, to Vector2D) []Vector2D {
	steps := 4 + e.rng.Intn(4)
	out := make([]Vector2D, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		t = t * t * (3 - 2*t)
		pos := from.Add(to.Sub(from).Mul(t))
		if i < steps {
			pos.X += e.rng.NormFloat64() * e.cfg.GaussianStrength * 0.5
			pos.Y += e.rng.NormFloat64() * e.cfg.GaussianStrength * 0.5
		}
		out = append(out, pos)
	}
	return out
}

// movementTime estimates total movement duration via Fitts' law with a
// +/- 15% jitter.
func (e *Engine) movementTime(dist float64, params speedParams) time.Duration {
	id := math.Log2(1.0 + dist/fittsTargetWidth)
	ms := params.fittsBaseMs + params.fittsSlopeMs*id
	ms += ms * (e.rng.Float64()*0.3 - 0.15)
	return time.Duration(ms * float64(time.Millisecond))
}

func cubicBezier(p0, p1, p2, p3 Vector2D, t float64) Vector2D {
	u := 1 - t
	return p0.Mul(u * u * u).
		Add(p1.Mul(3 * u * u * t)).
		Add(p2.Mul(3 * u * t * t)).
		Add(p3.Mul(t * t * t))
}
