// The application's root configuration.
//
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Stealth StealthConfig `mapstructure:"stealth"`
	Mimicry MimicryConfig `mapstructure:"mimicry"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" json:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" json:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
// This is the single source of truth for this struct.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// StealthConfig holds the defaults applied when resolving profiles. CLI
// flags override these per invocation.
type StealthConfig struct {
	// Level is the default protection tier: basic, advanced or
	// military-grade.
	Level string `mapstructure:"level"`
	// Channel overrides the browser release channel requested from the
	// launcher. Empty means the level's default.
	Channel string `mapstructure:"channel"`
	// Headless requests a headless launch. Detectable; discouraged at
	// higher levels.
	Headless bool `mapstructure:"headless"`
	// UserDataDir is the persistent browser profile directory. Empty
	// means an ephemeral profile.
	UserDataDir string `mapstructure:"user_data_dir"`
	// CustomFlags are extra Chromium switches appended to the level's
	// flag set.
	CustomFlags []string `mapstructure:"custom_flags"`
	// Docker adds the container sandbox flags to every resolved profile.
	Docker bool `mapstructure:"docker"`
	// PersonaSeed seeds the persona generator. Zero selects a
	// time-derived seed.
	PersonaSeed int64 `mapstructure:"persona_seed"`
}

// MimicryConfig holds the behavioral synthesis tuning.
type MimicryConfig struct {
	// Speed is the default pace class: deliberate, average or swift.
	Speed string `mapstructure:"speed"`
	// Seed seeds the trajectory rng and noise generators. Zero selects a
	// time-derived seed.
	Seed int64 `mapstructure:"seed"`
	// PerlinAmplitude scales the low-frequency pointer drift, in pixels.
	PerlinAmplitude float64 `mapstructure:"perlin_amplitude"`
	// GaussianStrength scales the high-frequency pointer tremor, in pixels.
	GaussianStrength float64 `mapstructure:"gaussian_strength"`
	// OvershootProbability is the chance a long pointer movement
	// overshoots the target and corrects back.
	OvershootProbability float64 `mapstructure:"overshoot_probability"`
}

// SetDefaults registers the default values on a Viper instance. Called by
// the root command before binding flags so explicit settings win.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "s1")
	v.SetDefault("stealth.level", "advanced")
	v.SetDefault("mimicry.speed", "average")
	v.SetDefault("mimicry.perlin_amplitude", 2.5)
	v.SetDefault("mimicry.gaussian_strength", 0.6)
	v.SetDefault("mimicry.overshoot_probability", 0.25)
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	var loadErr error
	once.Do(func() {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Get returns the loaded configuration instance.
func Get() *Config {
	if instance == nil {
		panic("Configuration not initialized. Call config.Load() in the root command.")
	}
	return instance
}
