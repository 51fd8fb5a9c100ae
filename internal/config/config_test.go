package config

import (
	"bytes"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetSingleton() {
	instance = nil
	once = sync.Once{}
}

// TestGetUninitialized verifies that calling Get() before Load() causes a panic.
func TestGetUninitialized(t *testing.T) {
	resetSingleton()

	assert.Panics(t, func() {
		Get()
	}, "Get() should panic if configuration is not initialized")
}

// TestLoadAndGet verifies the basic singleton load and get functionality.
func TestLoadAndGet(t *testing.T) {
	resetSingleton()

	yamlConfig := []byte(`
logger:
  level: debug
  format: json
stealth:
  level: military-grade
  headless: true
  custom_flags:
    - "--lang=en-US"
mimicry:
  speed: deliberate
  seed: 42
`)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	require.NoError(t, Load(v))

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "military-grade", cfg.Stealth.Level)
	assert.True(t, cfg.Stealth.Headless)
	assert.Equal(t, []string{"--lang=en-US"}, cfg.Stealth.CustomFlags)
	assert.Equal(t, "deliberate", cfg.Mimicry.Speed)
	assert.Equal(t, int64(42), cfg.Mimicry.Seed)

	// Subsequent loads must not replace the instance.
	v2 := viper.New()
	v2.SetConfigType("yaml")
	_ = v2.ReadConfig(bytes.NewBuffer([]byte(`stealth: {level: basic}`)))
	require.NoError(t, Load(v2))
	assert.Equal(t, "military-grade", Get().Stealth.Level)
}

// TestDefaults verifies SetDefaults yields a runnable configuration with no
// config file present.
func TestDefaults(t *testing.T) {
	resetSingleton()

	v := viper.New()
	SetDefaults(v)

	require.NoError(t, Load(v))
	cfg := Get()
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "advanced", cfg.Stealth.Level)
	assert.Equal(t, "average", cfg.Mimicry.Speed)
	assert.Equal(t, 2.5, cfg.Mimicry.PerlinAmplitude)
}
