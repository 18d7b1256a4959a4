package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsAreValid(t *testing.T) {
	loader := NewLoader(t.TempDir(), Development)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Greater(t, cfg.FlushStrategy.SizeThreshold, 0)
	assert.Contains(t, cfg.LoadedFrom, "defaults")
}

func TestLoader_EnvironmentOverridesPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	loader := NewLoader(t.TempDir(), Development)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestConfig_ValidateRejectsMissingRegion(t *testing.T) {
	cfg := NewLoader(t.TempDir(), Development)
	c, err := cfg.Load()
	require.NoError(t, err)
	c.AWS.Region = ""
	c.Database.Region = ""
	assert.Error(t, c.Validate())
}

func TestApplyEnvironmentDefaults_ProductionForcesJSONLogging(t *testing.T) {
	cfg := &Config{Environment: Production, Logging: Logging{Format: "console"}}
	cfg.applyEnvironmentDefaults()
	assert.Equal(t, "json", cfg.Logging.Format)
}
