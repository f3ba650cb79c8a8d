package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	withEnv(t, map[string]string{"DATABASE_URL": "postgres://localhost/test"})

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxParallelRuns)
	assert.Equal(t, 4, cfg.MaxParallelNodesPerRun)
	assert.Equal(t, 5.0, cfg.MaxUSDPerRun)
	assert.Equal(t, 5.0, cfg.MaxAdmitsPerSecond)
	assert.Equal(t, "./data/artifacts", cfg.ArtifactsHome)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":          "postgres://localhost/test",
		"MAX_PARALLEL_RUNS":     "8",
		"MAX_USD_PER_RUN":       "12.5",
		"MAX_ADMITS_PER_SECOND": "2.5",
		"HTTP_ADDR":             ":9090",
	})

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxParallelRuns)
	assert.Equal(t, 12.5, cfg.MaxUSDPerRun)
	assert.Equal(t, 2.5, cfg.MaxAdmitsPerSecond)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoadFromEnvRejectsInvalidAdmitRate(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":          "postgres://localhost/test",
		"MAX_ADMITS_PER_SECOND": "-1",
	})

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnvRejectsInvalidInt(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":      "postgres://localhost/test",
		"MAX_PARALLEL_RUNS": "not-a-number",
	})

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnvRejectsNonPositiveInt(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":      "postgres://localhost/test",
		"MAX_PARALLEL_RUNS": "0",
	})

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnvRejectsInvalidUSD(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":    "postgres://localhost/test",
		"MAX_USD_PER_RUN": "-1",
	})

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnvRequiresDatabaseURL(t *testing.T) {
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) { c.DatabaseURL = "x"; c.ArtifactsHome = "y" }, false},
		{"missing database url", func(c *Config) { c.ArtifactsHome = "y" }, true},
		{"missing artifacts home", func(c *Config) { c.DatabaseURL = "x" }, true},
		{"zero parallelism", func(c *Config) {
			c.DatabaseURL = "x"
			c.ArtifactsHome = "y"
			c.MaxParallelRuns = 0
		}, true},
		{"non-positive usd cap", func(c *Config) {
			c.DatabaseURL = "x"
			c.ArtifactsHome = "y"
			c.MaxUSDPerRun = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
