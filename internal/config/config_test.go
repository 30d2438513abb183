package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/weldsim/weld"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "forest", cfg.Bank.Kind)
	assert.Equal(t, 200, cfg.Bank.Estimators)
	assert.Equal(t, 2500, cfg.Bank.Samples)
	assert.EqualValues(t, 42, cfg.Bank.DataSeed)
	assert.False(t, cfg.Server.AllowRetrain)
	assert.Len(t, cfg.BankOptions(), 6)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weldsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
  read_timeout: 5s
log:
  level: debug
bank:
  kind: linear
  samples: 500
  holdout: 0.2
`), 0o600))

	t.Setenv("WELDSIM_SAMPLES", "800")
	t.Setenv("WELDSIM_ALLOW_RETRAIN", "true")
	t.Setenv("WELDSIM_REDIS_ADDR", "localhost:6379")
	t.Setenv("WELDSIM_TRUSTED_PROXIES", "10.0.0.1, 10.0.0.0/8,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, string(weld.KindLinear), cfg.Bank.Kind)
	assert.Equal(t, 800, cfg.Bank.Samples)
	assert.Equal(t, 0.2, cfg.Bank.Holdout)
	assert.True(t, cfg.Server.AllowRetrain)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.Server.TrustedProxies)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv_ParseError(t *testing.T) {
	env := map[string]string{"WELDSIM_ESTIMATORS": "many"}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WELDSIM_ESTIMATORS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"bad drift delta", func(c *Config) { c.Server.DriftDelta = 1 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad kind", func(c *Config) { c.Bank.Kind = "svm" }},
		{"one sample", func(c *Config) { c.Bank.Samples = 1 }},
		{"no trees", func(c *Config) { c.Bank.Estimators = 0 }},
		{"negative depth", func(c *Config) { c.Bank.MaxDepth = -1 }},
		{"holdout one", func(c *Config) { c.Bank.Holdout = 1 }},
		{"redis without limit", func(c *Config) { c.Redis.Addr = "x:1"; c.Redis.Limit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
