// Package config loads weldsim settings from defaults, an optional YAML file,
// a .env file and WELDSIM_* environment variables, in that order.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/weld"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WELDSIM_"

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Bank     BankConfig     `yaml:"bank"`
	Redis    RedisConfig    `yaml:"redis"`
	Registry RegistryConfig `yaml:"registry"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	AllowRetrain bool          `yaml:"allow_retrain"`
	Mode         string        `yaml:"mode"`        // gin mode: debug, release or test
	DriftDelta   float64       `yaml:"drift_delta"` // 0 disables the defect-probability drift monitor
	// TrustedProxies may set X-Forwarded-For. Empty means the client IP is
	// always the peer address.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// BankConfig controls how the model bank is trained or loaded at startup.
type BankConfig struct {
	Path       string  `yaml:"path"` // gob snapshot; trains from synthetic data when empty
	Kind       string  `yaml:"kind"`
	Samples    int     `yaml:"samples"`
	DataSeed   uint64  `yaml:"data_seed"`
	Seed       uint64  `yaml:"seed"`
	Estimators int     `yaml:"estimators"`
	MaxDepth   int     `yaml:"max_depth"`
	Jobs       int     `yaml:"jobs"`
	Holdout    float64 `yaml:"holdout"`
}

// RedisConfig enables the rate limiter when Addr is set.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	DB     int           `yaml:"db"`
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// RegistryConfig enables the training-run registry when DB is set.
type RegistryConfig struct {
	DB string `yaml:"db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			Mode:         "release",
			DriftDelta:   0.002,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Bank: BankConfig{
			Kind:       string(weld.KindForest),
			Samples:    weld.DefaultSamples,
			DataSeed:   weld.DefaultDataSeed,
			Estimators: weld.DefaultEstimators,
		},
		Redis: RedisConfig{
			Limit:  60,
			Window: time.Minute,
		},
	}
}

// Load builds the configuration. path may be empty. A missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read .env")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config %s", path)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("ADDR", &c.Server.Addr)
	e.duration("READ_TIMEOUT", &c.Server.ReadTimeout)
	e.duration("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	e.boolean("ALLOW_RETRAIN", &c.Server.AllowRetrain)
	e.str("GIN_MODE", &c.Server.Mode)
	e.float("DRIFT_DELTA", &c.Server.DriftDelta)
	e.list("TRUSTED_PROXIES", &c.Server.TrustedProxies)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	e.str("BANK_PATH", &c.Bank.Path)
	e.str("BANK_KIND", &c.Bank.Kind)
	e.integer("SAMPLES", &c.Bank.Samples)
	e.uint("DATA_SEED", &c.Bank.DataSeed)
	e.uint("SEED", &c.Bank.Seed)
	e.integer("ESTIMATORS", &c.Bank.Estimators)
	e.integer("MAX_DEPTH", &c.Bank.MaxDepth)
	e.integer("JOBS", &c.Bank.Jobs)
	e.float("HOLDOUT", &c.Bank.Holdout)

	e.str("REDIS_ADDR", &c.Redis.Addr)
	e.integer("REDIS_DB", &c.Redis.DB)
	e.integer("RATE_LIMIT", &c.Redis.Limit)
	e.duration("RATE_WINDOW", &c.Redis.Window)

	e.str("REGISTRY_DB", &c.Registry.DB)

	return e.err
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.NewValidationError("server.addr", "must not be empty", c.Server.Addr)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return errors.NewValidationError("server.mode", "must be debug, release or test", c.Server.Mode)
	}
	if c.Server.DriftDelta < 0 || c.Server.DriftDelta >= 1 {
		return errors.NewValidationError("server.drift_delta", "must be in [0, 1)", c.Server.DriftDelta)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewValidationError("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errors.NewValidationError("log.format", "must be json or text", c.Log.Format)
	}
	if _, err := weld.ParseKind(c.Bank.Kind); err != nil {
		return err
	}
	if c.Bank.Samples < weld.MinTrainingRows {
		return errors.NewValidationError("bank.samples", "must be >= 2", c.Bank.Samples)
	}
	if c.Bank.Estimators < 1 {
		return errors.NewValidationError("bank.estimators", "must be >= 1", c.Bank.Estimators)
	}
	if c.Bank.MaxDepth < 0 {
		return errors.NewValidationError("bank.max_depth", "must be >= 0", c.Bank.MaxDepth)
	}
	if c.Bank.Holdout < 0 || c.Bank.Holdout >= 1 {
		return errors.NewValidationError("bank.holdout", "must be in [0, 1)", c.Bank.Holdout)
	}
	if c.Redis.Addr != "" && (c.Redis.Limit < 1 || c.Redis.Window <= 0) {
		return errors.NewValidationError("redis.limit", "limit and window must be positive", c.Redis.Limit)
	}
	return nil
}

// BankOptions converts the bank section to training options.
func (c *Config) BankOptions() []weld.BankOption {
	return []weld.BankOption{
		weld.WithKind(weld.Kind(c.Bank.Kind)),
		weld.WithEstimators(c.Bank.Estimators),
		weld.WithMaxDepth(c.Bank.MaxDepth),
		weld.WithSeed(c.Bank.Seed),
		weld.WithJobs(c.Bank.Jobs),
		weld.WithHoldout(c.Bank.Holdout),
	}
}

// envReader collects the first parse error.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key, value string, err error) {
	e.err = errors.NewValidationError(EnvPrefix+key, err.Error(), value)
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) uint(key string, dst *uint64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}
