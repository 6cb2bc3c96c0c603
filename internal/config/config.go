// Package config defines the top-level configuration for the cost estimation
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// duration wraps time.Duration so TOML values like "30s" decode naturally.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by COSTSIM_* environment
// variables.
type Config struct {
	Exchange   ExchangeConfig   `toml:"exchange"`
	Volatility VolatilityConfig `toml:"volatility"`
	Slippage   SlippageConfig   `toml:"slippage"`
	Fees       FeesConfig       `toml:"fees"`
	Impact     ImpactConfig     `toml:"impact"`
	Classifier ClassifierConfig `toml:"classifier"`
	Capture    CaptureConfig    `toml:"capture"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ExchangeConfig holds the market-data feed endpoint and instrument.
type ExchangeConfig struct {
	WsURL        string `toml:"ws_url"`
	Instrument   string `toml:"instrument"`
	BookChannel  string `toml:"book_channel"`
	TradeChannel string `toml:"trade_channel"`
}

// VolatilityConfig sizes the rolling mid-price window.
type VolatilityConfig struct {
	WindowSize int `toml:"window_size"`
}

// SlippageConfig holds the tuned regression quantile.
type SlippageConfig struct {
	Quantile float64 `toml:"quantile"`
}

// FeeTier is one row of the tiered fee schedule.
type FeeTier struct {
	VolumeUSD float64 `toml:"volume_usd"`
	MakerRate float64 `toml:"maker_rate"`
	TakerRate float64 `toml:"taker_rate"`
}

// FeesConfig holds the fee schedule. An empty Tiers list keeps the built-in
// default schedule.
type FeesConfig struct {
	MinimumFee float64   `toml:"minimum_fee"`
	Tiers      []FeeTier `toml:"tiers"`
}

// ImpactConfig holds the tuned Almgren-Chriss coefficients and the DP grid
// discretization.
type ImpactConfig struct {
	Alpha        float64 `toml:"alpha"`
	Beta         float64 `toml:"beta"`
	Gamma        float64 `toml:"gamma"`
	Eta          float64 `toml:"eta"`
	RiskAversion float64 `toml:"risk_aversion"`
	TimeSteps    int     `toml:"time_steps"`
	TimeStepSize float64 `toml:"time_step_size"`
	UnitScale    float64 `toml:"unit_scale"`
	MaxInventory int     `toml:"max_inventory"`
}

// ClassifierConfig holds the offline-trained maker/taker model: per-feature
// standardization mean and scale, linear weights, and intercept. Feature
// order is [notional_usd, spread, imbalance, side_flag].
type ClassifierConfig struct {
	Means     []float64 `toml:"means"`
	Scales    []float64 `toml:"scales"`
	Weights   []float64 `toml:"weights"`
	Intercept float64   `toml:"intercept"`
}

// CaptureConfig controls the training-data collector.
type CaptureConfig struct {
	Enabled         bool     `toml:"enabled"`
	TopLevels       int      `toml:"top_levels"`
	BatchSize       int      `toml:"batch_size"`
	FlushInterval   duration `toml:"flush_interval"`
	PathPrefix      string   `toml:"path_prefix"`
	SyntheticMakers bool     `toml:"synthetic_makers"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for capture
// batches.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the HTTP API server configuration.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// Defaults returns the built-in configuration, matching the parameters the
// models were tuned with.
func Defaults() Config {
	return Config{
		Exchange: ExchangeConfig{
			WsURL:        "wss://ws.okx.com:8443/ws/v5/public",
			Instrument:   "BTC-USDT",
			BookChannel:  "books",
			TradeChannel: "trades",
		},
		Volatility: VolatilityConfig{
			WindowSize: 60,
		},
		Slippage: SlippageConfig{
			Quantile: 0.9,
		},
		Fees: FeesConfig{
			MinimumFee: 0.1,
		},
		Impact: ImpactConfig{
			Alpha:        1,
			Beta:         1,
			Gamma:        0.05,
			Eta:          0.05,
			RiskAversion: 0.001,
			TimeSteps:    5,
			TimeStepSize: 0.5,
			UnitScale:    1e3,
			MaxInventory: 10_000,
		},
		Classifier: ClassifierConfig{
			Means:     []float64{0, 0, 0, 0.5},
			Scales:    []float64{1, 1, 1, 1},
			Weights:   []float64{0, 0, 0, 0},
			Intercept: 0,
		},
		Capture: CaptureConfig{
			Enabled:         false,
			TopLevels:       10,
			BatchSize:       500,
			FlushInterval:   duration{30 * time.Second},
			PathPrefix:      "capture",
			SyntheticMakers: true,
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "costsim",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "costsim-data",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "estimate",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"estimate": true,
	"capture":  true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// needsCapture reports whether the mode runs the training-data collector.
func needsCapture(mode string) bool {
	return mode == "capture" || mode == "full"
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: estimate, capture, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchange
	if c.Exchange.WsURL == "" {
		errs = append(errs, "exchange: ws_url must not be empty")
	}
	if c.Exchange.Instrument == "" {
		errs = append(errs, "exchange: instrument must not be empty")
	}

	// Volatility
	if c.Volatility.WindowSize < 2 {
		errs = append(errs, fmt.Sprintf("volatility: window_size must be >= 2, got %d", c.Volatility.WindowSize))
	}

	// Slippage
	if c.Slippage.Quantile <= 0 || c.Slippage.Quantile >= 1 {
		errs = append(errs, fmt.Sprintf("slippage: quantile must be in (0, 1), got %v", c.Slippage.Quantile))
	}

	// Fees
	if c.Fees.MinimumFee < 0 {
		errs = append(errs, "fees: minimum_fee must be >= 0")
	}
	for i, t := range c.Fees.Tiers {
		if t.VolumeUSD < 0 || t.MakerRate < 0 || t.TakerRate < 0 {
			errs = append(errs, fmt.Sprintf("fees: tier %d has negative values", i))
		}
	}

	// Impact
	if c.Impact.Alpha <= 0 || c.Impact.Beta <= 0 || c.Impact.Gamma <= 0 || c.Impact.Eta <= 0 || c.Impact.RiskAversion <= 0 {
		errs = append(errs, "impact: alpha, beta, gamma, eta, and risk_aversion must all be positive")
	}
	if c.Impact.TimeSteps < 2 {
		errs = append(errs, fmt.Sprintf("impact: time_steps must be >= 2, got %d", c.Impact.TimeSteps))
	}
	if c.Impact.TimeStepSize <= 0 {
		errs = append(errs, "impact: time_step_size must be positive")
	}
	if c.Impact.UnitScale <= 0 {
		errs = append(errs, "impact: unit_scale must be positive")
	}
	if c.Impact.MaxInventory <= 0 {
		errs = append(errs, "impact: max_inventory must be positive")
	}

	// Classifier — all three vectors must be 4 wide.
	if len(c.Classifier.Means) != 4 || len(c.Classifier.Scales) != 4 || len(c.Classifier.Weights) != 4 {
		errs = append(errs, fmt.Sprintf("classifier: means, scales, and weights must each have 4 entries, got %d/%d/%d",
			len(c.Classifier.Means), len(c.Classifier.Scales), len(c.Classifier.Weights)))
	}

	// Capture
	if needsCapture(mode) && c.Capture.Enabled {
		if c.Capture.TopLevels <= 0 {
			errs = append(errs, "capture: top_levels must be positive")
		}
		if c.Capture.BatchSize <= 0 {
			errs = append(errs, "capture: batch_size must be positive")
		}
		if c.Capture.FlushInterval.Duration <= 0 {
			errs = append(errs, "capture: flush_interval must be positive")
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when capture is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when capture is enabled")
		}
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
