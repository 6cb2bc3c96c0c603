package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COSTSIM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COSTSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setStr(&cfg.Exchange.WsURL, "COSTSIM_EXCHANGE_WS_URL")
	setStr(&cfg.Exchange.Instrument, "COSTSIM_EXCHANGE_INSTRUMENT")
	setStr(&cfg.Exchange.BookChannel, "COSTSIM_EXCHANGE_BOOK_CHANNEL")
	setStr(&cfg.Exchange.TradeChannel, "COSTSIM_EXCHANGE_TRADE_CHANNEL")

	// ── Models ──
	setInt(&cfg.Volatility.WindowSize, "COSTSIM_VOLATILITY_WINDOW_SIZE")
	setFloat64(&cfg.Slippage.Quantile, "COSTSIM_SLIPPAGE_QUANTILE")
	setFloat64(&cfg.Fees.MinimumFee, "COSTSIM_FEES_MINIMUM_FEE")
	setFloat64(&cfg.Impact.Alpha, "COSTSIM_IMPACT_ALPHA")
	setFloat64(&cfg.Impact.Beta, "COSTSIM_IMPACT_BETA")
	setFloat64(&cfg.Impact.Gamma, "COSTSIM_IMPACT_GAMMA")
	setFloat64(&cfg.Impact.Eta, "COSTSIM_IMPACT_ETA")
	setFloat64(&cfg.Impact.RiskAversion, "COSTSIM_IMPACT_RISK_AVERSION")
	setInt(&cfg.Impact.TimeSteps, "COSTSIM_IMPACT_TIME_STEPS")
	setFloat64(&cfg.Impact.TimeStepSize, "COSTSIM_IMPACT_TIME_STEP_SIZE")
	setFloat64(&cfg.Impact.UnitScale, "COSTSIM_IMPACT_UNIT_SCALE")
	setInt(&cfg.Impact.MaxInventory, "COSTSIM_IMPACT_MAX_INVENTORY")

	// ── Capture ──
	setBool(&cfg.Capture.Enabled, "COSTSIM_CAPTURE_ENABLED")
	setInt(&cfg.Capture.TopLevels, "COSTSIM_CAPTURE_TOP_LEVELS")
	setInt(&cfg.Capture.BatchSize, "COSTSIM_CAPTURE_BATCH_SIZE")
	setDuration(&cfg.Capture.FlushInterval, "COSTSIM_CAPTURE_FLUSH_INTERVAL")
	setStr(&cfg.Capture.PathPrefix, "COSTSIM_CAPTURE_PATH_PREFIX")
	setBool(&cfg.Capture.SyntheticMakers, "COSTSIM_CAPTURE_SYNTHETIC_MAKERS")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "COSTSIM_SUPABASE_DSN")
	setStr(&cfg.Supabase.Host, "COSTSIM_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "COSTSIM_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "COSTSIM_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "COSTSIM_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "COSTSIM_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "COSTSIM_SUPABASE_SSLMODE")
	setInt(&cfg.Supabase.PoolMaxConns, "COSTSIM_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "COSTSIM_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "COSTSIM_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COSTSIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COSTSIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COSTSIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COSTSIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COSTSIM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COSTSIM_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "COSTSIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COSTSIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "COSTSIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COSTSIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COSTSIM_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "COSTSIM_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "COSTSIM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "COSTSIM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "COSTSIM_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "COSTSIM_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "COSTSIM_MODE")
	setStr(&cfg.LogLevel, "COSTSIM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
