package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete collector configuration.
type Config struct {
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Filtering FilteringConfig `mapstructure:"filtering"`
	Alpha     AlphaConfig     `mapstructure:"alpha"`
	Report    ReportConfig    `mapstructure:"report"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ScoringConfig holds the weighted-sum formula parameters.
type ScoringConfig struct {
	WeightUSD        float64 `mapstructure:"weight_usd"`
	WeightLabel      float64 `mapstructure:"weight_label"`
	WeightAlpha      float64 `mapstructure:"weight_alpha"`
	WeightVolZ       float64 `mapstructure:"weight_volz"`
	WeightBias       float64 `mapstructure:"weight_bias"`
	PenaltyExplosive float64 `mapstructure:"penalty_explosive"`
	PenaltyLowLiq    float64 `mapstructure:"penalty_low_liq"`
	SignalThreshold  float64 `mapstructure:"signal_threshold"`
	HoldDelta        float64 `mapstructure:"hold_delta"`
	Materiality      float64 `mapstructure:"materiality"`
	VolumeZThreshold float64 `mapstructure:"volume_z_threshold"`
}

// FilteringConfig holds the admission gate parameters.
type FilteringConfig struct {
	MinUSDNotional    float64       `mapstructure:"min_usd_notional"`
	LiquidityMinScore float64       `mapstructure:"liquidity_min_score"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	DynamicFloor      bool          `mapstructure:"dynamic_floor"`
	FloorQuantile     float64       `mapstructure:"floor_quantile"`
	FloorLookback     time.Duration `mapstructure:"floor_lookback"`
	FloorMinSamples   int           `mapstructure:"floor_min_samples"`
	FloorFallback     float64       `mapstructure:"floor_fallback"`
}

// AlphaConfig holds the wallet alpha estimator parameters.
type AlphaConfig struct {
	HalfLife   time.Duration `mapstructure:"half_life"`
	Window1h   time.Duration `mapstructure:"window_1h"`
	Window4h   time.Duration `mapstructure:"window_4h"`
	Window24h  time.Duration `mapstructure:"window_24h"`
	TopWallets int           `mapstructure:"top_wallets"`
	MinEvents  int           `mapstructure:"min_events"`
}

// ReportConfig holds summary rendering parameters.
type ReportConfig struct {
	TopN     int    `mapstructure:"top_n"`
	Timezone string `mapstructure:"timezone"`
	OutDir   string `mapstructure:"out_dir"`
}

// StorageConfig holds persistence backend selection.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file and environment
// variables. An empty path loads defaults plus SMC_ env overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SMC")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Scoring defaults
	v.SetDefault("scoring.weight_usd", 0.25)
	v.SetDefault("scoring.weight_label", 0.25)
	v.SetDefault("scoring.weight_alpha", 0.25)
	v.SetDefault("scoring.weight_volz", 0.15)
	v.SetDefault("scoring.weight_bias", 0.10)
	v.SetDefault("scoring.penalty_explosive", 0.15)
	v.SetDefault("scoring.penalty_low_liq", 0.10)
	v.SetDefault("scoring.signal_threshold", 0.65)
	v.SetDefault("scoring.hold_delta", 0.05)
	v.SetDefault("scoring.materiality", 0.05)
	v.SetDefault("scoring.volume_z_threshold", 1.645)

	// Filtering defaults
	v.SetDefault("filtering.min_usd_notional", 100000.0)
	v.SetDefault("filtering.liquidity_min_score", 0.5)
	v.SetDefault("filtering.cooldown", "30m")
	v.SetDefault("filtering.dynamic_floor", false)
	v.SetDefault("filtering.floor_quantile", 0.90)
	v.SetDefault("filtering.floor_lookback", "168h")
	v.SetDefault("filtering.floor_min_samples", 30)
	v.SetDefault("filtering.floor_fallback", 10000.0)

	// Alpha defaults
	v.SetDefault("alpha.half_life", "2160h") // 90 days
	v.SetDefault("alpha.window_1h", "1h")
	v.SetDefault("alpha.window_4h", "4h")
	v.SetDefault("alpha.window_24h", "24h")
	v.SetDefault("alpha.top_wallets", 200)
	v.SetDefault("alpha.min_events", 3)

	// Report defaults
	v.SetDefault("report.top_n", 3)
	v.SetDefault("report.timezone", "UTC")
	v.SetDefault("report.out_dir", "./reports")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid. A violation
// is fatal at startup; the pipeline never runs on a bad config.
func (c *Config) Validate() error {
	s := c.Scoring
	for name, w := range map[string]float64{
		"scoring.weight_usd":   s.WeightUSD,
		"scoring.weight_label": s.WeightLabel,
		"scoring.weight_alpha": s.WeightAlpha,
		"scoring.weight_volz":  s.WeightVolZ,
		"scoring.weight_bias":  s.WeightBias,
	} {
		if w < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if s.WeightUSD+s.WeightLabel+s.WeightAlpha+s.WeightVolZ+s.WeightBias <= 0 {
		return fmt.Errorf("scoring weights must not all be zero")
	}
	if s.PenaltyExplosive < 0 || s.PenaltyExplosive > 1 {
		return fmt.Errorf("scoring.penalty_explosive must be between 0.0 and 1.0")
	}
	if s.PenaltyLowLiq < 0 || s.PenaltyLowLiq > 1 {
		return fmt.Errorf("scoring.penalty_low_liq must be between 0.0 and 1.0")
	}
	if s.SignalThreshold < 0 || s.SignalThreshold > 1 {
		return fmt.Errorf("scoring.signal_threshold must be between 0.0 and 1.0")
	}
	if s.HoldDelta < 0 || s.HoldDelta > 1 {
		return fmt.Errorf("scoring.hold_delta must be between 0.0 and 1.0")
	}
	if s.Materiality < 0 || s.Materiality > 1 {
		return fmt.Errorf("scoring.materiality must be between 0.0 and 1.0")
	}
	if s.VolumeZThreshold <= 0 {
		return fmt.Errorf("scoring.volume_z_threshold must be positive")
	}

	f := c.Filtering
	if f.MinUSDNotional < 0 {
		return fmt.Errorf("filtering.min_usd_notional must not be negative")
	}
	if f.LiquidityMinScore < 0 || f.LiquidityMinScore > 1 {
		return fmt.Errorf("filtering.liquidity_min_score must be between 0.0 and 1.0")
	}
	if f.Cooldown < 0 {
		return fmt.Errorf("filtering.cooldown must not be negative")
	}
	if f.FloorQuantile <= 0 || f.FloorQuantile >= 1 {
		return fmt.Errorf("filtering.floor_quantile must be strictly between 0.0 and 1.0")
	}
	if f.FloorLookback <= 0 {
		return fmt.Errorf("filtering.floor_lookback must be positive")
	}
	if f.FloorMinSamples < 1 {
		return fmt.Errorf("filtering.floor_min_samples must be at least 1")
	}
	if f.FloorFallback < 0 {
		return fmt.Errorf("filtering.floor_fallback must not be negative")
	}

	a := c.Alpha
	if a.HalfLife <= 0 {
		return fmt.Errorf("alpha.half_life must be positive")
	}
	if a.Window1h <= 0 || a.Window4h <= 0 || a.Window24h <= 0 {
		return fmt.Errorf("alpha windows must be positive")
	}
	if !(a.Window1h < a.Window4h && a.Window4h < a.Window24h) {
		return fmt.Errorf("alpha windows must be strictly increasing")
	}
	if a.TopWallets < 1 {
		return fmt.Errorf("alpha.top_wallets must be at least 1")
	}
	if a.MinEvents < 1 {
		return fmt.Errorf("alpha.min_events must be at least 1")
	}

	if c.Report.TopN < 1 {
		return fmt.Errorf("report.top_n must be at least 1")
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone is not a valid location: %w", err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Location resolves the configured report timezone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
