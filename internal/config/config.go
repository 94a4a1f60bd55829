// Package config defines process-wide configuration for the matching
// engine and its analytics/execution/simulation components. Config is
// loaded from a YAML file with environment override prefix LOB_.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"lobengine/internal/execution"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Book           BookConfig           `mapstructure:"book"`
	Analytics      AnalyticsConfig      `mapstructure:"analytics"`
	Calibrator     CalibratorConfig     `mapstructure:"calibrator"`
	Scheduler      SchedulerConfig      `mapstructure:"scheduler"`
	VolumeWeighted VolumeWeightedConfig `mapstructure:"volume_weighted"`
	RiskAware      RiskAwareConfig      `mapstructure:"risk_aware"`
	Simulator      SimulatorConfig      `mapstructure:"simulator"`
	Monitor        MonitorConfig        `mapstructure:"monitor"`
}

// BookConfig controls order-book-wide behavior: fee schedule, self-trade
// prevention, and the active symbol.
type BookConfig struct {
	EnableSelfTradePrevention bool    `mapstructure:"enable_self_trade_prevention"`
	MakerFeeRate              float64 `mapstructure:"maker_fee_rate"`
	TakerFeeRate              float64 `mapstructure:"taker_fee_rate"`
	CurrentSymbol             string  `mapstructure:"current_symbol"`
}

// AnalyticsConfig controls internal/analytics.Tracker's flow-window sizing
// and per-symbol ADV tracking.
type AnalyticsConfig struct {
	FlowWindowSeconds   int               `mapstructure:"flow_window_seconds"`
	MaxWindows          int               `mapstructure:"max_windows"`
	TrackPerSymbol      bool              `mapstructure:"track_per_symbol"`
	AutoCalibrateImpact bool              `mapstructure:"auto_calibrate_impact"`
	SymbolADV           map[string]uint64 `mapstructure:"symbol_adv"`
}

// CalibratorConfig controls internal/impact.Calibrator's observation
// admission thresholds.
type CalibratorConfig struct {
	MinParticipationRate float64 `mapstructure:"min_participation_rate"`
	MinPriceImpact       float64 `mapstructure:"min_price_impact"`
}

// SchedulerConfig holds the fields every internal/execution.Scheduler
// shares: duration, slice count, and whether to post limit or market orders.
type SchedulerConfig struct {
	DurationSeconds int     `mapstructure:"duration_seconds"`
	NumSlices       int     `mapstructure:"num_slices"`
	UseLimitOrders  bool    `mapstructure:"use_limit_orders"`
	LimitOffsetBps  float64 `mapstructure:"limit_offset_bps"`
}

// VolumeWeightedConfig controls internal/execution.VolumeWeighted.
type VolumeWeightedConfig struct {
	Profile           string    `mapstructure:"profile"`
	CustomWeights     []float64 `mapstructure:"custom_weights"`
	UseRealTimeVolume bool      `mapstructure:"use_real_time_volume"`
	ParticipationRate float64   `mapstructure:"participation_rate"` // clamped to [0.01, 0.5]
}

// ResolvedProfile resolves the configured profile name to an
// internal/execution.Profile, defaulting to uniform on an unknown value.
func (c VolumeWeightedConfig) ResolvedProfile() execution.Profile {
	switch strings.ToLower(c.Profile) {
	case "u_shaped":
		return execution.ProfileUShaped
	case "morning_weighted":
		return execution.ProfileMorningWeighted
	case "afternoon_weighted":
		return execution.ProfileAfternoonWeighted
	case "custom":
		return execution.ProfileCustom
	default:
		return execution.ProfileUniform
	}
}

// RiskAwareConfig controls internal/execution.RiskAware.
type RiskAwareConfig struct {
	RiskAversion    float64 `mapstructure:"risk_aversion"`
	Volatility      float64 `mapstructure:"volatility"` // floored at 0.001
	PermanentImpact float64 `mapstructure:"permanent_impact"`
	TemporaryImpact float64 `mapstructure:"temporary_impact"`
	ADV             float64 `mapstructure:"adv"`
}

// SimulatorConfig controls internal/simulator.Simulator.
type SimulatorConfig struct {
	InitialPrice      float64 `mapstructure:"initial_price"`
	Volatility        float64 `mapstructure:"volatility"`
	SpreadBps         float64 `mapstructure:"spread_bps"`
	ADV               float64 `mapstructure:"adv"`
	TickSize          float64 `mapstructure:"tick_size"`
	TicksPerSecond    float64 `mapstructure:"ticks_per_second"`
	FillProbability   float64 `mapstructure:"fill_probability"`
	ApplyMarketImpact bool    `mapstructure:"apply_market_impact"`
	RandomSeed        int64   `mapstructure:"random_seed"`
}

// MonitorConfig controls internal/perfmon's Prometheus registration and the
// monitoring HTTP surface (internal/api). Addr and AllowedOrigins are
// ambient server-wiring concerns any HTTP-serving component needs.
type MonitorConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// defaults seeds the values that need a usable default, so a
// minimal YAML file (or none at all, under pure env-var configuration)
// still produces a usable Config.
func defaults(v *viper.Viper) {
	v.SetDefault("analytics.flow_window_seconds", 60)
	v.SetDefault("analytics.max_windows", 60)
	v.SetDefault("calibrator.min_participation_rate", 1e-4)
	v.SetDefault("calibrator.min_price_impact", 1e-4)
	v.SetDefault("volume_weighted.participation_rate", 0.1)
	v.SetDefault("risk_aware.volatility", 0.001)
	v.SetDefault("monitor.addr", ":8090")
}

// Load reads config from a YAML file with LOB_ environment variable
// overrides (e.g. LOB_BOOK_MAKER_FEE_RATE overrides book.maker_fee_rate).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LOB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges that would otherwise produce silently wrong
// behavior deep in the components that consume them.
func (c *Config) Validate() error {
	if c.Book.MakerFeeRate < 0 || c.Book.TakerFeeRate < 0 {
		return fmt.Errorf("book.maker_fee_rate and book.taker_fee_rate must be >= 0")
	}
	if c.Scheduler.NumSlices < 0 {
		return fmt.Errorf("scheduler.num_slices must be >= 0")
	}
	if c.VolumeWeighted.ParticipationRate != 0 {
		if c.VolumeWeighted.ParticipationRate < 0.01 || c.VolumeWeighted.ParticipationRate > 0.5 {
			return fmt.Errorf("volume_weighted.participation_rate must be in [0.01, 0.5]")
		}
	}
	if c.Simulator.TickSize < 0 {
		return fmt.Errorf("simulator.tick_size must be >= 0")
	}
	return nil
}
