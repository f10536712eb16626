// Package config holds the Config tree the entrypoint loads and the core
// packages consume. Core packages never parse files or flags themselves —
// that loading lives in cmd/ — they only accept an already-populated Config.
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"sessioncore/internal/clock"
	"sessioncore/internal/pacing"
	"sessioncore/internal/strategy"
)

// Config is the full application configuration tree.
type Config struct {
	App       AppConfig       `json:"app"`
	Session   SessionConfig   `json:"session"`
	Strategy  StrategyConfig  `json:"strategy"`
	Pacing    PacingConfig    `json:"pacing"`
	Risk      RiskConfig      `json:"risk"`
	Stream    StreamConfig    `json:"stream"`
	Execution ExecutionConfig `json:"execution"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Backtest  BacktestConfig  `json:"backtest"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Name        string `json:"name"`
	Environment string `json:"environment"` // "development", "production"
	MetricsAddr string `json:"metrics_addr"`
}

// SessionConfig selects what the runner trades and in which mode.
type SessionConfig struct {
	Symbol        string              `json:"symbol"`
	ExecutionMode string              `json:"execution_mode"` // "LIVE", "BACKTEST"
	Windows       clock.WindowPreset  `json:"windows"`
}

// StrategyConfig mirrors strategy.MachineConfig for JSON loading.
type StrategyConfig struct {
	ZoneBuildBars        int     `json:"zone_build_bars"`
	MinZoneSpreadCents   int64   `json:"min_zone_spread_cents"`
	MaxZoneSpreadPercent float64 `json:"max_zone_spread_percent"`
	MaxBreakAttempts     int     `json:"max_break_attempts"`
	TrailingStopAt1R     bool    `json:"trailing_stop_at_1r"`
}

// ToMachineConfig converts to the strategy package's runtime config type.
func (s StrategyConfig) ToMachineConfig() strategy.MachineConfig {
	return strategy.MachineConfig{
		ZoneBuildBars:        s.ZoneBuildBars,
		MinZoneSpreadCents:   s.MinZoneSpreadCents,
		MaxZoneSpreadPercent: s.MaxZoneSpreadPercent,
		MaxBreakAttempts:     s.MaxBreakAttempts,
		TrailingStopAt1R:     s.TrailingStopAt1R,
	}
}

// PacingConfig mirrors pacing.Config for JSON loading.
type PacingConfig struct {
	IdentityWindowMs int64 `json:"identity_window_ms"`
	BurstLimit       int   `json:"burst_limit"`
	BurstWindowMs    int64 `json:"burst_window_ms"`
	GlobalLimit      int   `json:"global_limit"`
	GlobalWindowMs   int64 `json:"global_window_ms"`
}

func (p PacingConfig) ToPacingConfig() pacing.Config {
	return pacing.Config{
		IdentityWindowMs: p.IdentityWindowMs,
		BurstLimit:       p.BurstLimit,
		BurstWindowMs:    p.BurstWindowMs,
		GlobalLimit:      p.GlobalLimit,
		GlobalWindowMs:   p.GlobalWindowMs,
	}
}

// RiskConfig tunes account-level guardrails around the single per-session
// trade (position sizing beyond unit quantity is explicitly out of scope,
// so this only bounds how many sessions may run unattended).
type RiskConfig struct {
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxDailyLossR        float64 `json:"max_daily_loss_r"`
}

// StreamConfig configures the MarketDataProvider collaborator.
type StreamConfig struct {
	ProviderType   string        `json:"provider_type"` // "simulation", "live"
	WSSURL         string        `json:"ws_url"`
	ReconnectDelay time.Duration `json:"reconnect_delay"`
	MaxRetries     int           `json:"max_retries"`
}

// ExecutionConfig configures the OrderExecutionProvider collaborator.
type ExecutionConfig struct {
	ProviderType    string        `json:"provider_type"` // "mock", "live"
	CommissionCents int64         `json:"commission_cents"`
	Timeout         time.Duration `json:"timeout"`
}

// StorageConfig configures the StorageProvider collaborator. SQLite
// persistence is out of scope; this only selects the in-memory reference
// implementation's retention.
type StorageConfig struct {
	MaxSessionsRetained int `json:"max_sessions_retained"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	Directory  string `json:"directory"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	Compress   bool   `json:"compress"`
}

// BacktestConfig configures historical replay runs.
type BacktestConfig struct {
	DataDirectory    string `json:"data_directory"`
	ResultsDirectory string `json:"results_directory"`
	ExportTrades     bool   `json:"export_trades"`
}

// DefaultConfig returns the default tuning across every subsystem.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "sessioncore",
			Environment: "development",
			MetricsAddr: ":9090",
		},
		Session: SessionConfig{
			Symbol:        "SPY",
			ExecutionMode: "BACKTEST",
			Windows:       clock.DefaultPreset,
		},
		Strategy: StrategyConfig{
			ZoneBuildBars:        6,
			MinZoneSpreadCents:   10,
			MaxZoneSpreadPercent: 5.0,
			MaxBreakAttempts:     3,
			TrailingStopAt1R:     true,
		},
		Pacing: PacingConfig{
			IdentityWindowMs: 15_000,
			BurstLimit:       6,
			BurstWindowMs:    2_000,
			GlobalLimit:      60,
			GlobalWindowMs:   600_000,
		},
		Risk: RiskConfig{
			MaxConsecutiveLosses: 3,
			MaxDailyLossR:        3.0,
		},
		Stream: StreamConfig{
			ProviderType:   "simulation",
			ReconnectDelay: 5 * time.Second,
			MaxRetries:     3,
		},
		Execution: ExecutionConfig{
			ProviderType: "mock",
			Timeout:      10 * time.Second,
		},
		Storage: StorageConfig{
			MaxSessionsRetained: 500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			Directory:  "./logs",
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
		Backtest: BacktestConfig{
			DataDirectory:    "./data",
			ResultsDirectory: "./results",
			ExportTrades:     true,
		},
	}
}

// LoadConfig reads and parses a JSON config file, falling back to defaults
// for any zero-valued field left unset by Validate's callers.
func LoadConfig(configPath string) (*Config, error) {
	data, err := ioutil.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to configPath as indented JSON.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := ioutil.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Session.Symbol == "" {
		return fmt.Errorf("session.symbol is required")
	}
	if c.Session.ExecutionMode != "LIVE" && c.Session.ExecutionMode != "BACKTEST" {
		return fmt.Errorf("session.execution_mode must be LIVE or BACKTEST, got %q", c.Session.ExecutionMode)
	}
	if c.Strategy.ZoneBuildBars <= 0 {
		return fmt.Errorf("strategy.zone_build_bars must be positive")
	}
	if c.Strategy.MaxBreakAttempts <= 0 {
		return fmt.Errorf("strategy.max_break_attempts must be positive")
	}
	if c.Pacing.BurstLimit <= 0 || c.Pacing.GlobalLimit <= 0 {
		return fmt.Errorf("pacing burst_limit and global_limit must be positive")
	}
	if c.Pacing.BurstWindowMs <= 0 || c.Pacing.GlobalWindowMs <= 0 {
		return fmt.Errorf("pacing burst_window_ms and global_window_ms must be positive")
	}
	return nil
}

// GetEnv returns the environment variable or defaultValue if unset.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the environment variable parsed as a bool, or
// defaultValue if unset/unparsable.
func GetEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// GetEnvFloat returns the environment variable parsed as a float64, or
// defaultValue if unset/unparsable.
func GetEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// GetEnvInt returns the environment variable parsed as an int, or
// defaultValue if unset/unparsable.
func GetEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}
