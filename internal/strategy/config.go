package strategy

// MachineConfig configures the deterministic strategy state machine.
// Defaults match the documented zone/break/confirmation tuning.
type MachineConfig struct {
	ZoneBuildBars       int     `json:"zone_build_bars"`        // N, default 6 (30 minutes of 5m bars)
	MinZoneSpreadCents  int64   `json:"min_zone_spread_cents"`  // DEGENERATE threshold
	MaxZoneSpreadPercent float64 `json:"max_zone_spread_percent"` // DEGENERATE threshold, spread/midPrice
	MaxBreakAttempts    int     `json:"max_break_attempts"`     // per direction, default 3
	TrailingStopAt1R    bool    `json:"trailing_stop_at_1r"`    // move stop to breakeven on first 1R touch
}

// DefaultMachineConfig returns the default tuning.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		ZoneBuildBars:        6,
		MinZoneSpreadCents:   10,
		MaxZoneSpreadPercent: 5.0,
		MaxBreakAttempts:     3,
		TrailingStopAt1R:     true,
	}
}

func withDefaults(cfg MachineConfig) MachineConfig {
	d := DefaultMachineConfig()
	if cfg.ZoneBuildBars == 0 {
		cfg.ZoneBuildBars = d.ZoneBuildBars
	}
	if cfg.MinZoneSpreadCents == 0 {
		cfg.MinZoneSpreadCents = d.MinZoneSpreadCents
	}
	if cfg.MaxZoneSpreadPercent == 0 {
		cfg.MaxZoneSpreadPercent = d.MaxZoneSpreadPercent
	}
	if cfg.MaxBreakAttempts == 0 {
		cfg.MaxBreakAttempts = d.MaxBreakAttempts
	}
	return cfg
}
