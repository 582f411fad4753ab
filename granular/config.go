package granular

import "fmt"

// LimiterConfig configures the look-ahead true-peak limiter (spec §4.8).
type LimiterConfig struct {
	LookaheadMs float64
	Ceiling     float64
	ReleaseMs   float64
	MasterTrim  float64
	Extra       int
}

// DefaultLimiterConfig returns the spec's documented defaults.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		LookaheadMs: 3,
		Ceiling:     0.98,
		ReleaseMs:   50,
		MasterTrim:  0.80,
		Extra:       256,
	}
}

func (c LimiterConfig) Validate() error {
	if c.LookaheadMs < 0 {
		return fmt.Errorf("limiter lookahead_ms must be >= 0: %v", c.LookaheadMs)
	}
	if c.Ceiling <= 0 || c.Ceiling > 1 {
		return fmt.Errorf("limiter ceiling must be in (0,1]: %v", c.Ceiling)
	}
	if c.ReleaseMs <= 0 {
		return fmt.Errorf("limiter release_ms must be > 0: %v", c.ReleaseMs)
	}
	if c.MasterTrim <= 0 {
		return fmt.Errorf("limiter master_trim must be > 0: %v", c.MasterTrim)
	}
	if c.Extra < 0 {
		return fmt.Errorf("limiter extra must be >= 0: %v", c.Extra)
	}
	return nil
}

// Config is the engine construction config (spec §6).
type Config struct {
	SampleRate       int
	MaxGrains        int
	EnvTableSize     int
	FilterTauMs      float64
	Limiter          LimiterConfig
	KillTailMs       float64
	GainTauMs        float64
	MaxSpawnPerBlock int // 0 means "auto": max(24, 32*sr/48000)
}

// DefaultConfig returns the spec's documented defaults for every field
// except SampleRate, which has no sensible default and must be supplied
// by the caller.
func DefaultConfig() Config {
	return Config{
		MaxGrains:        1024,
		EnvTableSize:     1024,
		FilterTauMs:      25,
		Limiter:          DefaultLimiterConfig(),
		KillTailMs:       28,
		GainTauMs:        20,
		MaxSpawnPerBlock: 0,
	}
}

// ConfigError reports a fatal construction-time problem (spec §4.10, §7).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "granular: invalid config: " + e.Reason
}

// Validate checks the fatal preconditions from spec §4.10: sample rate
// must be positive, stereo output must be available (implicit in this
// package — the engine always renders two channels), and MAX_GRAINS must
// be at least 1.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("sample_rate must be > 0, got %d", c.SampleRate)}
	}
	if c.MaxGrains < 1 {
		return &ConfigError{Reason: fmt.Sprintf("max_grains must be >= 1, got %d", c.MaxGrains)}
	}
	if c.EnvTableSize < 2 {
		return &ConfigError{Reason: fmt.Sprintf("env_table must be >= 2, got %d", c.EnvTableSize)}
	}
	if c.FilterTauMs <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("filter_tau_ms must be > 0, got %v", c.FilterTauMs)}
	}
	if c.KillTailMs < 0 {
		return &ConfigError{Reason: fmt.Sprintf("kill_tail_ms must be >= 0, got %v", c.KillTailMs)}
	}
	if c.GainTauMs <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("gain_tau_ms must be > 0, got %v", c.GainTauMs)}
	}
	if c.MaxSpawnPerBlock < 0 {
		return &ConfigError{Reason: fmt.Sprintf("max_spawn_per_block must be >= 0, got %d", c.MaxSpawnPerBlock)}
	}
	if err := c.Limiter.Validate(); err != nil {
		return &ConfigError{Reason: err.Error()}
	}
	return nil
}

// withDefaults replaces zero-valued top-level fields of c with the
// DefaultConfig values, keeping SampleRate as given (MaxSpawnPerBlock is
// left at 0, which already means "auto"). The Limiter block is replaced
// as a whole, and only when its Ceiling is 0; its other fields are not
// merged one by one.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxGrains == 0 {
		c.MaxGrains = def.MaxGrains
	}
	if c.EnvTableSize == 0 {
		c.EnvTableSize = def.EnvTableSize
	}
	if c.FilterTauMs == 0 {
		c.FilterTauMs = def.FilterTauMs
	}
	if c.KillTailMs == 0 {
		c.KillTailMs = def.KillTailMs
	}
	if c.GainTauMs == 0 {
		c.GainTauMs = def.GainTauMs
	}
	if c.Limiter.Ceiling == 0 {
		c.Limiter = def.Limiter
	}
	return c
}

func (c Config) maxSpawnPerBlock() int {
	if c.MaxSpawnPerBlock > 0 {
		return c.MaxSpawnPerBlock
	}
	return maxInt(24, 32*c.SampleRate/48000)
}
