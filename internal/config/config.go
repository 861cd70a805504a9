// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation tuning and server settings.
//
// Values come from the defaults below, then an optional YAML tuning file
// (HORDE_CONFIG), then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// ArenaConfig describes the playable region.
type ArenaConfig struct {
	HalfExtent     float64 `yaml:"halfExtent"`     // x and z are clamped to [-HalfExtent, HalfExtent]
	CellSize       float64 `yaml:"cellSize"`       // spatial index cell edge
	StandingHeight float64 `yaml:"standingHeight"` // y of a living entity
}

// CombatConfig holds damage amounts, thresholds and cooldowns.
// One consistent set: three player hits kill a full-health zombie.
type CombatConfig struct {
	StartHealth          int           `yaml:"startHealth"`
	PlayerHitDamage      int           `yaml:"playerHitDamage"`
	AllyHitDamage        int           `yaml:"allyHitDamage"`
	LargeDamageThreshold int           `yaml:"largeDamageThreshold"` // lethal blows at or above explode
	ChainRadius          float64       `yaml:"chainRadius"`
	ChainChance          float64       `yaml:"chainChance"`
	ChainDamage          int           `yaml:"chainDamage"`
	MeleeRange           float64       `yaml:"meleeRange"`
	ContactDamage        int           `yaml:"contactDamage"`
	ContactCooldown      time.Duration `yaml:"contactCooldown"`
	MaxWounds            int           `yaml:"maxWounds"`
	ExplosionRadius      float64       `yaml:"explosionRadius"`
	ExplosionLife        time.Duration `yaml:"explosionLife"`
	MaxExplosions        int           `yaml:"maxExplosions"`
}

// LifecycleConfig holds fixed animation/telegraph durations.
type LifecycleConfig struct {
	WarningDuration time.Duration `yaml:"warningDuration"`
	FallDuration    time.Duration `yaml:"fallDuration"`
}

// WaveConfig drives the wave, burst and background spawn cadences.
type WaveConfig struct {
	InitialWaveInterval   time.Duration `yaml:"initialWaveInterval"`
	WaveIntervalStep      time.Duration `yaml:"waveIntervalStep"`
	MinWaveInterval       time.Duration `yaml:"minWaveInterval"`
	BurstScale            int           `yaml:"burstScale"` // burst = fib(wave+5) * BurstScale
	BurstInterval         time.Duration `yaml:"burstInterval"`
	BurstIntervalStep     time.Duration `yaml:"burstIntervalStep"`
	MinBurstInterval      time.Duration `yaml:"minBurstInterval"`
	BackgroundInterval    time.Duration `yaml:"backgroundInterval"`
	BackgroundStep        time.Duration `yaml:"backgroundStep"`
	MinBackgroundInterval time.Duration `yaml:"minBackgroundInterval"`
	BaseSpeed             float64       `yaml:"baseSpeed"`
	SpeedStep             float64       `yaml:"speedStep"`
	MaxSpeed              float64       `yaml:"maxSpeed"`
	SpeedVariance         float64       `yaml:"speedVariance"` // speed = base * (1 - v/2 + rand*v)
}

// SteeringConfig holds seek/separation weights.
type SteeringConfig struct {
	SeekWeight       float64       `yaml:"seekWeight"`
	SeparationWeight float64       `yaml:"separationWeight"`
	SeparationRadius float64       `yaml:"separationRadius"` // at low density, shrinks as counts grow
	TurnSmoothTime   time.Duration `yaml:"turnSmoothTime"`
}

// TierConfig is the derated parameter set for one performance tier.
type TierConfig struct {
	Name              string  `yaml:"name"`
	EnterBelow        float64 `yaml:"enterBelow"` // average fps that drops into this tier
	ExitAbove         float64 `yaml:"exitAbove"`  // average fps that climbs out of it
	MaxEntities       int     `yaml:"maxEntities"`
	BatchGroups       int     `yaml:"batchGroups"`
	SeparationEvery   int     `yaml:"separationEvery"`
	SkipDistance      float64 `yaml:"skipDistance"` // 0 disables distance skipping
	SkipTicks         int     `yaml:"skipTicks"`
	OrientationRadius float64 `yaml:"orientationRadius"`
	SpawnScale        float64 `yaml:"spawnScale"`
	WaveScale         float64 `yaml:"waveScale"`
}

// PerformanceConfig configures the adaptive quality controller.
type PerformanceConfig struct {
	WindowSize      int          `yaml:"windowSize"`
	HardMaxEntities int          `yaml:"hardMaxEntities"` // never exceeded regardless of tier
	CullFraction    float64      `yaml:"cullFraction"`
	Tiers           []TierConfig `yaml:"tiers"` // Normal first, worst last
}

// PoolConfig sizes the container pools.
type PoolConfig struct {
	VisualPrewarm     int `yaml:"visualPrewarm"`
	VisualMaxRetained int `yaml:"visualMaxRetained"`
	MarkerPrewarm     int `yaml:"markerPrewarm"`
	MarkerMaxRetained int `yaml:"markerMaxRetained"`
}

// SimConfig is everything the simulation core needs.
type SimConfig struct {
	TickRate    int               `yaml:"tickRate"`
	Seed        int64             `yaml:"seed"` // 0 = time-based
	Arena       ArenaConfig       `yaml:"arena"`
	Combat      CombatConfig      `yaml:"combat"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle"`
	Waves       WaveConfig        `yaml:"waves"`
	Steering    SteeringConfig    `yaml:"steering"`
	Performance PerformanceConfig `yaml:"performance"`
	Pools       PoolConfig        `yaml:"pools"`
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate: 60,
		Arena: ArenaConfig{
			HalfExtent:     24,
			CellSize:       5,
			StandingHeight: 1,
		},
		Combat: CombatConfig{
			StartHealth:          100,
			PlayerHitDamage:      34,
			AllyHitDamage:        10,
			LargeDamageThreshold: 50,
			ChainRadius:          4,
			ChainChance:          0.25,
			ChainDamage:          50,
			MeleeRange:           1.5,
			ContactDamage:        10,
			ContactCooldown:      time.Second,
			MaxWounds:            6,
			ExplosionRadius:      3,
			ExplosionLife:        500 * time.Millisecond,
			MaxExplosions:        32,
		},
		Lifecycle: LifecycleConfig{
			WarningDuration: time.Second,
			FallDuration:    time.Second,
		},
		Waves: WaveConfig{
			InitialWaveInterval:   30 * time.Second,
			WaveIntervalStep:      2 * time.Second,
			MinWaveInterval:       10 * time.Second,
			BurstScale:            1,
			BurstInterval:         400 * time.Millisecond,
			BurstIntervalStep:     20 * time.Millisecond,
			MinBurstInterval:      100 * time.Millisecond,
			BackgroundInterval:    2 * time.Second,
			BackgroundStep:        100 * time.Millisecond,
			MinBackgroundInterval: 500 * time.Millisecond,
			BaseSpeed:             3,
			SpeedStep:             0.4,
			MaxSpeed:              7,
			SpeedVariance:         0.3,
		},
		Steering: SteeringConfig{
			SeekWeight:       1,
			SeparationWeight: 1.5,
			SeparationRadius: 2,
			TurnSmoothTime:   200 * time.Millisecond,
		},
		Performance: PerformanceConfig{
			WindowSize:      10,
			HardMaxEntities: 250,
			CullFraction:    0.25,
			Tiers:           DefaultTiers(),
		},
		Pools: PoolConfig{
			VisualPrewarm:     64,
			VisualMaxRetained: 512,
			MarkerPrewarm:     32,
			MarkerMaxRetained: 128,
		},
	}
}

// DefaultTiers returns the Normal, Low, Critical and UltraLow parameter sets.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Name: "normal", MaxEntities: 300, BatchGroups: 1, SeparationEvery: 1, SkipTicks: 1, OrientationRadius: 40, SpawnScale: 1, WaveScale: 1},
		{Name: "low", EnterBelow: 50, ExitAbove: 56, MaxEntities: 200, BatchGroups: 2, SeparationEvery: 3, SkipDistance: 30, SkipTicks: 2, OrientationRadius: 25, SpawnScale: 1.5, WaveScale: 1.2},
		{Name: "critical", EnterBelow: 35, ExitAbove: 42, MaxEntities: 120, BatchGroups: 3, SeparationEvery: 5, SkipDistance: 20, SkipTicks: 3, OrientationRadius: 15, SpawnScale: 2, WaveScale: 1.5},
		{Name: "ultralow", EnterBelow: 22, ExitAbove: 28, MaxEntities: 60, BatchGroups: 4, SeparationEvery: 8, SkipDistance: 15, SkipTicks: 4, OrientationRadius: 8, SpawnScale: 3, WaveScale: 2},
	}
}

// Validate checks the invariants the simulation relies on.
func (c SimConfig) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tickRate must be positive, got %d", c.TickRate)
	}
	if c.Arena.HalfExtent <= 0 {
		return fmt.Errorf("arena.halfExtent must be positive, got %v", c.Arena.HalfExtent)
	}
	if c.Arena.CellSize <= 0 {
		return fmt.Errorf("arena.cellSize must be positive, got %v", c.Arena.CellSize)
	}
	if c.Combat.StartHealth <= 0 {
		return fmt.Errorf("combat.startHealth must be positive, got %d", c.Combat.StartHealth)
	}
	if c.Combat.ChainChance < 0 || c.Combat.ChainChance > 1 {
		return fmt.Errorf("combat.chainChance must be in [0,1], got %v", c.Combat.ChainChance)
	}
	if c.Lifecycle.FallDuration <= 0 || c.Lifecycle.WarningDuration < 0 {
		return errors.New("lifecycle durations must be positive")
	}
	if c.Waves.BurstScale < 1 {
		return fmt.Errorf("waves.burstScale must be >= 1, got %d", c.Waves.BurstScale)
	}
	if c.Performance.WindowSize < 1 {
		return fmt.Errorf("performance.windowSize must be >= 1, got %d", c.Performance.WindowSize)
	}
	if c.Performance.HardMaxEntities < 1 {
		return fmt.Errorf("performance.hardMaxEntities must be >= 1, got %d", c.Performance.HardMaxEntities)
	}
	if c.Performance.CullFraction < 0 || c.Performance.CullFraction > 1 {
		return fmt.Errorf("performance.cullFraction must be in [0,1], got %v", c.Performance.CullFraction)
	}
	return validateTiers(c.Performance.Tiers)
}

func validateTiers(tiers []TierConfig) error {
	if len(tiers) == 0 {
		return errors.New("performance.tiers cannot be empty")
	}
	for i, t := range tiers {
		if t.MaxEntities < 1 || t.BatchGroups < 1 || t.SeparationEvery < 1 || t.SkipTicks < 1 {
			return fmt.Errorf("tier %q: counts must be >= 1", t.Name)
		}
		if i == 0 {
			continue
		}
		if t.EnterBelow >= t.ExitAbove {
			return fmt.Errorf("tier %q: enterBelow (%v) must be below exitAbove (%v)", t.Name, t.EnterBelow, t.ExitAbove)
		}
		if prev := tiers[i-1]; i > 1 && t.EnterBelow >= prev.EnterBelow {
			return fmt.Errorf("tier %q: thresholds must decrease with severity", t.Name)
		}
	}
	return nil
}

// LoadSimFile merges a YAML tuning file over the defaults.
func LoadSimFile(path string) (SimConfig, error) {
	cfg := DefaultSim()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read sim config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse sim config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid sim config: %w", err)
	}
	return cfg, nil
}

// SimFromEnv applies environment overrides to cfg.
func SimFromEnv(cfg SimConfig) SimConfig {
	if v := getEnvFloat("ARENA_SIZE", 0); v > 0 {
		cfg.Arena.HalfExtent = v
	}
	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("MAX_ENTITIES", 0); v > 0 {
		cfg.Performance.HardMaxEntities = v
	}
	if v := getEnvInt64("SIM_SEED", 0); v != 0 {
		cfg.Seed = v
	}
	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AdminToken     string        // empty disables admin auth on mutating routes
	BroadcastEvery time.Duration // WebSocket snapshot cadence
	EventLogPath   string
	AllowedOrigins []string // CORS and WebSocket; nil means local viewers only
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		BroadcastEvery: 100 * time.Millisecond,
		EventLogPath:   "horde-events.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if tok := os.Getenv("ADMIN_TOKEN"); tok != "" {
		cfg.AdminToken = tok
	}
	if ms := getEnvInt("BROADCAST_MS", 0); ms > 0 {
		cfg.BroadcastEvery = time.Duration(ms) * time.Millisecond
	}
	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = path
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // localhost only unless AllowExternal
	AllowExternal bool
	BasicAuthUser string // optional
	BasicAuthPass string
}

// DefaultObservability enables the debug server on localhost.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// ObservabilityFromEnv returns the debug server configuration.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.AllowExternal = os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true"
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig
	Server        ServerConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration. HORDE_CONFIG names an optional
// YAML tuning file; environment variables win over it.
func Load() (AppConfig, error) {
	sim := DefaultSim()
	if path := os.Getenv("HORDE_CONFIG"); path != "" {
		loaded, err := LoadSimFile(path)
		if err != nil {
			return AppConfig{}, err
		}
		sim = loaded
	}
	sim = SimFromEnv(sim)
	if err := sim.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid sim config: %w", err)
	}

	return AppConfig{
		Sim:           sim,
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
	}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
