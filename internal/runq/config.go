package runq

import (
	"log/slog"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"

	"sprunq/internal/sched"
)

// Config mirrors config.yml
type Config struct {
	TickMS          int       `yaml:"tick_ms"`          // 5 (by default)
	SliceTicks      int       `yaml:"slice_ticks"`      // 5 (by default)
	Levels          int       `yaml:"levels"`           // 4 (by default), 0 is the highest level
	DefaultPriority int       `yaml:"default_priority"` // 1 (by default)
	CSVPath         string    `yaml:"csv_path"`         // empty = no CSV log
	LogLevel        string    `yaml:"log_level"`        // debug, info, warn, error
	Tasks           []JobSpec `yaml:"tasks"`            // demo workload for cmd/ticksched
}

// JobSpec describes one job of a configured workload.
type JobSpec struct {
	ID       JobID `yaml:"id"`
	Priority int   `yaml:"priority"`
	WorkMS   int64 `yaml:"work_ms"`
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickMS:          5,
		SliceTicks:      5,
		Levels:          4,
		DefaultPriority: sched.DefaultPriority,
		LogLevel:        "info",
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("config not readable, using defaults", "path", path, "err", err)
		return cfg
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("config not parsable, using defaults", "path", path, "err", err)
		return defaultConfig()
	}

	// sanity clamps
	if cfg.SliceTicks <= 0 {
		cfg.SliceTicks = 5
	}
	if cfg.TickMS <= 0 {
		cfg.TickMS = 5
	}
	if cfg.Levels <= 0 {
		cfg.Levels = 4
	}
	if cfg.DefaultPriority < 0 || cfg.DefaultPriority >= cfg.Levels {
		cfg.DefaultPriority = min(sched.DefaultPriority, cfg.Levels-1)
	}
	fillPriorities(data, &cfg)

	return cfg
}

// fillPriorities gives tasks that leave out priority the default priority
// instead of the highest level.
func fillPriorities(data []byte, cfg *Config) {
	var given struct {
		Tasks []struct {
			Priority *int `yaml:"priority"`
		} `yaml:"tasks"`
	}
	if err := yaml.Unmarshal(data, &given); err != nil {
		return
	}
	for i := range cfg.Tasks {
		if i < len(given.Tasks) && given.Tasks[i].Priority == nil {
			cfg.Tasks[i].Priority = cfg.DefaultPriority
		}
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
