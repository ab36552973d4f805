// Package config implements the layered configuration of the cutting
// optimizer server: built-in defaults, then an optional TOML file named by
// $HGJ_CONFIG_FILE, then HGJ_* environment variables, in that precedence
// order (lowest to highest).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/BurntSushi/toml"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the server's resolved runtime configuration.
type Config struct {
	ListenAddr         string  `toml:"listen_addr"`
	LogLevel           string  `toml:"log_level"`
	DatabaseURL        string  `toml:"database_url"`
	WasteThreshold     float64 `toml:"waste_threshold"`
	TargetLossRate     float64 `toml:"target_loss_rate"`
	TimeLimit          float64 `toml:"time_limit"`
	MaxWeldingSegments int     `toml:"max_welding_segments"`
}

// Defaults returns the built-in configuration, before any file or
// environment overrides are applied.
func Defaults() Config {
	return Config{
		ListenAddr:         ":8080",
		LogLevel:           "info",
		WasteThreshold:     200,
		TargetLossRate:     5.0,
		TimeLimit:          30,
		MaxWeldingSegments: 4,
	}
}

// Load resolves the config file named by $HGJ_CONFIG_FILE (if set and
// present), then applies HGJ_* environment overrides on top of the result.
// It never fails on a missing config file; that is the common case.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("HGJ_CONFIG_FILE"); path != "" {
		fileCfg, err := loadFrom(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func loadFrom(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := base
	if _, err := toml.Decode(expandEnvVars(string(data)), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("HGJ_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := lookupEnv("HGJ_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv("HGJ_DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookupFloatEnv("HGJ_WASTE_THRESHOLD"); ok {
		cfg.WasteThreshold = v
	}
	if v, ok := lookupFloatEnv("HGJ_TARGET_LOSS_RATE"); ok {
		cfg.TargetLossRate = v
	}
	if v, ok := lookupFloatEnv("HGJ_TIME_LIMIT"); ok {
		cfg.TimeLimit = v
	}
	if v, ok := lookupIntEnv("HGJ_MAX_WELDING_SEGMENTS"); ok {
		cfg.MaxWeldingSegments = v
	}
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func lookupFloatEnv(name string) (float64, bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func lookupIntEnv(name string) (int, bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment
// variable, leaving unresolved references as-is.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}
