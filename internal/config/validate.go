package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants and returns actionable errors,
// joining every violation found rather than stopping at the first.
func Validate(cfg Config) error {
	var errs []error

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		errs = append(errs, fmt.Errorf("listen_addr: must not be empty"))
	}
	if cfg.WasteThreshold <= 0 {
		errs = append(errs, fmt.Errorf("waste_threshold: must be positive, got %v", cfg.WasteThreshold))
	}
	if cfg.TargetLossRate <= 0 {
		errs = append(errs, fmt.Errorf("target_loss_rate: must be positive, got %v", cfg.TargetLossRate))
	}
	if cfg.TimeLimit <= 0 {
		errs = append(errs, fmt.Errorf("time_limit: must be positive, got %v", cfg.TimeLimit))
	}
	if cfg.MaxWeldingSegments < 1 {
		errs = append(errs, fmt.Errorf("max_welding_segments: must be >= 1, got %d", cfg.MaxWeldingSegments))
	}
	if !validLogLevel(cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: unrecognized level %q", cfg.LogLevel))
	}

	return errors.Join(errs...)
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
