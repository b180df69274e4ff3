package cfg

import (
	"fmt"
	"time"

	"infobars/internal/common"
)

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(settings.BarTypes) == 0 {
		return fmt.Errorf("at least one bar type must be specified")
	}

	if settings.InitialExpectedTicks <= 0 || settings.InitialExpectedTicks > common.MaxInitialExpectedTicks {
		return fmt.Errorf("initial expected ticks must be between 1 and %d, got %d",
			common.MaxInitialExpectedTicks, settings.InitialExpectedTicks)
	}
	if settings.WarmupTicks > common.MaxWarmupTicks {
		return fmt.Errorf("warmup ticks must be at most %d, got %d", common.MaxWarmupTicks, settings.WarmupTicks)
	}

	// smoothing factor, modes and multiples share the engine's own checks
	if err := settings.BarOptions().Validate(); err != nil {
		return err
	}

	switch settings.DataFormat {
	case common.FormatAuto, common.FormatCSV, common.FormatJSON, common.FormatBoltDB:
	default:
		return fmt.Errorf("data format must be one of auto, csv, json, boltdb, got %q", settings.DataFormat)
	}
	if settings.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	// 0 disables the metrics endpoint
	if settings.MetricsPort != 0 &&
		(settings.MetricsPort < common.MinMetricsPort || settings.MetricsPort > common.MaxMetricsPort) {
		return fmt.Errorf("metrics port must be 0 or between %d and %d, got %d",
			common.MinMetricsPort, common.MaxMetricsPort, settings.MetricsPort)
	}

	if settings.RunTimeout < 0 || settings.RunTimeout > common.MaxRunTimeoutHours*time.Hour {
		return fmt.Errorf("run timeout must be between 0 and %dh, got %v", common.MaxRunTimeoutHours, settings.RunTimeout)
	}

	return nil
}

// Validate re-checks settings after callers override loaded values.
func (s *Settings) Validate() error {
	return validateSettings(s)
}
