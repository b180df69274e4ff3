package cfg

import (
	"strings"
	"testing"
	"time"

	"infobars/internal/bars"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		Symbol:               "BTCUSDT",
		BarTypes:             []bars.BarType{bars.TickBars, bars.VolumeBars},
		InitialExpectedTicks: 2000,
		SmoothingFactor:      0.2,
		ImbalanceMode:        bars.ImbalanceFixed,
		PartialBar:           bars.PartialInclude,
		SeedMode:             bars.SeedMeanAbs,
		WarmupTicks:          100,
		MaxTicksMultiple:     1,
		DataPath:             "trades.csv",
		DataFormat:           "csv",
		OutputPath:           "out",
		MetricsPort:          9090,
		LogLevel:             "info",
		RunTimeout:           time.Minute,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	err := validateSettings(settings)
	if err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{"empty symbol", func(s *Settings) { s.Symbol = "" }, "symbol"},
		{"no bar types", func(s *Settings) { s.BarTypes = nil }, "bar type"},
		{"zero initial ticks", func(s *Settings) { s.InitialExpectedTicks = 0 }, "initial expected ticks"},
		{"huge initial ticks", func(s *Settings) { s.InitialExpectedTicks = 1 << 40 }, "initial expected ticks"},
		{"zero smoothing", func(s *Settings) { s.SmoothingFactor = 0 }, "smoothing factor"},
		{"smoothing above one", func(s *Settings) { s.SmoothingFactor = 1.01 }, "smoothing factor"},
		{"unknown imbalance mode", func(s *Settings) { s.ImbalanceMode = "ewma" }, "imbalance mode"},
		{"unknown partial policy", func(s *Settings) { s.PartialBar = "truncate" }, "partial bar policy"},
		{"unknown seed mode", func(s *Settings) { s.SeedMode = "median" }, "seed mode"},
		{"warmup without ticks", func(s *Settings) {
			s.SeedMode = bars.SeedWarmup
			s.WarmupTicks = 0
		}, "warmup ticks"},
		{"zero max ticks multiple", func(s *Settings) { s.MaxTicksMultiple = 0 }, "max ticks multiple"},
		{"unknown data format", func(s *Settings) { s.DataFormat = "parquet" }, "data format"},
		{"empty output path", func(s *Settings) { s.OutputPath = "" }, "output path"},
		{"privileged metrics port", func(s *Settings) { s.MetricsPort = 80 }, "metrics port"},
		{"metrics port too high", func(s *Settings) { s.MetricsPort = 70000 }, "metrics port"},
		{"negative timeout", func(s *Settings) { s.RunTimeout = -time.Second }, "run timeout"},
		{"timeout too long", func(s *Settings) { s.RunTimeout = 48 * time.Hour }, "run timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := createValidSettings()
			tc.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("Expected error containing %q, got: %v", tc.wantMsg, err)
			}
		})
	}
}

func TestValidateSettings_MetricsDisabled(t *testing.T) {
	settings := createValidSettings()
	settings.MetricsPort = 0

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected port 0 to disable metrics without error, got: %v", err)
	}
}

func TestSettings_ValidateAfterOverride(t *testing.T) {
	settings := createValidSettings()
	if err := settings.Validate(); err != nil {
		t.Fatalf("Expected valid settings, got: %v", err)
	}

	settings.DataFormat = "parquet"
	if err := settings.Validate(); err == nil {
		t.Error("Expected overridden data format to be rejected")
	}
}
