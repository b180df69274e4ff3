package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"infobars/internal/bars"
	"infobars/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Symbol               string
	BarTypes             []bars.BarType
	InitialExpectedTicks int
	SmoothingFactor      float64
	ImbalanceMode        bars.ImbalanceMode
	PartialBar           bars.PartialBarPolicy
	SeedMode             bars.SeedMode
	WarmupTicks          int
	MaxTicksMultiple     float64
	DataPath             string
	DataFormat           string
	StorePath            string
	OutputPath           string
	MetricsPort          int
	LogLevel             string
	RunTimeout           time.Duration
}

type ConfigFile struct {
	Bars struct {
		Types                []string `yaml:"types"`
		InitialExpectedTicks int      `yaml:"initialExpectedTicks"`
		SmoothingFactor      float64  `yaml:"smoothingFactor"`
		ImbalanceMode        string   `yaml:"imbalanceMode"`
		PartialBar           string   `yaml:"partialBar"`
		SeedMode             string   `yaml:"seedMode"`
		WarmupTicks          int      `yaml:"warmupTicks"`
		MaxTicksMultiple     float64  `yaml:"maxTicksMultiple"`
	} `yaml:"bars"`

	Data struct {
		Symbol    string `yaml:"symbol"`
		Path      string `yaml:"path"`
		Format    string `yaml:"format"`
		StorePath string `yaml:"storePath"`
	} `yaml:"data"`

	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`

	System struct {
		MetricsPort int    `yaml:"metricsPort"`
		LogLevel    string `yaml:"logLevel"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"system"`
}

// Load reads an optional .env file, then settings from CONFIG_FILE when set,
// otherwise from environment variables.
func Load() (Settings, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := time.ParseDuration(config.System.Timeout)
	if err != nil {
		timeout = 0
	}

	barTypes, err := parseBarTypes(getBarTypesFromEnvOrConfig(config.Bars.Types))
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Symbol:               getEnvOrDefault(common.EnvSymbol, orDefault(config.Data.Symbol, common.DefaultSymbol)),
		BarTypes:             barTypes,
		InitialExpectedTicks: getIntFromEnvOrConfig(common.EnvInitialExpectedTicks, config.Bars.InitialExpectedTicks, common.DefaultInitialExpectedTicks),
		SmoothingFactor:      getFloatFromEnvOrConfig(common.EnvSmoothingFactor, config.Bars.SmoothingFactor, common.DefaultSmoothingFactor),
		ImbalanceMode:        bars.ImbalanceMode(getEnvOrDefault(common.EnvImbalanceMode, orDefault(config.Bars.ImbalanceMode, common.DefaultImbalanceMode))),
		PartialBar:           bars.PartialBarPolicy(getEnvOrDefault(common.EnvPartialBarPolicy, orDefault(config.Bars.PartialBar, common.DefaultPartialBarPolicy))),
		SeedMode:             bars.SeedMode(getEnvOrDefault(common.EnvSeedMode, orDefault(config.Bars.SeedMode, common.DefaultSeedMode))),
		WarmupTicks:          getIntFromEnvOrConfig(common.EnvWarmupTicks, config.Bars.WarmupTicks, common.DefaultWarmupTicks),
		MaxTicksMultiple:     getFloatFromEnvOrConfig(common.EnvMaxTicksMultiple, config.Bars.MaxTicksMultiple, common.DefaultMaxTicksMultiple),
		DataPath:             getEnvOrDefault(common.EnvDataPath, config.Data.Path),
		DataFormat:           getEnvOrDefault(common.EnvDataFormat, orDefault(config.Data.Format, common.DefaultDataFormat)),
		StorePath:            getEnvOrDefault(common.EnvStorePath, config.Data.StorePath),
		OutputPath:           getEnvOrDefault(common.EnvOutputPath, orDefault(config.Output.Path, common.DefaultOutputPath)),
		MetricsPort:          getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, 0),
		LogLevel:             getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		RunTimeout:           getDurationOrDefault(common.EnvRunTimeout, timeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	barTypes, err := parseBarTypes(splitOrDefault(os.Getenv(common.EnvBarTypes), []string{common.DefaultBarTypes}))
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Symbol:               getEnvOrDefault(common.EnvSymbol, common.DefaultSymbol),
		BarTypes:             barTypes,
		InitialExpectedTicks: getIntOrDefault(common.EnvInitialExpectedTicks, common.DefaultInitialExpectedTicks),
		SmoothingFactor:      getFloatOrDefault(common.EnvSmoothingFactor, common.DefaultSmoothingFactor),
		ImbalanceMode:        bars.ImbalanceMode(getEnvOrDefault(common.EnvImbalanceMode, common.DefaultImbalanceMode)),
		PartialBar:           bars.PartialBarPolicy(getEnvOrDefault(common.EnvPartialBarPolicy, common.DefaultPartialBarPolicy)),
		SeedMode:             bars.SeedMode(getEnvOrDefault(common.EnvSeedMode, common.DefaultSeedMode)),
		WarmupTicks:          getIntOrDefault(common.EnvWarmupTicks, common.DefaultWarmupTicks),
		MaxTicksMultiple:     getFloatOrDefault(common.EnvMaxTicksMultiple, common.DefaultMaxTicksMultiple),
		DataPath:             os.Getenv(common.EnvDataPath),
		DataFormat:           getEnvOrDefault(common.EnvDataFormat, common.DefaultDataFormat),
		StorePath:            os.Getenv(common.EnvStorePath), // optional
		OutputPath:           getEnvOrDefault(common.EnvOutputPath, common.DefaultOutputPath),
		MetricsPort:          getIntOrDefault(common.EnvMetricsPort, 0),
		LogLevel:             getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		RunTimeout:           getDurationOrDefault(common.EnvRunTimeout, 0),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// BarOptions converts the scan settings into engine options.
func (s *Settings) BarOptions() bars.Options {
	return bars.Options{
		SmoothingFactor:  s.SmoothingFactor,
		ImbalanceMode:    s.ImbalanceMode,
		PartialBar:       s.PartialBar,
		SeedMode:         s.SeedMode,
		WarmupTicks:      s.WarmupTicks,
		MaxTicksMultiple: s.MaxTicksMultiple,
	}
}

// ParseBarTypes parses a comma-separated bar type list, dropping duplicates.
func ParseBarTypes(s string) ([]bars.BarType, error) {
	return parseBarTypes(strings.Split(s, ","))
}

func parseBarTypes(names []string) ([]bars.BarType, error) {
	var out []bars.BarType
	seen := make(map[bars.BarType]bool)
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		bt, err := bars.ParseBarType(n)
		if err != nil {
			return nil, err
		}
		if !seen[bt] {
			seen[bt] = true
			out = append(out, bt)
		}
	}
	return out, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getBarTypesFromEnvOrConfig(configTypes []string) []string {
	if env := os.Getenv(common.EnvBarTypes); env != "" {
		return strings.Split(env, ",")
	}
	if len(configTypes) > 0 {
		return configTypes
	}
	return []string{common.DefaultBarTypes}
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}
