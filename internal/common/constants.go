package common

// Environment variable keys
const (
	EnvConfigFile           = "CONFIG_FILE"
	EnvSymbol               = "SYMBOL"
	EnvBarTypes             = "BAR_TYPES"
	EnvInitialExpectedTicks = "INITIAL_EXPECTED_TICKS"
	EnvSmoothingFactor      = "SMOOTHING_FACTOR"
	EnvImbalanceMode        = "IMBALANCE_MODE"
	EnvPartialBarPolicy     = "PARTIAL_BAR_POLICY"
	EnvSeedMode             = "SEED_MODE"
	EnvWarmupTicks          = "WARMUP_TICKS"
	EnvMaxTicksMultiple     = "MAX_TICKS_MULTIPLE"
	EnvDataPath             = "DATA_PATH"
	EnvDataFormat           = "DATA_FORMAT"
	EnvStorePath            = "STORE_PATH"
	EnvOutputPath           = "OUTPUT_PATH"
	EnvMetricsPort          = "METRICS_PORT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvRunTimeout           = "RUN_TIMEOUT"
)

// Configuration defaults
const (
	DefaultSymbol               = "BTCUSDT"
	DefaultBarTypes             = "volume"
	DefaultInitialExpectedTicks = 2000
	DefaultSmoothingFactor      = 0.2
	DefaultImbalanceMode        = "fixed"
	DefaultPartialBarPolicy     = "include"
	DefaultSeedMode             = "mean_abs"
	DefaultWarmupTicks          = 100
	DefaultMaxTicksMultiple     = 1.0
	DefaultDataFormat           = "auto"
	DefaultOutputPath           = "out"
	DefaultLogLevel             = "info"
)

// Data formats accepted by the loader
const (
	FormatAuto   = "auto"
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatBoltDB = "boltdb"
)

// Validation constants
const (
	MaxInitialExpectedTicks = 100_000_000
	MaxWarmupTicks          = 10_000_000
	MinMetricsPort          = 1024
	MaxMetricsPort          = 65535
	MaxRunTimeoutHours      = 24
)
