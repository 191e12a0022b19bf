package api

// Environment variables used by asset-shell.
const (
	// LogLevelEnv is the environment variable used to set the log level.
	LogLevelEnv = "ASSET_SHELL_LOGGING"
	// ConfigFileEnv is the environment variable used to set the configuration file.
	ConfigFileEnv = "ASSET_SHELL_CONFIG_FILE"
)
