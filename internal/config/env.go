package config

import "os"

// Default locations, relative to the working directory.
const (
	DefaultConfigPath      = "config/config.yml"
	DefaultCalibrationPath = "config/calibration.json"
	DefaultPort            = "8080"
)

// ConfigPath returns the config file path from RANGEFINDER_CONFIG.
// Falls back to DefaultConfigPath if not set.
func ConfigPath() string {
	if p := os.Getenv("RANGEFINDER_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// CalibrationPath returns the calibration file to use: the override if
// non-empty, then the configured path, then DefaultCalibrationPath.
func CalibrationPath(override string, cfg *Config) string {
	if override != "" {
		return override
	}
	if cfg != nil && cfg.Distance.CalibrationFile != "" {
		return cfg.Distance.CalibrationFile
	}
	return DefaultCalibrationPath
}

// ServerURL returns the base URL of a local control server on port.
func ServerURL(port string) string {
	if port == "" {
		port = DefaultPort
	}
	return "http://localhost:" + port
}
