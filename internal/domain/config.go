package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	API          APIConfig          `mapstructure:"api"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains status-server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// APIConfig contains DDS API configuration
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Dataset string        `mapstructure:"dataset"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	SkipExisting     bool          `mapstructure:"skip_existing"`
	SkipIncompatible bool          `mapstructure:"skip_incompatible"`
	FailureDelay     time.Duration `mapstructure:"failure_delay"`
}

// HistoryConfig contains run-history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		API: APIConfig{
			BaseURL: "https://ddshub.cmcc.it",
			Dataset: "cmip6-stat-downscaled-over-italy",
			Key:     "",
			Timeout: 15 * time.Minute,
		},
		Download: DownloadConfig{
			SkipExisting:     false,
			SkipIncompatible: false,
			FailureDelay:     0,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.cmip6-fetch/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
