// Package config provides configuration types and helpers for loglens.
package config

// Config holds the application-wide configuration.
type Config struct {
	Verbose   bool   `mapstructure:"verbose"`
	Tick      string `mapstructure:"tick"`
	Wide      bool   `mapstructure:"wide"`
	LowCount  int    `mapstructure:"low_count"`
	FilterDir string `mapstructure:"filter_dir"`
	NoFilter  bool   `mapstructure:"no_filter"`
}
