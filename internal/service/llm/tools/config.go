package tools

import "time"

// ToolConfig centralizes configuration for all tools.
type ToolConfig struct {
	// Weather tool configuration
	WeatherTimeout time.Duration // Upper bound for one forecast lookup
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		WeatherTimeout: 15 * time.Second,
	}
}
