package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"chatloop/internal/service/llm/tools/external"
)

// WeatherTool implements the 'getWeather' tool by looking up a forecast for a coordinate.
type WeatherTool struct {
	client external.WeatherClient
	config *ToolConfig
}

// NewWeatherTool creates a new WeatherTool instance.
func NewWeatherTool(client external.WeatherClient, config *ToolConfig) *WeatherTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &WeatherTool{
		client: client,
		config: config,
	}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - latitude (number, required): -90 to 90
//   - longitude (number, required): -180 to 180
//
// Returns the forecast document as raw JSON.
func (t *WeatherTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	latitude, err := coordinate(input, "latitude")
	if err != nil {
		return nil, err
	}
	longitude, err := coordinate(input, "longitude")
	if err != nil {
		return nil, err
	}

	if err := validation.Validate(latitude,
		validation.Min(-90.0), validation.Max(90.0),
	); err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	if err := validation.Validate(longitude,
		validation.Min(-180.0), validation.Max(180.0),
	); err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	if t.config.WeatherTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.WeatherTimeout)
		defer cancel()
	}

	forecast, err := t.client.Forecast(ctx, latitude, longitude)
	if err != nil {
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}
	return forecast, nil
}

// coordinate reads a numeric parameter. Models occasionally send numbers as strings.
func coordinate(input map[string]any, key string) (float64, error) {
	raw, ok := input[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("missing required parameter: %s (number)", key)
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %s must be a number, got %q", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number, got %T", key, raw)
	}
}
