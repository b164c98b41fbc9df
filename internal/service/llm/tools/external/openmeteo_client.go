package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultOpenMeteoBaseURL is the default Open-Meteo API endpoint
	DefaultOpenMeteoBaseURL = "https://api.open-meteo.com"
	// DefaultOpenMeteoTimeout is the default HTTP timeout for Open-Meteo requests
	DefaultOpenMeteoTimeout = 30 * time.Second

	// maxForecastBytes bounds the body handed to the model
	maxForecastBytes = 1 << 20
)

// OpenMeteoClient implements WeatherClient for Open-Meteo. No API key is needed.
type OpenMeteoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenMeteoClient creates a new Open-Meteo client.
func NewOpenMeteoClient() *OpenMeteoClient {
	return NewOpenMeteoClientWithConfig(DefaultOpenMeteoBaseURL, DefaultOpenMeteoTimeout)
}

// NewOpenMeteoClientWithConfig creates an Open-Meteo client with custom configuration.
func NewOpenMeteoClientWithConfig(baseURL string, timeout time.Duration) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}
	return &OpenMeteoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forecast implements WeatherClient interface for Open-Meteo.
func (c *OpenMeteoClient) Forecast(ctx context.Context, latitude, longitude float64) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("current", "temperature_2m")
	query.Set("hourly", "temperature_2m")
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")

	endpoint := c.baseURL + "/v1/forecast?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxForecastBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse response: body is not valid JSON")
	}

	return json.RawMessage(body), nil
}
