package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMeteoClient_Forecast(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude":52.52,"current":{"temperature_2m":12.5}}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClientWithConfig(server.URL+"/", time.Second)
	body, err := client.Forecast(context.Background(), 52.52, 13.41)
	require.NoError(t, err)
	assert.JSONEq(t, `{"latitude":52.52,"current":{"temperature_2m":12.5}}`, string(body))

	require.NotNil(t, got)
	assert.Equal(t, "/v1/forecast", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "52.52", q.Get("latitude"))
	assert.Equal(t, "13.41", q.Get("longitude"))
	assert.Equal(t, "temperature_2m", q.Get("current"))
	assert.Equal(t, "temperature_2m", q.Get("hourly"))
	assert.Equal(t, "sunrise,sunset", q.Get("daily"))
	assert.Equal(t, "auto", q.Get("timezone"))
}

func TestOpenMeteoClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusBadRequest, `{"error":true,"reason":"Latitude must be in range"}`, "status 400"},
		{"invalid json", http.StatusOK, `<html>`, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewOpenMeteoClientWithConfig(server.URL, time.Second).Forecast(context.Background(), 0, 0)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenMeteoClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOpenMeteoClientWithConfig(server.URL, time.Second).Forecast(ctx, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
