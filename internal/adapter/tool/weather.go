// Package tool holds the agent's pluggable external actions. The weather
// tool is the sole built-in; anything implementing port.Tool can be
// registered alongside it.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"docagent/internal/domain"
)

// WeatherProvider is the capability contract for the external weather
// service: given a location string, return structured weather data or
// fail. The concrete provider and its authentication live outside the
// core.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (domain.WeatherReport, error)
}

// WeatherTool answers weather queries through a WeatherProvider. Failures
// are typed and non-fatal to the turn.
type WeatherTool struct {
	provider WeatherProvider
	timeout  time.Duration
}

func NewWeatherTool(provider WeatherProvider, timeout time.Duration) *WeatherTool {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherTool{provider: provider, timeout: timeout}
}

func (t *WeatherTool) Name() string {
	return "query_weather"
}

func (t *WeatherTool) Description() string {
	return "Look up current weather conditions for a city or location."
}

// Invoke resolves the location's current weather and renders it for the
// synthesis prompt.
func (t *WeatherTool) Invoke(ctx context.Context, input string) (string, error) {
	location := strings.TrimSpace(input)
	if location == "" {
		return "", fmt.Errorf("%w: empty location", domain.ErrToolInputInvalid)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	report, err := t.provider.Current(ctx, location)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: weather lookup for %q", domain.ErrToolTimeout, location)
		}
		return "", err
	}

	return fmt.Sprintf("Weather in %s as of %s: %s, %s",
		report.Location,
		report.AsOf.Format("2006-01-02 15:04"),
		report.Condition,
		report.Temperature,
	), nil
}

// AmapProvider queries the AMap city weather endpoint.
type AmapProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAmapProvider reads the API key from the named environment variable.
func NewAmapProvider(baseURL, apiKeyEnv string) (*AmapProvider, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: weather API key not found in environment variable %s",
			domain.ErrInvalidConfiguration, apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = "https://restapi.amap.com/v3/weather/weatherInfo"
	}
	return &AmapProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}, nil
}

type amapResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	Lives  []struct {
		City        string `json:"city"`
		Weather     string `json:"weather"`
		Temperature string `json:"temperature"`
		ReportTime  string `json:"reporttime"`
	} `json:"lives"`
}

func (p *AmapProvider) Current(ctx context.Context, location string) (domain.WeatherReport, error) {
	params := url.Values{}
	params.Set("city", location)
	params.Set("key", p.apiKey)
	params.Set("extensions", "base")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherReport{}, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.WeatherReport{}, context.DeadlineExceeded
		}
		return domain.WeatherReport{}, fmt.Errorf("%w: %v", domain.ErrToolUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WeatherReport{}, fmt.Errorf("%w: failed to read response: %v", domain.ErrToolUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.WeatherReport{}, fmt.Errorf("%w: status %d", domain.ErrToolUnavailable, resp.StatusCode)
	}

	var parsed amapResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.WeatherReport{}, fmt.Errorf("%w: malformed response: %v", domain.ErrToolUnavailable, err)
	}
	if parsed.Status != "1" {
		return domain.WeatherReport{}, fmt.Errorf("%w: provider error: %s", domain.ErrToolUnavailable, parsed.Info)
	}
	if len(parsed.Lives) == 0 {
		return domain.WeatherReport{}, fmt.Errorf("%w: unknown location %q", domain.ErrToolInputInvalid, location)
	}

	live := parsed.Lives[0]
	asOf, err := time.ParseInLocation("2006-01-02 15:04:05", live.ReportTime, time.Local)
	if err != nil {
		asOf = time.Now()
	}

	return domain.WeatherReport{
		Location:    live.City,
		Condition:   live.Weather,
		Temperature: live.Temperature + "°C",
		AsOf:        asOf,
	}, nil
}
