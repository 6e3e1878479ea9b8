package tool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"docagent/internal/domain"
)

const keyEnv = "TEST_AMAP_API_KEY"

func newTestProvider(t *testing.T, handler http.HandlerFunc) *AmapProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	os.Setenv(keyEnv, "test-key")
	t.Cleanup(func() { os.Unsetenv(keyEnv) })
	provider, err := NewAmapProvider(server.URL, keyEnv)
	if err != nil {
		t.Fatalf("NewAmapProvider: %v", err)
	}
	return provider
}

func TestWeatherToolInvoke(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("city"); got != "Beijing" {
			t.Errorf("city = %q, want Beijing", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q, want test-key", got)
		}
		w.Write([]byte(`{"status":"1","lives":[{"city":"Beijing","weather":"Sunny","temperature":"25","reporttime":"2026-08-28 10:00:00"}]}`))
	})

	wt := NewWeatherTool(provider, 5*time.Second)
	out, err := wt.Invoke(context.Background(), "Beijing")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	for _, want := range []string{"Beijing", "Sunny", "25°C", "2026-08-28 10:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestWeatherToolEmptyLocation(t *testing.T) {
	wt := NewWeatherTool(nil, time.Second)
	_, err := wt.Invoke(context.Background(), "   ")
	if !errors.Is(err, domain.ErrToolInputInvalid) {
		t.Fatalf("err = %v, want ErrToolInputInvalid", err)
	}
}

func TestWeatherToolUnknownLocation(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","lives":[]}`))
	})

	wt := NewWeatherTool(provider, 5*time.Second)
	_, err := wt.Invoke(context.Background(), "Atlantis")
	if !errors.Is(err, domain.ErrToolInputInvalid) {
		t.Fatalf("err = %v, want ErrToolInputInvalid", err)
	}
}

func TestWeatherToolProviderError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","info":"INVALID_USER_KEY"}`))
	})

	wt := NewWeatherTool(provider, 5*time.Second)
	_, err := wt.Invoke(context.Background(), "Beijing")
	if !errors.Is(err, domain.ErrToolUnavailable) {
		t.Fatalf("err = %v, want ErrToolUnavailable", err)
	}
}

func TestWeatherToolUnreachable(t *testing.T) {
	os.Setenv(keyEnv, "test-key")
	t.Cleanup(func() { os.Unsetenv(keyEnv) })
	provider, err := NewAmapProvider("http://127.0.0.1:1", keyEnv)
	if err != nil {
		t.Fatalf("NewAmapProvider: %v", err)
	}

	wt := NewWeatherTool(provider, 5*time.Second)
	_, err = wt.Invoke(context.Background(), "Beijing")
	if !errors.Is(err, domain.ErrToolUnavailable) {
		t.Fatalf("err = %v, want ErrToolUnavailable", err)
	}
}

func TestWeatherToolTimeout(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status":"1","lives":[]}`))
	})

	wt := NewWeatherTool(provider, 10*time.Millisecond)
	_, err := wt.Invoke(context.Background(), "Beijing")
	if !errors.Is(err, domain.ErrToolTimeout) {
		t.Fatalf("err = %v, want ErrToolTimeout", err)
	}
}

func TestNewAmapProviderMissingKey(t *testing.T) {
	os.Unsetenv(keyEnv)
	_, err := NewAmapProvider("", keyEnv)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}
