package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCircuitBreakerFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("test content"))
	}))
	defer server.Close()

	fetcher := NewFetcher()
	cbFetcher := NewCircuitBreakerFetcher(fetcher)

	ctx := context.Background()
	artifact, err := cbFetcher.Fetch(ctx, server.URL+"/test.tar.gz")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if artifact == nil {
		t.Fatal("expected artifact, got nil")
	}

	defer func() { _ = artifact.Body.Close() }()

	body, _ := io.ReadAll(artifact.Body)
	if string(body) != "test content" {
		t.Errorf("expected 'test content', got %q", string(body))
	}
}

func TestCircuitBreakerNotFoundDoesNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cbFetcher := NewCircuitBreakerFetcher(NewFetcher(WithMaxRetries(0)))

	for i := 0; i < 10; i++ {
		_, err := cbFetcher.Fetch(context.Background(), server.URL+"/missing.tgz")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}

	for host, state := range cbFetcher.BreakerStates() {
		if state != "closed" {
			t.Errorf("breaker for %s = %s, want closed", host, state)
		}
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "npm registry",
			url:      "https://registry.npmjs.org/package/-/package-1.0.0.tgz",
			expected: "registry.npmjs.org",
		},
		{
			name:     "scoped tarball",
			url:      "https://registry.npmjs.org/@glimmer/blueprint/-/blueprint-0.14.0.tgz",
			expected: "registry.npmjs.org",
		},
		{
			name:     "invalid URL",
			url:      "not-a-valid-url",
			expected: "not-a-valid-url",
		},
		{
			name:     "long URL",
			url:      "https://very-long-hostname.example.com/path",
			expected: "very-long-hostname.example.com",
		},
		{
			name:     "with port",
			url:      "https://example.com:8080/path",
			expected: "example.com:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hostOf(tt.url)
			if got != tt.expected {
				t.Errorf("hostOf(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestBreakerStates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewFetcher()
	cbFetcher := NewCircuitBreakerFetcher(fetcher)

	// Initially empty
	states := cbFetcher.BreakerStates()
	if len(states) != 0 {
		t.Errorf("expected empty states, got %d entries", len(states))
	}

	// After a fetch, should have state
	ctx := context.Background()
	_, _ = cbFetcher.Fetch(ctx, server.URL+"/test")

	states = cbFetcher.BreakerStates()
	if len(states) == 0 {
		t.Error("expected at least one breaker state after fetch")
	}

	// Should be in closed state (working)
	for _, state := range states {
		if state != "closed" {
			t.Errorf("expected closed state, got %s", state)
		}
	}
}

func TestCircuitBreakerMultipleRegistries(t *testing.T) {
	server1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("server1"))
	}))
	defer server1.Close()

	server2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("server2"))
	}))
	defer server2.Close()

	fetcher := NewFetcher()
	cbFetcher := NewCircuitBreakerFetcher(fetcher)

	ctx := context.Background()

	// Fetch from both servers
	art1, err1 := cbFetcher.Fetch(ctx, server1.URL+"/test")
	if err1 != nil {
		t.Fatalf("fetch 1 failed: %v", err1)
	}
	_ = art1.Body.Close()

	art2, err2 := cbFetcher.Fetch(ctx, server2.URL+"/test")
	if err2 != nil {
		t.Fatalf("fetch 2 failed: %v", err2)
	}
	_ = art2.Body.Close()

	// Should have separate breaker states for each registry
	states := cbFetcher.BreakerStates()
	if len(states) != 2 {
		t.Errorf("expected 2 breaker states, got %d", len(states))
	}
}

func TestCircuitBreakerOpensOnFailures(t *testing.T) {
	failCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failCount++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(WithMaxRetries(0), WithBaseDelay(0))
	cbFetcher := NewCircuitBreakerFetcher(fetcher)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, _ = cbFetcher.Fetch(ctx, server.URL+"/test")
	}

	if failCount >= 10 {
		t.Errorf("expected breaker to short-circuit, server saw %d requests", failCount)
	}

	_, err := cbFetcher.Fetch(ctx, server.URL+"/test")
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("expected ErrUpstreamDown from open breaker, got %v", err)
	}
}
