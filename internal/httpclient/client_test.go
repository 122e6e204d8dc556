package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout, 4)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Fatalf("request returned too quickly: %s < %s", elapsed, timeout)
	}
	if elapsed > timeout*5 {
		t.Fatalf("request took too long: %s", elapsed)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}
}

func TestClientIdlePoolSizing(t *testing.T) {
	tests := []struct {
		concurrency int
		wantPerHost int
	}{
		{concurrency: 0, wantPerHost: minIdleConnsPerHost},
		{concurrency: 3, wantPerHost: minIdleConnsPerHost},
		{concurrency: 50, wantPerHost: 50},
	}
	for _, tt := range tests {
		client := NewClient(time.Second, tt.concurrency)
		transport, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", client.Transport)
		}
		if transport.MaxIdleConnsPerHost != tt.wantPerHost {
			t.Errorf("concurrency %d: MaxIdleConnsPerHost = %d, want %d", tt.concurrency, transport.MaxIdleConnsPerHost, tt.wantPerHost)
		}
		if transport.IdleConnTimeout == 0 {
			t.Errorf("expected transport to set idle connection timeout")
		}
	}
}

func TestClientNegativeTimeoutDisablesLimit(t *testing.T) {
	if got := NewClient(-time.Second, 1).Timeout; got != 0 {
		t.Fatalf("expected zero timeout, got %s", got)
	}
}

func TestStaticHeadersCanonicalizes(t *testing.T) {
	headers, err := StaticHeaders(map[string]string{
		"x-api-key":  "secret",
		" accept ":   "application/json",
		"X-Empty-Ok": "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if headers.Get("X-Api-Key") != "secret" {
		t.Errorf("X-Api-Key = %q", headers.Get("X-Api-Key"))
	}
	if headers.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", headers.Get("Accept"))
	}
	if _, ok := headers["X-Empty-Ok"]; !ok {
		t.Errorf("expected empty header value to be kept")
	}
}

func TestStaticHeadersRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"empty key":        {"": "value"},
		"newline in key":   {"X-Bad\nKey": "value"},
		"newline in value": {"X-Ok": "line1\r\nline2"},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := StaticHeaders(raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "invalid header") {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}
