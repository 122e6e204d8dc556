package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const minIdleConnsPerHost = 8

// NewClient returns a client for probing a single endpoint. timeout covers the
// whole exchange; concurrency sizes the idle pool so every worker can keep its
// connection alive.
func NewClient(timeout time.Duration, concurrency int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	idlePerHost := concurrency
	if idlePerHost < minIdleConnsPerHost {
		idlePerHost = minIdleConnsPerHost
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          idlePerHost * 2,
		MaxIdleConnsPerHost:   idlePerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// StaticHeaders validates raw key/value pairs and returns them as canonical
// HTTP headers. Keys must be non-empty; neither keys nor values may contain
// line breaks.
func StaticHeaders(raw map[string]string) (http.Header, error) {
	headers := make(http.Header, len(raw))
	for key, value := range raw {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}
	return headers, nil
}
