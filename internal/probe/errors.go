package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from a StatusError.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// Classify returns a short human-friendly label for a failure, suitable for
// log fields. It returns an empty string for a nil error.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code, ok := StatusCode(err); ok {
		return fmt.Sprintf("HTTP %d", code)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "Connection reset"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS failure"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := strings.ToLower(urlErr.Err.Error())
		switch {
		case strings.Contains(msg, "tls") || strings.Contains(msg, "x509") || strings.Contains(msg, "certificate"):
			return "TLS failure"
		case strings.Contains(msg, "unsupported protocol scheme"):
			return "Request URL error"
		}
		return "Transport error"
	}
	return "Request error"
}
