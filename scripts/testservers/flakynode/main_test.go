package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	return resp, string(buf[:n])
}

func TestNodeHealthy(t *testing.T) {
	server := httptest.NewServer(newNode(0, 0, 0, nil, 1, quietLogger()).handler())
	defer server.Close()

	resp, body := get(t, server.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := gjson.Get(body, "result.query").String(); got != "status" {
		t.Errorf("result.query = %q", got)
	}
}

func TestNodeAlwaysFailing(t *testing.T) {
	server := httptest.NewServer(newNode(1, 0, 0, nil, 1, quietLogger()).handler())
	defer server.Close()

	resp, body := get(t, server.URL+"/health")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := gjson.Get(body, "error.code").Int(); got != -32603 {
		t.Errorf("error.code = %d", got)
	}
}

func TestNodeUnknownQuery(t *testing.T) {
	server := httptest.NewServer(newNode(0, 0, 0, nil, 1, quietLogger()).handler())
	defer server.Close()

	resp, _ := get(t, server.URL+"/validators")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestNodeRollLatency(t *testing.T) {
	n := newNode(0, 10*time.Millisecond, 5*time.Millisecond, []string{"genesis"}, 42, quietLogger())

	for i := 0; i < 100; i++ {
		delay, fail := n.roll("health")
		if fail {
			t.Fatal("failure rate 0 must never fail")
		}
		if delay < 10*time.Millisecond || delay >= 15*time.Millisecond {
			t.Fatalf("delay %s outside [10ms, 15ms)", delay)
		}
	}
	if delay, _ := n.roll("genesis"); delay != 1500*time.Millisecond {
		t.Errorf("slow query delay = %s", delay)
	}
}
