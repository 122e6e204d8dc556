// Command flakynode serves a fake RPC node whose queries fail and stall at
// configurable rates. It is meant as a local target for flakeprobe.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var defaultQueries = []string{"health", "status", "abci_info", "net_info", "genesis"}

type node struct {
	failureRate float64
	latency     time.Duration
	jitter      time.Duration
	slow        map[string]bool

	mu  sync.Mutex
	rnd *rand.Rand
	log *logrus.Logger
}

func main() {
	fs := pflag.NewFlagSet("flakynode", pflag.ExitOnError)
	port := fs.Int("port", 26657, "Listening port")
	failureRate := fs.Float64("failure-rate", 0.1, "Fraction of requests answered with 503 (0.0-1.0)")
	latency := fs.Duration("latency", 20*time.Millisecond, "Base response latency")
	jitter := fs.Duration("jitter", 30*time.Millisecond, "Maximum random latency added to each response")
	slow := fs.StringSlice("slow", nil, "Queries that always take 1.5s to answer")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Random seed")
	_ = fs.Parse(os.Args[1:])

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	n := newNode(*failureRate, *latency, *jitter, *slow, *seed, logger)
	addr := fmt.Sprintf(":%d", *port)
	logger.WithField("addr", addr).Info("flaky node listening")
	logger.Fatal(http.ListenAndServe(addr, n.handler()))
}

func newNode(failureRate float64, latency, jitter time.Duration, slow []string, seed int64, logger *logrus.Logger) *node {
	n := &node{
		failureRate: failureRate,
		latency:     latency,
		jitter:      jitter,
		slow:        map[string]bool{},
		rnd:         rand.New(rand.NewSource(seed)),
		log:         logger,
	}
	for _, q := range slow {
		n.slow[strings.TrimSpace(q)] = true
	}
	return n
}

func (n *node) handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/{query}", n.serve).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(methodNotFound)
	return router
}

func methodNotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, rpcError(-32601, "Method not found"))
}

func (n *node) serve(w http.ResponseWriter, r *http.Request) {
	query := mux.Vars(r)["query"]
	if !knownQuery(query) {
		methodNotFound(w, r)
		return
	}
	delay, fail := n.roll(query)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.Context().Done():
		return
	}

	if fail {
		n.log.WithField("query", query).Debug("injecting failure")
		respondJSON(w, http.StatusServiceUnavailable, rpcError(-32603, "node is catching up"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"jsonrpc": "2.0",
		"id":      -1,
		"result":  map[string]any{"query": query},
	})
}

func knownQuery(query string) bool {
	for _, q := range defaultQueries {
		if q == query {
			return true
		}
	}
	return false
}

// roll draws the delay and failure decision for one request.
func (n *node) roll(query string) (time.Duration, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delay := n.latency
	if n.jitter > 0 {
		delay += time.Duration(n.rnd.Int63n(int64(n.jitter)))
	}
	if n.slow[query] {
		delay = 1500 * time.Millisecond
	}
	return delay, n.rnd.Float64() < n.failureRate
}

func rpcError(code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      -1,
		"error":   map[string]any{"code": code, "message": message},
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
