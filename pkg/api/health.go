package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
)

// leaderChecker is implemented by *storage.RaftStore; narrowed to an
// interface here so HealthServer only depends on pkg/storage's Store
// contract plus this one extra method.
type leaderChecker interface {
	IsLeader() bool
}

// HealthServer provides HTTP liveness/readiness endpoints, served on a
// separate port from the main API so orchestrators can probe it even when
// the control-plane listener is saturated.
type HealthServer struct {
	store storage.Store
	mux   *http.ServeMux
}

// NewHealthServer creates a new health check HTTP server. A nil store is
// accepted so a process can come up not-ready and still answer probes.
func NewHealthServer(store storage.Store) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		store: store,
		mux:   mux,
	}

	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start starts the health check HTTP server.
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint: a liveness check that
// returns 200 as long as the process can answer HTTP at all.
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler implements the /ready endpoint: ready means the store answers
// a prefix read. A store that participates in Raft also has its role
// (leader or follower) reported under checks["raft"]; the role does not
// affect readiness.
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true
	var message string

	if hs.store == nil {
		checks["raft"] = "not initialized"
		checks["store"] = "not initialized"
		ready = false
		message = "store not initialized"
	} else {
		if lc, ok := hs.store.(leaderChecker); ok {
			if lc.IsLeader() {
				checks["raft"] = "leader"
			} else {
				checks["raft"] = "follower"
			}
		}
		if _, err := hs.store.ReadPrefix(context.Background(), "clusters/"); err != nil {
			checks["store"] = fmt.Sprintf("error: %v", err)
			ready = false
			message = "store not accessible"
		} else {
			checks["store"] = "ok"
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers.
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}
