package healthprobe

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthChecker provides health and readiness checks. Readiness is
// tracked per component so a probe can say which subsystem is still
// starting.
type HealthChecker struct {
	startTime time.Time

	mu    sync.RWMutex
	ready map[string]bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		ready:     make(map[string]bool),
	}
}

// SetReady marks one component as ready (or not) to serve traffic.
func (h *HealthChecker) SetReady(component string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready[component] = ready
}

// notReady returns the components currently marked unready, sorted.
func (h *HealthChecker) notReady() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []string
	for name, ready := range h.ready {
		if !ready {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string   `json:"status"`
	Uptime   string   `json:"uptime"`
	Starting []string `json:"starting,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every registered component is ready,
// 503 Service Unavailable otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if starting := h.notReady(); len(starting) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(HealthResponse{
				Status:   "not_ready",
				Uptime:   time.Since(h.startTime).String(),
				Starting: starting,
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}
