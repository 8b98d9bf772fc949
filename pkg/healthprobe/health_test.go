package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	hc := New()

	if hc == nil {
		t.Fatal("New() returned nil")
	}

	if time.Since(hc.startTime) > 1*time.Second {
		t.Errorf("Start time is too old: %v", hc.startTime)
	}
}

func TestHealth_AlwaysOK(t *testing.T) {
	hc := New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	hc.Health()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", resp.Status)
	}
}

func TestReady_NoComponents(t *testing.T) {
	hc := New()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	hc.Ready()(rec, req)

	// Nothing registered means nothing is starting.
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReady_ComponentLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(hc *HealthChecker)
		wantCode   int
		wantStatus string
	}{
		{
			name: "registered_but_not_ready",
			setup: func(hc *HealthChecker) {
				hc.SetReady("signer", false)
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
		},
		{
			name: "all_ready",
			setup: func(hc *HealthChecker) {
				hc.SetReady("signer", true)
				hc.SetReady("relay", true)
			},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name: "one_of_two_ready",
			setup: func(hc *HealthChecker) {
				hc.SetReady("signer", true)
				hc.SetReady("relay", false)
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New()
			tt.setup(hc)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()

			hc.Ready()(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if resp.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, resp.Status)
			}
		})
	}
}

func TestReady_ReportsStartingComponents(t *testing.T) {
	hc := New()
	hc.SetReady("relay", false)
	hc.SetReady("signer", false)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	hc.Ready()(rec, req)

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Starting) != 2 || resp.Starting[0] != "relay" || resp.Starting[1] != "signer" {
		t.Errorf("expected sorted starting list [relay signer], got %v", resp.Starting)
	}
}

func TestSetReady_Toggle(t *testing.T) {
	hc := New()
	hc.SetReady("signer", false)

	if got := hc.notReady(); len(got) != 1 {
		t.Fatalf("expected one unready component, got %v", got)
	}

	hc.SetReady("signer", true)

	if got := hc.notReady(); len(got) != 0 {
		t.Errorf("expected no unready components, got %v", got)
	}
}
