package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockRelayAPI is a mock HTTP server that simulates the gasless relay
// service: deployment checks, nonces, action submission and
// transaction polling. Submitted transactions walk a scripted state
// sequence, one step per poll.
type MockRelayAPI struct {
	*httptest.Server

	mu           sync.Mutex
	deployed     map[string]string // owner -> proxy address ("" = not deployed)
	nonces       map[string]int
	states       []string // sequence each new transaction walks through
	txSteps      map[string]int
	txCounter    int
	Submissions  []MockSubmission
	FinalHash    string
	FinalError   string
	ProxyAddress string
}

// MockSubmission records one POSTed relay action for verification.
type MockSubmission struct {
	Action  string
	Payload map[string]json.RawMessage
}

// NewMockRelayAPI creates a relay mock whose transactions finish in
// the given terminal state after walking the intermediate ones.
func NewMockRelayAPI(states ...string) *MockRelayAPI {
	if len(states) == 0 {
		states = []string{"STATE_NEW", "STATE_EXECUTED", "STATE_CONFIRMED"}
	}

	mock := &MockRelayAPI{
		deployed: make(map[string]string),
		nonces:   make(map[string]int),
		states:   states,
		txSteps:  make(map[string]int),
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// SetDeployed marks an owner's proxy as existing at the given address.
func (m *MockRelayAPI) SetDeployed(owner, proxyAddress string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deployed[owner] = proxyAddress
}

func (m *MockRelayAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/deployed":
		owner := r.URL.Query().Get("address")
		proxy, ok := m.deployed[owner]
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"deployed":     ok && proxy != "",
			"proxyAddress": proxy,
		})

	case r.URL.Path == "/nonce":
		owner := r.URL.Query().Get("address")
		m.nonces[owner]++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"nonce": fmt.Sprintf("%d", m.nonces[owner]),
		})

	case r.URL.Path == "/transaction":
		id := r.URL.Query().Get("id")
		step, ok := m.txSteps[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown transaction"})
			return
		}

		state := m.states[step]
		if step < len(m.states)-1 {
			m.txSteps[id] = step + 1
		}

		resp := map[string]interface{}{
			"transactionID": id,
			"state":         state,
		}
		if state == "STATE_CONFIRMED" || state == "STATE_MINED" {
			resp["transactionHash"] = m.FinalHash
			resp["proxyAddress"] = m.ProxyAddress
		}
		if state == "STATE_FAILED" {
			resp["error"] = m.FinalError
		}
		_ = json.NewEncoder(w).Encode(resp)

	case r.Method == http.MethodPost:
		var payload map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&payload)

		m.txCounter++
		id := fmt.Sprintf("tx-%d", m.txCounter)
		m.txSteps[id] = 0
		m.Submissions = append(m.Submissions, MockSubmission{
			Action:  r.URL.Path[1:],
			Payload: payload,
		})

		_ = json.NewEncoder(w).Encode(map[string]string{"transactionID": id})

	default:
		http.NotFound(w, r)
	}
}
