package relayer

import (
	"github.com/goccy/go-json"
)

// State is a relay transaction state. The set is closed: a transaction
// starts NEW and ends CONFIRMED, MINED or FAILED.
type State string

const (
	StateNew       State = "STATE_NEW"
	StateExecuted  State = "STATE_EXECUTED"
	StateMined     State = "STATE_MINED"
	StateConfirmed State = "STATE_CONFIRMED"
	StateFailed    State = "STATE_FAILED"
)

// MinedStates are the success terminals for most flows. Deployment
// accepts either: a mined deploy is as good as a confirmed one.
var MinedStates = []State{StateConfirmed, StateMined}

// Action names the relay endpoint an intent is posted to.
type Action string

const (
	ActionDeploy  Action = "deploy"  // deploy the caller's proxy wallet
	ActionExecute Action = "execute" // execute a batch of proxy-wallet calls
)

// ProxyCall is one call inside an execute batch.
type ProxyCall struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// Transaction is the relay's view of one submitted intent. Created on
// submission, polled until terminal, then discarded by the caller.
type Transaction struct {
	ID           string
	State        State
	Hash         string // on-chain transaction hash once executed
	ProxyAddress string // resulting proxy address for deploy actions
	ErrorMessage string // relay-reported failure reason, if any
}

// Terminal reports whether the state cannot change anymore.
func (t *Transaction) Terminal() bool {
	return t.State == StateConfirmed || t.State == StateMined || t.State == StateFailed
}

// The relay has renamed result fields across versions. Each concept is
// resolved through one ordered alias list instead of scattered
// fallbacks; the first present, non-empty name wins.
var (
	idAliases     = []string{"transactionID", "transactionId", "id"}
	stateAliases  = []string{"state", "status"}
	hashAliases   = []string{"transactionHash", "txHash", "hash"}
	proxyAliases  = []string{"proxyAddress", "proxyWallet", "address"}
	errMsgAliases = []string{"error", "errorMessage", "reason"}
	deployedAlias = []string{"deployed", "isDeployed"}
	nonceAliases  = []string{"nonce"}
)

// resolveString returns the first alias present in raw that decodes to
// a non-empty string.
func resolveString(raw map[string]json.RawMessage, aliases []string) string {
	for _, name := range aliases {
		value, ok := raw[name]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(value, &s); err == nil && s != "" {
			return s
		}
	}

	return ""
}

// resolveBool returns the first alias present in raw that decodes to a
// bool, and whether any did.
func resolveBool(raw map[string]json.RawMessage, aliases []string) (bool, bool) {
	for _, name := range aliases {
		value, ok := raw[name]
		if !ok {
			continue
		}

		var b bool
		if err := json.Unmarshal(value, &b); err == nil {
			return b, true
		}
	}

	return false, false
}

// transactionFromRaw maps a raw relay response onto a Transaction.
func transactionFromRaw(raw map[string]json.RawMessage) *Transaction {
	return &Transaction{
		ID:           resolveString(raw, idAliases),
		State:        State(resolveString(raw, stateAliases)),
		Hash:         resolveString(raw, hashAliases),
		ProxyAddress: resolveString(raw, proxyAliases),
		ErrorMessage: resolveString(raw, errMsgAliases),
	}
}
