package proxywallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/relayer"
	"github.com/openpredict/tradegate/pkg/cache"
	"github.com/openpredict/tradegate/pkg/types"
)

// Polygon mainnet addresses.
const (
	polygonUSDC = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// Standard and negative-risk instruments settle through different
	// exchange contracts, so a wallet may need two distinct allowances.
	ctfExchangeAddress     = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	negRiskExchangeAddress = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
)

const erc20ApproveABI = `[{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

// maxUint256 is the unlimited-approval amount.
var maxUint256, _ = new(big.Int).SetString(strings.Repeat("f", 64), 16)

// ErrOperationInFlight is returned when a second lifecycle operation
// is attempted for an address whose record is already being mutated.
// Operations are rejected rather than interleaved.
var ErrOperationInFlight = errors.New("proxywallet: another operation is in flight for this address")

// LifecycleState is the deployment state of one proxy wallet.
type LifecycleState string

const (
	StateUnknown     LifecycleState = "unknown"
	StateChecking    LifecycleState = "checking"
	StateNotDeployed LifecycleState = "not_deployed"
	StateDeploying   LifecycleState = "deploying"
	StateDeployed    LifecycleState = "deployed"
	StateFailed      LifecycleState = "failed"
)

// ApprovalState tracks one spender allowance independently.
type ApprovalState string

const (
	ApprovalUnapproved ApprovalState = "unapproved"
	ApprovalApproving  ApprovalState = "approving"
	ApprovalApproved   ApprovalState = "approved"
)

// ApprovalTarget is a spender contract that needs an allowance.
type ApprovalTarget string

const (
	TargetCTFExchange     ApprovalTarget = ApprovalTarget(ctfExchangeAddress)
	TargetNegRiskExchange ApprovalTarget = ApprovalTarget(negRiskExchangeAddress)
)

// TargetForRiskCategory maps an instrument's risk category to the
// spender contract that must be approved for it.
func TargetForRiskCategory(rc types.RiskCategory) ApprovalTarget {
	if rc == types.RiskNegativeRisk {
		return TargetNegRiskExchange
	}

	return TargetCTFExchange
}

// Record is the per-owner lifecycle record. Created lazily on first
// status check, mutated by deployment and approval, never deleted.
type Record struct {
	Owner        string
	ProxyAddress string
	State        LifecycleState
	Approvals    map[ApprovalTarget]ApprovalState
	LastError    string // preserved for display after a failed action
}

// clone returns a snapshot safe to hand to callers.
func (r *Record) clone() *Record {
	approvals := make(map[ApprovalTarget]ApprovalState, len(r.Approvals))
	for k, v := range r.Approvals {
		approvals[k] = v
	}

	out := *r
	out.Approvals = approvals
	return &out
}

// RelayClient is the slice of the relay client the manager drives.
type RelayClient interface {
	Deployed(ctx context.Context, address string) (bool, string, error)
	Submit(ctx context.Context, action relayer.Action, payload interface{}) (string, error)
	PollUntilTerminal(ctx context.Context, id string, successStates []relayer.State,
		failureState relayer.State, maxAttempts int, interval time.Duration) (*relayer.Transaction, error)
}

// AddressResolver is an optional secondary source for the proxy
// address of a deployed wallet. Its failure is tolerated: the manager
// falls back to whatever address the primary deployment check reported.
type AddressResolver interface {
	ProxyAddress(ctx context.Context, owner string) (string, error)
}

// Manager tracks proxy-wallet lifecycle per owner address and drives
// deployment and approvals through the relay.
type Manager struct {
	relay        RelayClient
	resolver     AddressResolver // may be nil
	statusCache  cache.Cache     // may be nil
	statusTTL    time.Duration
	pollInterval time.Duration
	maxAttempts  int
	logger       *zap.Logger

	mu      sync.Mutex
	records map[string]*Record
	busy    map[string]bool
}

// Config holds manager configuration.
type Config struct {
	Relay        RelayClient
	Resolver     AddressResolver
	StatusCache  cache.Cache
	StatusTTL    time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	Logger       *zap.Logger
}

// New creates a lifecycle manager.
func New(cfg *Config) (*Manager, error) {
	if cfg.Relay == nil {
		return nil, errors.New("relay client cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}

	return &Manager{
		relay:        cfg.Relay,
		resolver:     cfg.Resolver,
		statusCache:  cfg.StatusCache,
		statusTTL:    cfg.StatusTTL,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		logger:       cfg.Logger,
		records:      make(map[string]*Record),
		busy:         make(map[string]bool),
	}, nil
}

// record returns the record for owner, creating it lazily.
// Callers must hold m.mu.
func (m *Manager) record(owner string) *Record {
	rec, ok := m.records[owner]
	if !ok {
		rec = &Record{
			Owner:     owner,
			State:     StateUnknown,
			Approvals: make(map[ApprovalTarget]ApprovalState),
		}
		m.records[owner] = rec
	}

	return rec
}

// beginOperation claims exclusive mutation rights for an owner. A
// record with an in-flight operation rejects further operations.
func (m *Manager) beginOperation(owner string) (*Record, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy[owner] {
		operationsRejectedTotal.Inc()
		return nil, nil, ErrOperationInFlight
	}

	m.busy[owner] = true

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.busy[owner] = false
	}

	return m.record(owner), release, nil
}

// Record returns a snapshot of the lifecycle record for owner, if any.
func (m *Manager) Record(owner string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[owner]
	if !ok {
		return nil, false
	}

	return rec.clone(), true
}

// CheckStatus queries the relay's deployment-status endpoint and
// transitions the record to NotDeployed or Deployed. Fresh results are
// cached briefly; a cached snapshot never overwrites an in-flight
// operation because it is served without claiming one.
func (m *Manager) CheckStatus(ctx context.Context, owner string) (*Record, error) {
	if m.statusCache != nil {
		if cached, found := m.statusCache.Get(statusCacheKey(owner)); found {
			if rec, ok := cached.(*Record); ok {
				return rec.clone(), nil
			}
		}
	}

	rec, release, err := m.beginOperation(owner)
	if err != nil {
		return nil, err
	}
	defer release()

	m.setState(rec, StateChecking)

	deployed, relayAddr, err := m.relay.Deployed(ctx, owner)
	if err != nil {
		m.setState(rec, StateUnknown)
		return nil, fmt.Errorf("check deployment status: %w", err)
	}

	if !deployed {
		m.setState(rec, StateNotDeployed)
		return m.snapshotAndCache(rec), nil
	}

	proxyAddr := relayAddr
	if m.resolver != nil {
		resolved, resolveErr := m.resolver.ProxyAddress(ctx, owner)
		if resolveErr != nil {
			// Secondary lookup is best effort.
			m.logger.Warn("proxy-address-lookup-failed",
				zap.String("owner", owner),
				zap.Error(resolveErr))
		} else if resolved != "" {
			proxyAddr = resolved
		}
	}

	m.mu.Lock()
	rec.ProxyAddress = proxyAddr
	m.mu.Unlock()
	m.setState(rec, StateDeployed)

	return m.snapshotAndCache(rec), nil
}

// Deploy submits a deploy action for an owner whose wallet is not
// deployed and waits for the relay to reach a terminal state. On
// timeout or explicit failure the record lands in Failed with the
// underlying error preserved; there is no silent retry.
func (m *Manager) Deploy(ctx context.Context, owner string) (*Record, error) {
	rec, release, err := m.beginOperation(owner)
	if err != nil {
		return nil, err
	}
	defer release()

	if rec.State != StateNotDeployed {
		return nil, fmt.Errorf("deploy is only valid from %s state, record is %s",
			StateNotDeployed, rec.State)
	}

	m.setState(rec, StateDeploying)
	m.invalidateStatus(owner)

	txID, err := m.relay.Submit(ctx, relayer.ActionDeploy, map[string]string{
		"from": owner,
	})
	if err != nil {
		m.fail(rec, err.Error())
		return nil, fmt.Errorf("submit deploy: %w", err)
	}

	tx, err := m.relay.PollUntilTerminal(ctx, txID,
		relayer.MinedStates, relayer.StateFailed, m.maxAttempts, m.pollInterval)
	if err != nil {
		// Includes RelayTimeoutError: outcome unknown, preserved as-is
		// for the caller to surface.
		m.fail(rec, err.Error())
		return nil, fmt.Errorf("await deploy: %w", err)
	}

	if tx.State == relayer.StateFailed {
		m.fail(rec, tx.ErrorMessage)
		deploymentsTotal.WithLabelValues("failed").Inc()
		return rec.clone(), nil
	}

	m.mu.Lock()
	rec.ProxyAddress = tx.ProxyAddress
	rec.LastError = ""
	m.mu.Unlock()
	m.setState(rec, StateDeployed)
	deploymentsTotal.WithLabelValues("deployed").Inc()

	m.logger.Info("proxy-wallet-deployed",
		zap.String("owner", owner),
		zap.String("proxy", tx.ProxyAddress),
		zap.String("tx-hash", tx.Hash))

	return rec.clone(), nil
}

// Approve executes a single-call batch approving unlimited USDC
// spending for the target through the relay. Valid only once the
// wallet is Deployed.
func (m *Manager) Approve(ctx context.Context, owner string, target ApprovalTarget) error {
	rec, release, err := m.beginOperation(owner)
	if err != nil {
		return err
	}
	defer release()

	if rec.State != StateDeployed {
		return &types.ProxyNotDeployedError{Owner: owner}
	}

	m.setApproval(rec, target, ApprovalApproving)

	calldata, err := approveCalldata(string(target))
	if err != nil {
		m.setApproval(rec, target, ApprovalUnapproved)
		return fmt.Errorf("build approve calldata: %w", err)
	}

	payload := map[string]interface{}{
		"from":  owner,
		"proxy": rec.ProxyAddress,
		"calls": []relayer.ProxyCall{
			{To: polygonUSDC, Data: calldata, Value: "0"},
		},
	}

	txID, err := m.relay.Submit(ctx, relayer.ActionExecute, payload)
	if err != nil {
		m.setApproval(rec, target, ApprovalUnapproved)
		return fmt.Errorf("submit approval: %w", err)
	}

	tx, err := m.relay.PollUntilTerminal(ctx, txID,
		relayer.MinedStates, relayer.StateFailed, m.maxAttempts, m.pollInterval)
	if err != nil {
		m.setApproval(rec, target, ApprovalUnapproved)
		return fmt.Errorf("await approval: %w", err)
	}

	if tx.State == relayer.StateFailed {
		m.setApproval(rec, target, ApprovalUnapproved)
		approvalsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("approval transaction failed: %s", tx.ErrorMessage)
	}

	m.setApproval(rec, target, ApprovalApproved)
	approvalsTotal.WithLabelValues("approved").Inc()

	m.logger.Info("allowance-approved",
		zap.String("owner", owner),
		zap.String("spender", string(target)),
		zap.String("tx-hash", tx.Hash))

	return nil
}

func (m *Manager) setState(rec *Record, state LifecycleState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.State = state
}

func (m *Manager) fail(rec *Record, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.State = StateFailed
	rec.LastError = message
}

func (m *Manager) setApproval(rec *Record, target ApprovalTarget, state ApprovalState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Approvals[target] = state
}

func (m *Manager) snapshotAndCache(rec *Record) *Record {
	m.mu.Lock()
	snapshot := rec.clone()
	m.mu.Unlock()

	if m.statusCache != nil && m.statusTTL > 0 {
		m.statusCache.Set(statusCacheKey(rec.Owner), snapshot, m.statusTTL)
	}

	return snapshot
}

func (m *Manager) invalidateStatus(owner string) {
	if m.statusCache != nil {
		m.statusCache.Delete(statusCacheKey(owner))
	}
}

func statusCacheKey(owner string) string {
	return "proxy-status:" + owner
}

// approveCalldata packs approve(spender, maxUint256).
func approveCalldata(spender string) (string, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ApproveABI))
	if err != nil {
		return "", fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("approve", common.HexToAddress(spender), maxUint256)
	if err != nil {
		return "", fmt.Errorf("pack approve call: %w", err)
	}

	return hexutil.Encode(data), nil
}
