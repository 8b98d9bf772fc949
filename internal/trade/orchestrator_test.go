package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/proxywallet"
	"github.com/openpredict/tradegate/pkg/types"
	"github.com/openpredict/tradegate/pkg/wallet"
)

const (
	testOwner = "0x1111111111111111111111111111111111111111"
	testProxy = "0x2222222222222222222222222222222222222222"
)

type fakeOrderClient struct {
	submissions int
	result      *types.TradeResult
	err         error
	balance     float64
	balanceErr  error
}

func (f *fakeOrderClient) BuildAndSubmit(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error) {
	f.submissions++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &types.TradeResult{Success: true, Venue: req.Market.Venue, OrderID: "order-1"}, nil
}

func (f *fakeOrderClient) Balance(ctx context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

type fakeProxyManager struct {
	state        proxywallet.LifecycleState
	statusCalls  int
	approveCalls int
	approveErr   error
	approved     []proxywallet.ApprovalTarget

	// onApprove lets a test raise the allowance the moment the
	// approval lands, mimicking a confirmed on-chain transaction.
	onApprove func()
}

func (f *fakeProxyManager) CheckStatus(ctx context.Context, owner string) (*proxywallet.Record, error) {
	f.statusCalls++
	return &proxywallet.Record{Owner: owner, ProxyAddress: testProxy, State: f.state}, nil
}

func (f *fakeProxyManager) Approve(ctx context.Context, owner string, target proxywallet.ApprovalTarget) error {
	f.approveCalls++
	f.approved = append(f.approved, target)
	if f.approveErr != nil {
		return f.approveErr
	}
	if f.onApprove != nil {
		f.onApprove()
	}
	return nil
}

type fakeBalanceReader struct {
	usdc       float64
	allowances map[string]float64
	calls      int
	err        error
}

func (f *fakeBalanceReader) GetBalances(ctx context.Context, owner common.Address, spenders []string) (*wallet.Balances, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	out := &wallet.Balances{USDC: f.usdc, Allowances: make(map[string]float64)}
	for _, spender := range spenders {
		out.Allowances[spender] = f.allowances[spender]
	}
	return out, nil
}

type fakeStorage struct {
	stored []*types.TradeResult
	err    error
}

func (f *fakeStorage) StoreTradeResult(ctx context.Context, result *types.TradeResult) error {
	f.stored = append(f.stored, result)
	return f.err
}

type fakeBreaker struct {
	enabled  bool
	recorded []float64
}

func (f *fakeBreaker) IsEnabled() bool          { return f.enabled }
func (f *fakeBreaker) RecordTrade(size float64) { f.recorded = append(f.recorded, size) }

func polymarketRequest(negRisk bool) *types.TradeRequest {
	return &types.TradeRequest{
		Market: &types.Market{
			Venue:      types.VenuePolymarket,
			YesTokenID: "1111",
			NoTokenID:  "2222",
			NegRisk:    negRisk,
		},
		Outcome: "YES",
		Amount:  50,
		Side:    types.SideBuy,
		Price:   0.5,
	}
}

func kalshiRequest() *types.TradeRequest {
	return &types.TradeRequest{
		Market:  &types.Market{Venue: types.VenueKalshi, Ticker: "FED-25DEC"},
		Outcome: "YES",
		Amount:  50,
		Side:    types.SideBuy,
		Price:   0.4,
	}
}

func newTestOrchestrator(t *testing.T, cfg *Config) *Orchestrator {
	t.Helper()

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Owner == "" {
		cfg.Owner = testOwner
	}

	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func TestUnconfiguredVenue(t *testing.T) {
	o := newTestOrchestrator(t, &Config{
		Kalshi: &fakeOrderClient{balance: 1000},
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))
	require.Error(t, err)

	var cfgErr *types.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "polymarket", cfgErr.Venue)
}

func TestKalshiInsufficientBalanceBlocksSubmission(t *testing.T) {
	client := &fakeOrderClient{balance: 10}
	o := newTestOrchestrator(t, &Config{Kalshi: client})

	_, err := o.ExecuteTrade(context.Background(), kalshiRequest())
	require.Error(t, err)

	var balErr *types.InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.Equal(t, 10.0, balErr.Balance)
	assert.Equal(t, 50.0, balErr.Required)
	assert.Zero(t, client.submissions, "no order may be built after a failed balance check")
}

func TestKalshiSellSkipsBalanceCheck(t *testing.T) {
	client := &fakeOrderClient{balance: 0}
	o := newTestOrchestrator(t, &Config{Kalshi: client})

	req := kalshiRequest()
	req.Side = types.SideSell

	_, err := o.ExecuteTrade(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, client.submissions)
}

func TestUndeployedProxyBlocksSigning(t *testing.T) {
	client := &fakeOrderClient{}
	balances := &fakeBalanceReader{usdc: 1000}
	o := newTestOrchestrator(t, &Config{
		Polymarket: client,
		Proxy:      &fakeProxyManager{state: proxywallet.StateNotDeployed},
		Balances:   balances,
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))
	require.Error(t, err)

	var notDeployed *types.ProxyNotDeployedError
	require.True(t, errors.As(err, &notDeployed))
	assert.Equal(t, testOwner, notDeployed.Owner)
	assert.Zero(t, client.submissions)
	assert.Zero(t, balances.calls, "balance is not read for a missing proxy")
}

func TestPolymarketInsufficientBalance(t *testing.T) {
	client := &fakeOrderClient{}
	o := newTestOrchestrator(t, &Config{
		Polymarket: client,
		Proxy:      &fakeProxyManager{state: proxywallet.StateDeployed},
		Balances:   &fakeBalanceReader{usdc: 20},
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))
	require.Error(t, err)

	var balErr *types.InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.Zero(t, client.submissions)
}

func TestZeroAllowanceTriggersOneApprovalThenProceeds(t *testing.T) {
	client := &fakeOrderClient{}
	balances := &fakeBalanceReader{usdc: 1000, allowances: map[string]float64{}}
	proxy := &fakeProxyManager{state: proxywallet.StateDeployed}

	spender := string(proxywallet.TargetCTFExchange)
	proxy.onApprove = func() {
		balances.allowances[spender] = 1e12
	}

	o := newTestOrchestrator(t, &Config{
		Polymarket: client,
		Proxy:      proxy,
		Balances:   balances,
	})

	result, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, proxy.approveCalls)
	assert.Equal(t, 1, client.submissions)
	assert.Equal(t, 2, balances.calls, "allowance is re-read after the approval")
}

func TestAutoApprovalNeverRetried(t *testing.T) {
	client := &fakeOrderClient{}
	// Allowance stays short even after the approval cycle.
	balances := &fakeBalanceReader{usdc: 1000, allowances: map[string]float64{}}
	proxy := &fakeProxyManager{state: proxywallet.StateDeployed}

	o := newTestOrchestrator(t, &Config{
		Polymarket: client,
		Proxy:      proxy,
		Balances:   balances,
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))
	require.Error(t, err)

	var allowErr *types.InsufficientAllowanceError
	require.True(t, errors.As(err, &allowErr))
	assert.Equal(t, string(proxywallet.TargetCTFExchange), allowErr.Spender)
	assert.Equal(t, 1, proxy.approveCalls, "approval runs exactly once")
	assert.Zero(t, client.submissions)
}

func TestNegRiskMarketApprovesNegRiskExchange(t *testing.T) {
	balances := &fakeBalanceReader{usdc: 1000, allowances: map[string]float64{}}
	proxy := &fakeProxyManager{state: proxywallet.StateDeployed}

	spender := string(proxywallet.TargetNegRiskExchange)
	proxy.onApprove = func() {
		balances.allowances[spender] = 1e12
	}

	o := newTestOrchestrator(t, &Config{
		Polymarket: &fakeOrderClient{},
		Proxy:      proxy,
		Balances:   balances,
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(true))
	require.NoError(t, err)
	require.Len(t, proxy.approved, 1)
	assert.Equal(t, proxywallet.TargetNegRiskExchange, proxy.approved[0])
}

func TestSufficientAllowanceSkipsApproval(t *testing.T) {
	spender := string(proxywallet.TargetCTFExchange)
	proxy := &fakeProxyManager{state: proxywallet.StateDeployed}

	o := newTestOrchestrator(t, &Config{
		Polymarket: &fakeOrderClient{},
		Proxy:      proxy,
		Balances: &fakeBalanceReader{
			usdc:       1000,
			allowances: map[string]float64{spender: 1e12},
		},
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))
	require.NoError(t, err)
	assert.Zero(t, proxy.approveCalls)
}

func TestTradeResultIsStored(t *testing.T) {
	storage := &fakeStorage{}
	o := newTestOrchestrator(t, &Config{
		Kalshi:  &fakeOrderClient{balance: 1000},
		Storage: storage,
	})

	result, err := o.ExecuteTrade(context.Background(), kalshiRequest())
	require.NoError(t, err)
	require.Len(t, storage.stored, 1)
	assert.Equal(t, result, storage.stored[0])
}

func TestStorageFailureDoesNotFailTrade(t *testing.T) {
	storage := &fakeStorage{err: errors.New("connection refused")}
	o := newTestOrchestrator(t, &Config{
		Kalshi:  &fakeOrderClient{balance: 1000},
		Storage: storage,
	})

	result, err := o.ExecuteTrade(context.Background(), kalshiRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestOpenBreakerBlocksAllTrades(t *testing.T) {
	client := &fakeOrderClient{balance: 1000}
	breaker := &fakeBreaker{enabled: false}

	o := newTestOrchestrator(t, &Config{
		Kalshi:  client,
		Breaker: breaker,
	})

	_, err := o.ExecuteTrade(context.Background(), kalshiRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit-breaker")
	assert.Zero(t, client.submissions)
}

func TestSubmittedTradesAreRecordedOnBreaker(t *testing.T) {
	breaker := &fakeBreaker{enabled: true}

	o := newTestOrchestrator(t, &Config{
		Kalshi:  &fakeOrderClient{balance: 1000},
		Breaker: breaker,
	})

	_, err := o.ExecuteTrade(context.Background(), kalshiRequest())
	require.NoError(t, err)
	require.Len(t, breaker.recorded, 1)
	assert.Equal(t, 50.0, breaker.recorded[0])
}

func TestVenueRejectionPropagatedUnchanged(t *testing.T) {
	rejection := &types.VenueRejectedOrderError{
		Venue:   types.VenuePolymarket,
		Code:    types.ErrNotEnoughBalance,
		Message: "not enough balance / allowance",
	}
	spender := string(proxywallet.TargetCTFExchange)

	o := newTestOrchestrator(t, &Config{
		Polymarket: &fakeOrderClient{err: rejection},
		Proxy:      &fakeProxyManager{state: proxywallet.StateDeployed},
		Balances: &fakeBalanceReader{
			usdc:       1000,
			allowances: map[string]float64{spender: 1e12},
		},
	})

	_, err := o.ExecuteTrade(context.Background(), polymarketRequest(false))

	var rejected *types.VenueRejectedOrderError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, rejection.Message, rejected.Message)
}
