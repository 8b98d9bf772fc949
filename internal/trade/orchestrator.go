package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/proxywallet"
	"github.com/openpredict/tradegate/pkg/types"
	"github.com/openpredict/tradegate/pkg/wallet"
)

// OrderClient submits one venue's orders.
type OrderClient interface {
	BuildAndSubmit(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error)
}

// KalshiOrderClient adds the venue's portfolio balance read.
type KalshiOrderClient interface {
	OrderClient
	Balance(ctx context.Context) (float64, error)
}

// ProxyManager is the slice of the proxy-wallet manager the
// orchestrator needs: status reads and allowance approvals.
type ProxyManager interface {
	CheckStatus(ctx context.Context, owner string) (*proxywallet.Record, error)
	Approve(ctx context.Context, owner string, target proxywallet.ApprovalTarget) error
}

// BalanceReader reads on-chain USDC balance and allowances.
type BalanceReader interface {
	GetBalances(ctx context.Context, owner common.Address, spenders []string) (*wallet.Balances, error)
}

// Storage persists trade results.
type Storage interface {
	StoreTradeResult(ctx context.Context, result *types.TradeResult) error
}

// Breaker gates trade submission on wallet health.
type Breaker interface {
	IsEnabled() bool
	RecordTrade(size float64)
}

// Orchestrator runs pre-trade checks and routes a trade request to the
// right venue client. Funds and wallet state are verified before
// anything is signed; a failed check never produces a signature.
type Orchestrator struct {
	kalshi     KalshiOrderClient // nil when the venue is unconfigured
	polymarket OrderClient       // nil when the venue is unconfigured
	proxy      ProxyManager
	balances   BalanceReader
	storage    Storage // may be nil
	breaker    Breaker // may be nil
	owner      string  // signer EOA that owns the proxy wallet
	logger     *zap.Logger
}

// Config holds orchestrator configuration.
type Config struct {
	Kalshi     KalshiOrderClient
	Polymarket OrderClient
	Proxy      ProxyManager
	Balances   BalanceReader
	Storage    Storage
	Breaker    Breaker
	Owner      string
	Logger     *zap.Logger
}

// New creates a trade orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Polymarket != nil {
		if cfg.Proxy == nil || cfg.Balances == nil {
			return nil, errors.New("polymarket trading requires a proxy manager and a balance reader")
		}
		if cfg.Owner == "" {
			return nil, errors.New("polymarket trading requires the owner address")
		}
	}

	return &Orchestrator{
		kalshi:     cfg.Kalshi,
		polymarket: cfg.Polymarket,
		proxy:      cfg.Proxy,
		balances:   cfg.Balances,
		storage:    cfg.Storage,
		breaker:    cfg.Breaker,
		owner:      cfg.Owner,
		logger:     cfg.Logger,
	}, nil
}

// ExecuteTrade validates the request against wallet and venue state,
// then builds, signs and submits the order. The venue's answer is
// returned unchanged; every completed submission is persisted best
// effort.
func (o *Orchestrator) ExecuteTrade(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error) {
	if req == nil || req.Market == nil {
		return nil, errors.New("trade request must carry a market")
	}

	if o.breaker != nil && !o.breaker.IsEnabled() {
		tradesTotal.WithLabelValues(string(req.Market.Venue), "breaker_open").Inc()
		return nil, errors.New("trading disabled: wallet balance below circuit-breaker threshold")
	}

	var (
		result *types.TradeResult
		err    error
	)

	switch req.Market.Venue {
	case types.VenueKalshi:
		result, err = o.executeKalshi(ctx, req)
	case types.VenuePolymarket:
		result, err = o.executePolymarket(ctx, req)
	default:
		return nil, fmt.Errorf("unknown venue %q", req.Market.Venue)
	}

	if err != nil {
		tradesTotal.WithLabelValues(string(req.Market.Venue), "failed").Inc()
		return nil, err
	}

	tradesTotal.WithLabelValues(string(req.Market.Venue), "submitted").Inc()
	if o.breaker != nil {
		o.breaker.RecordTrade(req.Amount)
	}
	o.store(ctx, result)

	return result, nil
}

func (o *Orchestrator) executeKalshi(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error) {
	if o.kalshi == nil {
		return nil, &types.ConfigurationError{Venue: "kalshi", Missing: "API credentials"}
	}

	if req.Side == types.SideBuy {
		balance, err := o.kalshi.Balance(ctx)
		if err != nil {
			return nil, fmt.Errorf("read kalshi balance: %w", err)
		}

		if balance < req.Amount {
			return nil, &types.InsufficientBalanceError{Balance: balance, Required: req.Amount}
		}
	}

	return o.kalshi.BuildAndSubmit(ctx, req)
}

func (o *Orchestrator) executePolymarket(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error) {
	if o.polymarket == nil {
		return nil, &types.ConfigurationError{Venue: "polymarket", Missing: "API credentials"}
	}

	rec, err := o.proxy.CheckStatus(ctx, o.owner)
	if err != nil {
		return nil, fmt.Errorf("check proxy status: %w", err)
	}

	// Deployment is a separate user action. A missing proxy stops the
	// trade before any order is signed.
	if rec.State != proxywallet.StateDeployed {
		return nil, &types.ProxyNotDeployedError{Owner: o.owner}
	}

	if req.Side == types.SideBuy {
		if err := o.checkFunds(ctx, req, rec.ProxyAddress); err != nil {
			return nil, err
		}
	}

	return o.polymarket.BuildAndSubmit(ctx, req)
}

// checkFunds verifies the proxy wallet's USDC balance and its
// allowance toward the exchange that settles this market. A short
// allowance triggers exactly one approval cycle; a shortage that
// survives it is reported, never retried again.
func (o *Orchestrator) checkFunds(ctx context.Context, req *types.TradeRequest, proxyAddress string) error {
	target := proxywallet.TargetForRiskCategory(req.Market.RiskCategory())
	spender := string(target)

	balances, err := o.balances.GetBalances(ctx, common.HexToAddress(proxyAddress), []string{spender})
	if err != nil {
		return fmt.Errorf("read wallet balances: %w", err)
	}

	if balances.USDC < req.Amount {
		return &types.InsufficientBalanceError{Balance: balances.USDC, Required: req.Amount}
	}

	if balances.Allowances[spender] >= req.Amount {
		return nil
	}

	o.logger.Info("allowance-below-trade-amount",
		zap.String("spender", spender),
		zap.Float64("allowance", balances.Allowances[spender]),
		zap.Float64("required", req.Amount))

	if err := o.proxy.Approve(ctx, o.owner, target); err != nil {
		return fmt.Errorf("approve spender: %w", err)
	}

	balances, err = o.balances.GetBalances(ctx, common.HexToAddress(proxyAddress), []string{spender})
	if err != nil {
		return fmt.Errorf("re-read wallet balances: %w", err)
	}

	if balances.Allowances[spender] < req.Amount {
		return &types.InsufficientAllowanceError{
			Spender:   spender,
			Allowance: balances.Allowances[spender],
			Required:  req.Amount,
		}
	}

	return nil
}

func (o *Orchestrator) store(ctx context.Context, result *types.TradeResult) {
	if o.storage == nil || result == nil {
		return
	}

	if err := o.storage.StoreTradeResult(ctx, result); err != nil {
		o.logger.Warn("trade-result-store-failed", zap.Error(err))
	}
}
