package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/circuitbreaker"
	"github.com/openpredict/tradegate/internal/orders"
	"github.com/openpredict/tradegate/internal/proxywallet"
	"github.com/openpredict/tradegate/internal/relayer"
	"github.com/openpredict/tradegate/internal/signing"
	"github.com/openpredict/tradegate/internal/storage"
	"github.com/openpredict/tradegate/internal/trade"
	"github.com/openpredict/tradegate/pkg/cache"
	"github.com/openpredict/tradegate/pkg/config"
	"github.com/openpredict/tradegate/pkg/healthprobe"
	"github.com/openpredict/tradegate/pkg/httpserver"
	"github.com/openpredict/tradegate/pkg/wallet"
)

// New creates a new application instance. Venues whose credentials are
// missing stay unwired; their trade calls answer ConfigurationError
// instead of failing at startup.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	statusCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	kalshiClient, err := setupKalshi(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup kalshi: %w", err)
	}

	orderSigner, attribution, localSigner, err := setupPolymarketIdentity(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup polymarket identity: %w", err)
	}

	relay, err := relayer.New(&relayer.Config{
		BaseURL:     cfg.RelayURL,
		Timeout:     cfg.RelayHTTPTimeout,
		Attribution: attribution,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup relay client: %w", err)
	}

	proxyManager, err := proxywallet.New(&proxywallet.Config{
		Relay:        relay,
		StatusCache:  statusCache,
		StatusTTL:    cfg.ProxyStatusTTL,
		PollInterval: cfg.RelayPollInterval,
		MaxAttempts:  cfg.RelayMaxAttempts,
		Logger:       logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup proxy manager: %w", err)
	}

	polymarketClient, err := setupPolymarket(cfg, orderSigner, attribution, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup polymarket: %w", err)
	}

	walletClient, err := wallet.NewClient(cfg.PolygonRPCURL, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup wallet client: %w", err)
	}

	tradeStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	owner := ""
	if orderSigner != nil {
		owner = orderSigner.Address()
	}

	breaker, err := setupBreaker(cfg, walletClient, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	orchestrator, err := trade.New(&trade.Config{
		Kalshi:     nilIfUnset(kalshiClient),
		Polymarket: nilIfUnsetPM(polymarketClient),
		Proxy:      proxyManager,
		Balances:   walletClient,
		Storage:    tradeStorage,
		Breaker:    nilIfUnsetBreaker(breaker),
		Owner:      owner,
		Logger:     logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup orchestrator: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Signer:        nilIfUnsetLocal(localSigner),
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		statusCache:   statusCache,
		relay:         relay,
		proxyManager:  proxyManager,
		orchestrator:  orchestrator,
		tradeStorage:  tradeStorage,
		breaker:       breaker,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupKalshi(cfg *config.Config, logger *zap.Logger) (*orders.KalshiClient, error) {
	if !cfg.KalshiConfigured() {
		logger.Info("kalshi-unconfigured")
		return nil, nil
	}

	signer, err := signing.NewKalshiSigner(cfg.KalshiAPIKeyID, cfg.KalshiPrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	return orders.NewKalshiClient(&orders.KalshiConfig{
		BaseURL: cfg.KalshiBaseURL,
		Signer:  signer,
		Logger:  logger,
	})
}

// setupPolymarketIdentity builds the EIP-712 order signer and the
// attribution signer. The third return value is the local HMAC signer
// when one exists, used to back the /sign endpoint.
func setupPolymarketIdentity(cfg *config.Config) (*signing.OrderSigner, signing.AttributionSigner, *signing.LocalAttributionSigner, error) {
	if !cfg.PolymarketConfigured() {
		return nil, nil, nil, nil
	}

	orderSigner, err := signing.NewOrderSigner(cfg.PolymarketPrivateKey, cfg.PolymarketProxy, cfg.PolymarketSigType)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.SigningMode == "remote" {
		remote, err := signing.NewRemoteAttributionSigner(cfg.SigningServiceURL, cfg.RelayHTTPTimeout)
		if err != nil {
			return nil, nil, nil, err
		}
		return orderSigner, remote, nil, nil
	}

	local, err := signing.NewLocalAttributionSigner(
		orderSigner.Address(), cfg.PolymarketAPIKey, cfg.PolymarketSecret, cfg.PolymarketPassphrase)
	if err != nil {
		return nil, nil, nil, err
	}

	return orderSigner, local, local, nil
}

func setupPolymarket(
	cfg *config.Config,
	orderSigner *signing.OrderSigner,
	attribution signing.AttributionSigner,
	logger *zap.Logger,
) (*orders.PolymarketClient, error) {
	if orderSigner == nil || attribution == nil {
		logger.Info("polymarket-unconfigured")
		return nil, nil
	}

	return orders.NewPolymarketClient(&orders.PolymarketConfig{
		BaseURL:     cfg.PolymarketCLOBURL,
		APIKey:      cfg.PolymarketAPIKey,
		Signer:      orderSigner,
		Attribution: attribution,
		Logger:      logger,
	})
}

// setupBreaker builds the balance circuit breaker when enabled and a
// proxy wallet address is configured to monitor. Returns nil when the
// breaker is off so trades run ungated.
func setupBreaker(cfg *config.Config, walletClient *wallet.Client, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreakerEnabled || cfg.PolymarketProxy == "" {
		logger.Info("circuit-breaker-disabled")
		return nil, nil
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         common.HexToAddress(cfg.PolymarketProxy),
		Logger:          logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}

	return storage.NewConsoleStorage(logger), nil
}

// A nil *T stored in an interface is not a nil interface; these keep
// the orchestrator's "venue unconfigured" checks meaningful.
func nilIfUnset(c *orders.KalshiClient) trade.KalshiOrderClient {
	if c == nil {
		return nil
	}
	return c
}

func nilIfUnsetPM(c *orders.PolymarketClient) trade.OrderClient {
	if c == nil {
		return nil
	}
	return c
}

func nilIfUnsetLocal(s *signing.LocalAttributionSigner) signing.AttributionSigner {
	if s == nil {
		return nil
	}
	return s
}

func nilIfUnsetBreaker(b *circuitbreaker.BalanceCircuitBreaker) trade.Breaker {
	if b == nil {
		return nil
	}
	return b
}
