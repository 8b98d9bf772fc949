package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/circuitbreaker"
	"github.com/openpredict/tradegate/internal/proxywallet"
	"github.com/openpredict/tradegate/internal/relayer"
	"github.com/openpredict/tradegate/internal/storage"
	"github.com/openpredict/tradegate/internal/trade"
	"github.com/openpredict/tradegate/pkg/cache"
	"github.com/openpredict/tradegate/pkg/config"
	"github.com/openpredict/tradegate/pkg/healthprobe"
	"github.com/openpredict/tradegate/pkg/httpserver"
)

// App wires the signing, relay and order subsystems together and owns
// their lifecycle.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	statusCache   cache.Cache
	relay         *relayer.Client
	proxyManager  *proxywallet.Manager
	orchestrator  *trade.Orchestrator
	tradeStorage  storage.Storage
	breaker       *circuitbreaker.BalanceCircuitBreaker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Orchestrator exposes the trade orchestrator for CLI commands.
func (a *App) Orchestrator() *trade.Orchestrator {
	return a.orchestrator
}

// ProxyManager exposes the proxy-wallet lifecycle manager.
func (a *App) ProxyManager() *proxywallet.Manager {
	return a.proxyManager
}

// Relay exposes the relay client.
func (a *App) Relay() *relayer.Client {
	return a.relay
}
