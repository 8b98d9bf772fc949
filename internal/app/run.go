package app

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("log-level", a.cfg.LogLevel),
		zap.String("signing-mode", a.cfg.SigningMode),
		zap.String("storage-mode", a.cfg.StorageMode))

	a.wg.Add(1)
	go a.runHTTPServer()

	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	a.healthChecker.SetReady("signer", true)
	a.healthChecker.SetReady("relay", true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("relay-url", a.cfg.RelayURL))

	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
