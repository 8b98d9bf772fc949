package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// USDCBalanceGauge tracks the last observed USDC balance.
	USDCBalanceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradegate_wallet_usdc_balance",
		Help: "Last observed USDC balance of the trading wallet (USD)",
	})
)
