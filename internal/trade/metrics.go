package trade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradegate_trades_total",
		Help: "Trade requests by venue and outcome",
	},
	[]string{"venue", "outcome"},
)
