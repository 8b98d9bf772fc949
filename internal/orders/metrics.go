package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ordersSubmittedTotal tracks order submissions by venue and outcome.
	ordersSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_orders_submitted_total",
			Help: "Total number of orders submitted to venues",
		},
		[]string{"venue", "outcome"},
	)
)
