package proxywallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// deploymentsTotal tracks terminal deployment outcomes.
	deploymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_proxywallet_deployments_total",
			Help: "Terminal outcomes of proxy wallet deployments",
		},
		[]string{"outcome"},
	)

	// approvalsTotal tracks terminal approval outcomes.
	approvalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_proxywallet_approvals_total",
			Help: "Terminal outcomes of allowance approvals",
		},
		[]string{"outcome"},
	)

	// operationsRejectedTotal counts operations rejected because the
	// record was already being mutated.
	operationsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_proxywallet_operations_rejected_total",
		Help: "Lifecycle operations rejected due to an in-flight operation",
	})
)
