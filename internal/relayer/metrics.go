package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// submissionsTotal tracks relay submissions by action and outcome.
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_relayer_submissions_total",
			Help: "Total number of actions submitted to the relay",
		},
		[]string{"action", "outcome"},
	)

	// pollAttemptsTotal tracks individual status fetches.
	pollAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_relayer_poll_attempts_total",
		Help: "Total number of relay transaction status fetches",
	})

	// pollOutcomesTotal tracks how poll loops ended.
	pollOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_relayer_poll_outcomes_total",
			Help: "Terminal outcomes of relay poll loops",
		},
		[]string{"outcome"},
	)
)
