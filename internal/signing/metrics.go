package signing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// kalshiSignaturesTotal tracks RSA-PSS request signatures.
	kalshiSignaturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_signing_kalshi_signatures_total",
		Help: "Total number of Kalshi request signatures produced",
	})

	// orderSignaturesTotal tracks EIP-712 order signatures by risk category.
	orderSignaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_signing_order_signatures_total",
			Help: "Total number of Polymarket order signatures produced",
		},
		[]string{"risk_category"},
	)

	// attributionSignaturesTotal tracks HMAC header sets by signer mode.
	attributionSignaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_signing_attribution_signatures_total",
			Help: "Total number of builder-attribution header sets produced",
		},
		[]string{"mode"},
	)
)
