package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tradegate_sign_requests_total",
	Help: "Successful attribution signing requests served",
})
