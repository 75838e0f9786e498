package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the pipeline counters. Registration happens once at startup
// against the default registry, which promhttp serves on /metrics.
type Metrics struct {
	CheckoutTotal   *prometheus.CounterVec
	WebhookTotal    *prometheus.CounterVec
	RefundTotal     *prometheus.CounterVec
	SweptPayments   prometheus.Counter
	GatewayRequests *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		CheckoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathshala",
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		WebhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathshala",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Gateway callback deliveries by source and outcome.",
		}, []string{"source", "outcome"}),
		RefundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathshala",
			Subsystem: "refund",
			Name:      "requests_total",
			Help:      "Refund requests by outcome.",
		}, []string{"outcome"}),
		SweptPayments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathshala",
			Subsystem: "payment",
			Name:      "swept_pending_total",
			Help:      "Stale pending payments moved to failed by the sweeper.",
		}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathshala",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Outbound gateway API calls by gateway and result.",
		}, []string{"gateway", "result"}),
	}
	prometheus.MustRegister(
		m.CheckoutTotal,
		m.WebhookTotal,
		m.RefundTotal,
		m.SweptPayments,
		m.GatewayRequests,
	)
	return m
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
