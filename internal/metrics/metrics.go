package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// WebhookEvents counts processed webhook deliveries per channel and outcome.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "Total number of Stripe webhook events processed",
		},
		[]string{"channel", "event_type", "outcome"},
	)

	// PaymentIntents counts gateway payment intent operations per result.
	PaymentIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_payment_intents_total",
			Help: "Total number of Stripe payment intent operations",
		},
		[]string{"operation", "result"},
	)
)

// Register installs the collectors into the default registry.
func Register() {
	prometheus.MustRegister(WebhookEvents)
	prometheus.MustRegister(PaymentIntents)
}

// Serve exposes /metrics on its own listener so scraping never competes with
// payment traffic.
func Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logrus.WithError(err).Error("metrics listener stopped")
		}
	}()
}
