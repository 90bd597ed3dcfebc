package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sygl_generations_total",
			Help: "Total number of logo generations by model and final status",
		},
		[]string{"model", "status"},
	)

	CreditsCharged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sygl_credits_charged_total",
			Help: "Credits consumed by completed generations",
		},
		[]string{"model"},
	)

	InsufficientCredits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sygl_insufficient_credits_total",
			Help: "Generation requests rejected for lack of credits",
		},
		[]string{"model"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sygl_provider_duration_seconds",
			Help:    "Duration of provider calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "outcome"},
	)

	GenerationsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sygl_generations_in_flight",
			Help: "Number of generations currently reserved and awaiting a provider",
		},
		[]string{"model"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sygl_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)
)

// Outcome labels used with ProviderDuration.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Outcome maps a success flag to a label value.
func Outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
