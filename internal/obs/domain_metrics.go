package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// NotificationTotal counts inbound notification outcomes by kind.
	NotificationTotal *prometheus.CounterVec
	// CommandTotal counts outbound provider command outcomes.
	CommandTotal *prometheus.CounterVec
	// ReplaySuppressedTotal counts duplicate notifications short-circuited
	// by the replay guard.
	ReplaySuppressedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		NotificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_notification_total",
			Help:      "Count of processed checkout notifications by kind and outcome.",
		}, []string{"kind", "result"})
		CommandTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_command_total",
			Help:      "Count of outbound checkout command outcomes.",
		}, []string{"command", "result"})
		ReplaySuppressedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_replay_suppressed_total",
			Help:      "Duplicate notifications re-acknowledged without invoking hooks.",
		})
		reg.MustRegister(NotificationTotal, CommandTotal, ReplaySuppressedTotal)
	})
}
