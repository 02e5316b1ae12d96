package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector counts lifecycle transitions and notification delivery outcomes.
type Collector struct {
	Transitions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayalive_emergency_transitions_total",
			Help: "Lifecycle operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayalive_notifications_total",
			Help: "Dispatch notifications by audience and delivery outcome.",
		}, []string{"audience", "outcome"}),
	}
	for _, col := range []prometheus.Collector{c.Transitions, c.Notifications} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) RecordTransition(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Transitions.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordNotification(audience string, delivered bool) {
	outcome := "sent"
	if !delivered {
		outcome = "dropped"
	}
	c.Notifications.WithLabelValues(audience, outcome).Inc()
}
