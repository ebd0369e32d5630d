package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gerrit_notifier_events_received_total",
	Help: "Total number of parsed events received from the stream",
}, []string{"type", "kind"})

var parseErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_event_parse_errors_total",
	Help: "Total number of stream lines that could not be parsed",
})

var reconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_stream_reconnects_total",
	Help: "Total number of times the event stream was lost and reopened",
})

var listenerState = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "gerrit_notifier_listener_state",
	Help: "Current listener state (0 connecting, 1 streaming, 2 disconnected, 3 stopped)",
})
