package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_messages_sent_total",
	Help: "Total number of messages accepted by the transport",
})

var messagesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_messages_suppressed_total",
	Help: "Total number of messages dropped by the ignore-word filter",
})

var messagesFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_messages_failed_total",
	Help: "Total number of messages the transport rejected or that were never attempted",
})
