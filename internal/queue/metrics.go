package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_messages_enqueued_total",
	Help: "Total number of messages added to the outbound buffer",
})

var bufferPending = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "gerrit_notifier_buffer_pending",
	Help: "Number of messages waiting for the next flush",
})
