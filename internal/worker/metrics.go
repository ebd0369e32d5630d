package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var flushes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gerrit_notifier_flushes_total",
	Help: "Total number of flush cycles by outcome",
}, []string{"result"})
