package proofservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitch",
		Name:      "step_verifications_total",
		Help:      "Proof steps checked by Verify, by outcome.",
	}, []string{"result"})

	operationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitch",
		Name:      "operations_total",
		Help:      "Editing operations applied to documents, by kind and outcome.",
	}, []string{"op", "result"})

	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitch",
		Name:      "open_sessions",
		Help:      "Documents currently held in memory.",
	})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
