package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domogw_calls_total",
			Help: "Call dispatch lifecycle counter by terminal stage",
		},
		[]string{"stage"}, // delivered|invalid|unresolved|failed
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domogw_actions_total",
			Help: "Resolved tenant actions by kind and outcome",
		},
		[]string{"kind", "outcome"}, // open|ignore , ok|error|duplicate|invalid
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		CallsTotal,
		ActionsTotal,
	)
}
