// Package metrics declares the Prometheus collectors exported by marketdesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "marketdesk"

const (
	NameMutations         = "mutations_total"
	NamePendingMutations  = "pending_mutations"
	NameConfirmDuration   = "mutation_confirm_duration_seconds"
	LabelKind             = "kind"
	LabelOutcome          = "outcome"
	OutcomeConfirmed      = "confirmed"
	OutcomeRolledBack     = "rolled_back"
	OutcomeValidationFail = "invalid"
)

var Mutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameMutations,
		Help:      "Optimistic mutations by final outcome",
		Namespace: Namespace,
	},
	[]string{LabelKind, LabelOutcome},
)

var PendingMutations = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name:      NamePendingMutations,
		Help:      "Mutations applied locally and awaiting confirmation",
		Namespace: Namespace,
	},
	[]string{LabelKind},
)

var ConfirmDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:      NameConfirmDuration,
		Help:      "Time spent waiting for the backend to confirm a mutation",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
	},
	[]string{LabelKind},
)
