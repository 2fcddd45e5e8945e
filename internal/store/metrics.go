package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once on the default registry and shared by every
// ledger instance in the process.
var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Number of committed ledger mutations by operation.",
	}, []string{"op"})

	restoreSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_restore_skipped_records_total",
		Help: "Number of records rejected by the snapshot restore pipeline.",
	})
)
