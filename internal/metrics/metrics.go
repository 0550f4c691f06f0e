// Package metrics exposes prometheus instrumentation for the adherence core
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	dosesMarkedTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medicinett_doses_marked_taken_total",
		Help: "Doses recorded through the mark-taken operation",
	})

	takenTimeSet = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medicinett_taken_time_set_total",
		Help: "Doses recorded or corrected through set-taken-time",
	})

	sweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medicinett_sweep_runs_total",
		Help: "Missed-sweep invocations",
	})

	sweepMissed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medicinett_sweep_medicines_missed_total",
		Help: "Doses finalized as MISSED by the sweep",
	})

	sweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medicinett_sweep_errors_total",
		Help: "Medicines skipped by the sweep due to store errors",
	})

	reportsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medicinett_reports_built_total",
		Help: "Daily reports built",
	})

	reportBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medicinett_report_build_seconds",
		Help:    "Time spent building a daily report",
		Buckets: prometheus.DefBuckets,
	})
)

func RecordDoseMarkedTaken() {
	dosesMarkedTaken.Inc()
}

func RecordTakenTimeSet() {
	takenTimeSet.Inc()
}

func RecordSweepRun(missed, errors int) {
	sweepRuns.Inc()
	sweepMissed.Add(float64(missed))
	sweepErrors.Add(float64(errors))
}

func RecordReportBuilt(seconds float64) {
	reportsBuilt.Inc()
	reportBuildSeconds.Observe(seconds)
}

// Handler serves the prometheus exposition endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
