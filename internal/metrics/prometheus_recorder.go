package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration    prom.Histogram
	passOutcomes    *prom.CounterVec
	entries         *prom.CounterVec
	entryFailures   *prom.CounterVec
	watchEvents     prom.Counter
	rebuildTriggers *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil registry gets a fresh private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "statique",
			Name:      "pass_duration_seconds",
			Help:      "Duration of synchronization passes",
			Buckets:   prom.DefBuckets,
		}),
		passOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statique",
			Name:      "pass_outcomes_total",
			Help:      "Synchronization passes by outcome",
		}, []string{"outcome"}),
		entries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statique",
			Name:      "entries_total",
			Help:      "Source entries processed by action",
		}, []string{"action"}),
		entryFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statique",
			Name:      "entry_failures_total",
			Help:      "Entries that failed and were skipped, by failure kind",
		}, []string{"kind"}),
		watchEvents: prom.NewCounter(prom.CounterOpts{
			Namespace: "statique",
			Name:      "watch_events_total",
			Help:      "Filesystem notifications accepted by the watcher",
		}),
		rebuildTriggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statique",
			Name:      "rebuild_triggers_total",
			Help:      "Coalesced rebuild signals by cause",
		}, []string{"cause"}),
	}
	reg.MustRegister(pr.passDuration, pr.passOutcomes, pr.entries, pr.entryFailures, pr.watchEvents, pr.rebuildTriggers)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(outcome PassOutcome) {
	p.passOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncEntry(action string) {
	p.entries.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) IncEntryFailure(kind string) {
	p.entryFailures.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncWatchEvent() { p.watchEvents.Inc() }

func (p *PrometheusRecorder) IncRebuildTrigger(cause string) {
	p.rebuildTriggers.WithLabelValues(cause).Inc()
}
