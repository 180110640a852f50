// Package metrics exports engine statistics to Prometheus.
//
// The engine is single-owner, so the collector never reads it directly.
// The owner calls Observe with a fresh engine.Snapshot after each unit of
// work; scrapes report the last observed snapshot.
//
// # Metrics Exported
//
//   - incr_engine_hits_total: reads answered without running a body
//   - incr_engine_executions_total: query bodies run
//   - incr_engine_verifications_total: dependency walks
//   - incr_engine_cycles_total: detected query cycles
//   - incr_engine_sweeps_total: garbage-collection passes
//   - incr_engine_entries_collected_total, incr_engine_names_collected_total
//   - incr_engine_entries_loaded_total: entries installed from caches
//   - incr_engine_revision, incr_engine_entries, incr_engine_names: gauges
//   - incr_engine_kind_entries{kind}: cached entries per kind
//   - incr_engine_kind_executions_total{kind}: body runs per kind
package metrics

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/incr/internal/engine"
)

const (
	namespace = "incr"
	subsystem = "engine"
)

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
}

var (
	hitsDesc          = desc("hits_total", "Reads answered without running a query body.")
	executionsDesc    = desc("executions_total", "Query bodies run.")
	verificationsDesc = desc("verifications_total", "Dependency walks started by stale reads.")
	cyclesDesc        = desc("cycles_total", "Detected query cycles.")
	sweepsDesc        = desc("sweeps_total", "Garbage-collection passes.")
	entriesFreedDesc  = desc("entries_collected_total", "Cache entries freed by sweeps.")
	namesFreedDesc    = desc("names_collected_total", "Interned names freed by sweeps.")
	entriesLoadedDesc = desc("entries_loaded_total", "Entries installed from persisted caches.")
	revisionDesc      = desc("revision", "Current revision.")
	entriesDesc       = desc("entries", "Cached entries across all kinds.")
	namesDesc         = desc("names", "Interned names.")
	kindEntriesDesc   = desc("kind_entries", "Cached entries per kind.", "kind")
	kindExecDesc      = desc("kind_executions_total", "Query bodies run per kind.", "kind")
)

// Collector is a prometheus.Collector over observed engine snapshots.
// It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	snap     engine.Snapshot
	observed bool
}

// NewCollector creates a collector with nothing observed. Until the first
// Observe it reports no metrics.
func NewCollector() *Collector {
	return &Collector{}
}

// Observe records s as the state to report.
func (c *Collector) Observe(s engine.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = s
	c.observed = true
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		hitsDesc, executionsDesc, verificationsDesc, cyclesDesc, sweepsDesc,
		entriesFreedDesc, namesFreedDesc, entriesLoadedDesc,
		revisionDesc, entriesDesc, namesDesc, kindEntriesDesc, kindExecDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	s, ok := c.snap, c.observed
	c.mu.Unlock()
	if !ok {
		return
	}

	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}

	counter(hitsDesc, s.Hits)
	counter(executionsDesc, s.Executions)
	counter(verificationsDesc, s.Verifications)
	counter(cyclesDesc, s.Cycles)
	counter(sweepsDesc, s.Sweeps)
	counter(entriesFreedDesc, s.EntriesCollected)
	counter(namesFreedDesc, s.NamesCollected)
	counter(entriesLoadedDesc, s.EntriesLoaded)
	gauge(revisionDesc, int64(s.Revision))
	gauge(entriesDesc, int64(s.Entries))
	gauge(namesDesc, int64(s.Names))

	for _, kind := range sortedKeys(s.Kinds) {
		gauge(kindEntriesDesc, int64(s.Kinds[kind]), kind)
	}
	for _, kind := range sortedKeys(s.Executed) {
		counter(kindExecDesc, s.Executed[kind], kind)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// WriteText gathers g and writes it in the Prometheus text format, for
// node-exporter style textfile collection.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
