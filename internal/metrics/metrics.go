// Package metrics exports compilation counters in the Prometheus text
// format, suitable for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bnema/adblock-filter-compiler/internal/compiler"
	"github.com/bnema/adblock-filter-compiler/internal/fetcher"
)

// Collector holds the metrics of one compilation run
type Collector struct {
	registry *prometheus.Registry

	rules         prometheus.Gauge
	whitelist     prometheus.Gauge
	stats         *prometheus.GaugeVec
	sourceRules   *prometheus.GaugeVec
	sourceInvalid *prometheus.GaugeVec
	sourceSkipped *prometheus.GaugeVec
	fetchFailures *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

// New creates a collector on a private registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		rules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "adblock_compiler_rules",
			Help: "Number of rules in the compiled blocklist",
		}),
		whitelist: factory.NewGauge(prometheus.GaugeOpts{
			Name: "adblock_compiler_whitelist_rules",
			Help: "Number of rules in the compiled whitelist",
		}),
		stats: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adblock_compiler_stat",
			Help: "Compilation counters of the last run",
		}, []string{"counter"}),
		sourceRules: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adblock_compiler_source_rules",
			Help: "Rules parsed per source",
		}, []string{"source"}),
		sourceInvalid: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adblock_compiler_source_invalid_lines",
			Help: "Invalid lines skipped per source",
		}, []string{"source"}),
		sourceSkipped: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adblock_compiler_source_skipped_lines",
			Help: "Skipped lines per source and reason",
		}, []string{"source", "reason"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adblock_compiler_fetch_failures_total",
			Help: "Sources that could not be fetched",
		}, []string{"source"}),
		fetchBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adblock_compiler_fetch_bytes_total",
			Help: "Bytes downloaded per source",
		}, []string{"source"}),
		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adblock_compiler_stage_duration_seconds",
			Help: "Duration of each pipeline stage",
		}, []string{"stage"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "adblock_compiler_last_success_timestamp_seconds",
			Help: "Unix time of the last successful compilation",
		}),
	}
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records how long a pipeline stage took
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// RecordFetch records fetch outcomes
func (c *Collector) RecordFetch(results []fetcher.LoadResult) {
	for _, r := range results {
		if r.Err != nil {
			c.fetchFailures.WithLabelValues(r.List.Name).Inc()
			continue
		}
		c.fetchBytes.WithLabelValues(r.List.Name).Add(float64(r.Bytes))
	}
}

// RecordResult records the counters of a finished compilation
func (c *Collector) RecordResult(res *compiler.Result, at time.Time) {
	c.rules.Set(float64(res.Blocklist.Len()))
	if res.Whitelist != nil {
		c.whitelist.Set(float64(res.Whitelist.Len()))
	}

	c.stats.WithLabelValues("total_parsed").Set(float64(res.Stats.TotalParsed))
	c.stats.WithLabelValues("duplicates_removed").Set(float64(res.Stats.DuplicatesRemoved))
	c.stats.WithLabelValues("domains_compressed").Set(float64(res.Stats.DomainsCompressed))
	c.stats.WithLabelValues("invalid_lines_skipped").Set(float64(res.Stats.InvalidLinesSkipped))
	c.stats.WithLabelValues("whitelist_removed").Set(float64(res.Stats.WhitelistRemoved))

	for _, s := range res.Sources {
		c.sourceRules.WithLabelValues(s.Source).Set(float64(s.Rules))
		c.sourceInvalid.WithLabelValues(s.Source).Set(float64(s.Invalid))
		for reason, n := range s.SkipReasons {
			c.sourceSkipped.WithLabelValues(s.Source, reason).Set(float64(n))
		}
	}

	c.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
