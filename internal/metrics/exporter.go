package metrics

import (
	"net/http"
	"sync"

	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cpuDesc = prometheus.NewDesc("cpu_usage_percent",
		"CPU usage in percentage", []string{"container"}, nil)
	memoryDesc = prometheus.NewDesc("memory_usage_percent",
		"Memory usage in percentage", []string{"container"}, nil)
	networkInDesc = prometheus.NewDesc("network_in_bytes",
		"Network in bytes", []string{"container"}, nil)
	networkOutDesc = prometheus.NewDesc("network_out_bytes",
		"Network out bytes", []string{"container"}, nil)
	pidsDesc = prometheus.NewDesc("pids",
		"Number of processes", []string{"container"}, nil)
	containersDesc = prometheus.NewDesc("containers",
		"Number of containers per lifecycle state", []string{"state"}, nil)
)

// snapshot is one recorded aggregate. It is never mutated after Record
// swaps it in.
type snapshot struct {
	samples []stats.Sample
	counts  stats.AggregateCounts
}

// Exporter serves the most recent aggregate as gauges on its own registry.
// A scrape always sees a single complete aggregate.
type Exporter struct {
	registry *prometheus.Registry
	mu       sync.RWMutex
	last     snapshot
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
	}
	e.registry.MustRegister(e)
	return e
}

// Record replaces the exported aggregate. Containers that have gone away, or
// whose stats could not be read, drop out.
func (e *Exporter) Record(resp *stats.Response, samples []stats.Sample) {
	next := snapshot{
		samples: make([]stats.Sample, 0, len(samples)),
		counts:  resp.Stats,
	}

	seen := make(map[string]bool, len(samples))
	for _, s := range samples {
		if !s.Available || s.Name == "" || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		next.samples = append(next.samples, s)
	}

	e.mu.Lock()
	e.last = next
	e.mu.Unlock()
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- cpuDesc
	ch <- memoryDesc
	ch <- networkInDesc
	ch <- networkOutDesc
	ch <- pidsDesc
	ch <- containersDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.RLock()
	last := e.last
	e.mu.RUnlock()

	for _, s := range last.samples {
		ch <- prometheus.MustNewConstMetric(cpuDesc, prometheus.GaugeValue, s.CPUPercent, s.Name)
		ch <- prometheus.MustNewConstMetric(memoryDesc, prometheus.GaugeValue, s.MemoryPercent, s.Name)
		ch <- prometheus.MustNewConstMetric(networkInDesc, prometheus.GaugeValue, float64(s.NetworkRx), s.Name)
		ch <- prometheus.MustNewConstMetric(networkOutDesc, prometheus.GaugeValue, float64(s.NetworkTx), s.Name)
		ch <- prometheus.MustNewConstMetric(pidsDesc, prometheus.GaugeValue, float64(s.PIDs), s.Name)
	}

	ch <- prometheus.MustNewConstMetric(containersDesc, prometheus.GaugeValue, float64(last.counts.Running), "running")
	ch <- prometheus.MustNewConstMetric(containersDesc, prometheus.GaugeValue, float64(last.counts.Stopped), "stopped")
	ch <- prometheus.MustNewConstMetric(containersDesc, prometheus.GaugeValue, float64(last.counts.Unhealthy), "unhealthy")
	ch <- prometheus.MustNewConstMetric(containersDesc, prometheus.GaugeValue, float64(last.counts.Restarting), "restarting")
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
