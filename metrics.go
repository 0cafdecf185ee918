package exfat

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultMetricsNamespace = "exfat"
	partitionSubsystem      = "partition"
)

// Metrics collects partition activity. A nil *Metrics records nothing.
type Metrics struct {
	fatPageLoads     prometheus.Counter
	fatPageFlushes   prometheus.Counter
	allocatedCluster prometheus.Counter
	freedCluster     prometheus.Counter
	usedClusters     prometheus.Gauge
}

// NewMetrics creates the partition metrics in the given namespace ("exfat" if empty).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultMetricsNamespace
	}

	return &Metrics{
		fatPageLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: partitionSubsystem,
			Name:      "fat_page_loads_total",
			Help:      "Number of FAT pages read into the page cache",
		}),
		fatPageFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: partitionSubsystem,
			Name:      "fat_page_flushes_total",
			Help:      "Number of dirty FAT pages written back",
		}),
		allocatedCluster: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: partitionSubsystem,
			Name:      "allocated_clusters_total",
			Help:      "Number of clusters allocated",
		}),
		freedCluster: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: partitionSubsystem,
			Name:      "freed_clusters_total",
			Help:      "Number of clusters freed",
		}),
		usedClusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: partitionSubsystem,
			Name:      "used_clusters",
			Help:      "Number of clusters marked allocated in the bitmap",
		}),
	}
}

// Register registers all collectors in r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.fatPageLoads,
		m.fatPageFlushes,
		m.allocatedCluster,
		m.freedCluster,
		m.usedClusters,
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) incFATPageLoads() {
	if m != nil {
		m.fatPageLoads.Inc()
	}
}

func (m *Metrics) incFATPageFlushes() {
	if m != nil {
		m.fatPageFlushes.Inc()
	}
}

func (m *Metrics) incAllocated() {
	if m != nil {
		m.allocatedCluster.Inc()
		m.usedClusters.Inc()
	}
}

func (m *Metrics) incFreed() {
	if m != nil {
		m.freedCluster.Inc()
		m.usedClusters.Dec()
	}
}

func (m *Metrics) setUsedClusters(n uint64) {
	if m != nil {
		m.usedClusters.Set(float64(n))
	}
}
