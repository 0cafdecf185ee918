package exfat

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics("test")
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, m.Register(reg))
	require.Error(t, m.Register(reg), "collectors are already registered")

	m.incAllocated()
	m.incAllocated()
	m.incFreed()
	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 5, count)
	require.Equal(t, float64(2), testutil.ToFloat64(m.allocatedCluster))
	require.Equal(t, float64(1), testutil.ToFloat64(m.freedCluster))
	require.Equal(t, float64(1), testutil.ToFloat64(m.usedClusters))

	m.setUsedClusters(42)
	require.Equal(t, float64(42), testutil.ToFloat64(m.usedClusters))
}

func TestMetrics_nil(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.incFATPageLoads()
		m.incFATPageFlushes()
		m.incAllocated()
		m.incFreed()
		m.setUsedClusters(1)
	})
}
