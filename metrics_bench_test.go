package sessiongate

import (
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricSessionValid)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricSessionValid)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricSessionValid)
		}
	})
}

func BenchmarkMetricsObserveVerifyLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 180 * time.Microsecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricVerifyLatency, d)
		}
	})
}

// packedCounters is the unpadded layout, kept to measure false sharing.
type packedCounters struct {
	counters [metricIDCount]uint64
}

func (m *packedCounters) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

// Counters hit together on every guarded request.
var guardHotMetricIDs = [...]MetricID{
	MetricSessionValid,
	MetricSessionRenewed,
	MetricSessionNoToken,
	MetricSessionExpired,
}

func BenchmarkMetricsIncGuardMixParallelPadded(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(guardHotMetricIDs[idx])
			idx = (idx + 1) % len(guardHotMetricIDs)
		}
	})
}

func BenchmarkMetricsIncGuardMixParallelPacked(b *testing.B) {
	m := &packedCounters{}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(guardHotMetricIDs[idx])
			idx = (idx + 1) % len(guardHotMetricIDs)
		}
	})
}
