package eventlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the event buffer and its
// flushes. A nil collector is valid and records nothing.
type MetricsCollector struct {
	entriesTotal        *prometheus.CounterVec
	evictedTotal        prometheus.Counter
	flushesTotal        *prometheus.CounterVec
	flushedEntriesTotal prometheus.Counter
	bufferSize          prometheus.Gauge
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	return &MetricsCollector{
		entriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synapse_eventlog_entries_total",
				Help: "Total number of entries accepted into the event buffer",
			},
			[]string{"level", "event_type"},
		),
		evictedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "synapse_eventlog_evicted_total",
			Help: "Total number of entries dropped because the buffer was full",
		}),
		flushesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synapse_eventlog_flushes_total",
				Help: "Total number of flush attempts by result",
			},
			[]string{"result"},
		),
		flushedEntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "synapse_eventlog_flushed_entries_total",
			Help: "Total number of entries delivered to the sink",
		}),
		bufferSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "synapse_eventlog_buffer_size",
			Help: "Current number of buffered entries",
		}),
	}
}

// RecordEntry counts an accepted entry.
func (mc *MetricsCollector) RecordEntry(level Level, eventType EventType) {
	if mc == nil {
		return
	}
	mc.entriesTotal.WithLabelValues(level.String(), string(eventType)).Inc()
}

// RecordEvicted counts entries dropped on overflow.
func (mc *MetricsCollector) RecordEvicted(n int) {
	if mc == nil || n <= 0 {
		return
	}
	mc.evictedTotal.Add(float64(n))
}

// RecordFlush counts a flush attempt and, on success, the delivered entries.
func (mc *MetricsCollector) RecordFlush(success bool, entries int) {
	if mc == nil {
		return
	}
	if success {
		mc.flushesTotal.WithLabelValues("success").Inc()
		mc.flushedEntriesTotal.Add(float64(entries))
		return
	}
	mc.flushesTotal.WithLabelValues("failure").Inc()
}

// SetBufferSize sets the buffer size gauge.
func (mc *MetricsCollector) SetBufferSize(n int) {
	if mc == nil {
		return
	}
	mc.bufferSize.Set(float64(n))
}
