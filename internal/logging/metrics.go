package logging

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MetricExporter writes collected OpenTelemetry metrics to a logrus logger, one entry per
// data point. Pair it with a periodic reader.
type MetricExporter struct {
	logger logrus.FieldLogger

	mu       sync.Mutex
	shutdown bool
}

var _ sdkmetric.Exporter = (*MetricExporter)(nil)

// NewMetricExporter returns an exporter logging at info level on logger.
func NewMetricExporter(logger logrus.FieldLogger) *MetricExporter {
	return &MetricExporter{logger: logger}
}

// Temporality uses the SDK default (cumulative).
func (e *MetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

// Aggregation uses the SDK default.
func (e *MetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

// Export logs every data point in rm. After Shutdown it is a no-op.
func (e *MetricExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown || rm == nil {
		return nil
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			e.exportMetric(sm.Scope.Name, m)
		}
	}
	return nil
}

func (e *MetricExporter) exportMetric(scope string, m metricdata.Metrics) {
	log := e.logger.WithFields(logrus.Fields{
		"scope":  scope,
		"metric": m.Name,
		"unit":   m.Unit,
	})

	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			point(log, dp.Attributes).WithField("value", dp.Value).Info("metric")
		}
	case metricdata.Sum[float64]:
		for _, dp := range data.DataPoints {
			point(log, dp.Attributes).WithField("value", dp.Value).Info("metric")
		}
	case metricdata.Gauge[int64]:
		for _, dp := range data.DataPoints {
			point(log, dp.Attributes).WithField("value", dp.Value).Info("metric")
		}
	case metricdata.Gauge[float64]:
		for _, dp := range data.DataPoints {
			point(log, dp.Attributes).WithField("value", dp.Value).Info("metric")
		}
	case metricdata.Histogram[int64]:
		for _, dp := range data.DataPoints {
			point(log, dp.Attributes).WithFields(logrus.Fields{"count": dp.Count, "sum": dp.Sum}).Info("metric")
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			point(log, dp.Attributes).WithFields(logrus.Fields{"count": dp.Count, "sum": dp.Sum}).Info("metric")
		}
	}
}

func point(log logrus.FieldLogger, attrs attribute.Set) logrus.FieldLogger {
	if attrs.Len() == 0 {
		return log
	}
	return log.WithField("attributes", attrs.Encoded(attribute.DefaultEncoder()))
}

// ForceFlush has nothing buffered.
func (e *MetricExporter) ForceFlush(ctx context.Context) error {
	return ctx.Err()
}

// Shutdown stops further exports.
func (e *MetricExporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.shutdown = true
	e.mu.Unlock()
	return ctx.Err()
}
