// Package otel publishes sessiongate engine counters through an OpenTelemetry Meter.
//
// Counters become Int64ObservableCounter instruments. The latency histogram is exposed
// as one cumulative gauge per bucket plus a count gauge, because the OTel metric API has
// no asynchronous histogram. A single callback reads one snapshot per collection.
// Callers own the MeterProvider.
package otel
