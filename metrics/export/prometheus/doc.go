// Package prometheus renders sessiongate engine counters in the Prometheus text
// exposition format.
//
// Counter names are sessiongate_*_total; the verification latency histogram is
// sessiongate_verify_latency_seconds with microsecond-scale buckets. Mount
// [Exporter.Handler] on the scrape path. Nothing is registered globally.
package prometheus
