// Package sinks implements the progress.Sink consumers: structured logs,
// Prometheus gauges, the snapshot repository, the message bus and the final
// report archive.
package sinks
