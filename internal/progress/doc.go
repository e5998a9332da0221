// Package progress carries status reports from a running session to the
// places they are kept: logs, metrics, the snapshot store, the archive and
// the message bus. Reporters Emit events onto a non-blocking Hub, which
// batches them on a background goroutine and fans each batch out to Sinks.
package progress
