// Package store defines the persistence contract for session runs and their
// status snapshots. Implementations live in internal/storage; this package
// must not import database drivers or concrete clients.
package store
